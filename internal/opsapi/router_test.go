package opsapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignd/internal/campaign"
	"campaignd/internal/runtime/supervisor"
	"campaignd/internal/schedule"
	logx "campaignd/pkg/logx"
)

type fakeRunner struct{ gate *schedule.Gate }

func (f fakeRunner) Snapshot() campaign.Snapshot {
	return campaign.Snapshot{Enabled: true, Spec: "@every 30s", Timezone: "Europe/Paris", Ticks: 7}
}

func (f fakeRunner) Gate() *schedule.Gate { return f.gate }

func newDeps(t *testing.T) Deps {
	t.Helper()
	loc, err := schedule.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return Deps{
		Runner:     fakeRunner{gate: schedule.NewGate(schedule.NewNormalizer(loc, logx.Nop()), logx.Nop())},
		Supervisor: func() supervisor.Snapshot { return supervisor.Snapshot{} },
		Version:    "test",
		Started:    time.Now(),
	}
}

func get(t *testing.T, h http.Handler, target string, hdr http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	rec := get(t, NewRouter(newDeps(t), "", logx.Nop()), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatus(t *testing.T) {
	t.Parallel()
	rec := get(t, NewRouter(newDeps(t), "", logx.Nop()), "/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, uint64(7), resp.Runner.Ticks)
	assert.NotNil(t, resp.Supervisor)
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	h := NewRouter(newDeps(t), "", logx.Nop())
	rec := get(t, h, "/v1/normalize?date=2026-02-06T14:30&date=2026-07-06T14:30&date=garbage", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []NormalizedDate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, NormalizedDate{Input: "2026-02-06T14:30", Valid: true, UTC: "2026-02-06T13:30:00Z", Local: "2026-02-06T14:30:00+01:00"}, got[0])
	assert.Equal(t, "2026-07-06T12:30:00Z", got[1].UTC)
	assert.Equal(t, NormalizedDate{Input: "garbage"}, got[2])

	rec = get(t, h, "/v1/normalize", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth(t *testing.T) {
	t.Parallel()
	h := NewRouter(newDeps(t), "s3cret", logx.Nop())

	tests := []struct {
		name   string
		target string
		hdr    http.Header
		want   int
	}{
		{"no credentials", "/healthz", nil, http.StatusUnauthorized},
		{"bad query token", "/healthz?token=nope", nil, http.StatusUnauthorized},
		{"query token", "/healthz?token=s3cret", nil, http.StatusOK},
		{"bearer", "/v1/status", http.Header{"Authorization": {"Bearer s3cret"}}, http.StatusOK},
		{"bad bearer", "/v1/status", http.Header{"Authorization": {"Bearer other"}}, http.StatusUnauthorized},
		{"pprof guarded", "/debug/pprof/", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := get(t, h, tt.target, tt.hdr)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestServerReconfigure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer(newDeps(t), logx.Nop())
	t.Cleanup(func() { srv.Stop(context.Background()) })
	srv.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})

	var addr string
	require.Eventually(t, func() bool {
		addr = srv.Addr()
		return addr != ""
	}, 3*time.Second, 20*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	srv.Reconfigure(ctx, Config{Enabled: false})
	assert.Empty(t, srv.Addr())
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	assert.True(t, isLoopbackAddr("127.0.0.1:8089"))
	assert.True(t, isLoopbackAddr("localhost:1"))
	assert.True(t, isLoopbackAddr("[::1]:1"))
	assert.False(t, isLoopbackAddr(":8089"))
	assert.False(t, isLoopbackAddr("0.0.0.0:8089"))
	assert.False(t, isLoopbackAddr("nonsense"))
}
