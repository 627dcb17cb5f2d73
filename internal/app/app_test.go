package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignd/internal/config"
	"campaignd/internal/domain"
	"campaignd/internal/eventbus"
	"campaignd/internal/storage"
)

const baseYAML = `
logging:
  level: error
  console: false
scheduler:
  enabled: true
  spec: "@every 1h"
  timezone: Europe/Paris
relay:
  broadcast_url: %q
storage:
  driver: memory
`

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func relayOK(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMapRunnerConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Scheduler.Timezone = ""
	rc, err := mapRunnerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", rc.Location.String())
	assert.Equal(t, config.DefaultSchedulerSpec, rc.Spec)

	cfg.Scheduler.Timezone = "Mars/Olympus"
	_, err = mapRunnerConfig(cfg)
	assert.Error(t, err)
}

func TestMapOpsAndDispatchConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Ops = config.OpsConfig{Enabled: true, Addr: " 127.0.0.1:0 ", ReadTimeout: "2s"}
	oc, err := mapOpsConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", oc.Addr)
	assert.Equal(t, 2*time.Second, oc.ReadTimeout)
	assert.Equal(t, time.Duration(0), oc.WriteTimeout)
	assert.Equal(t, time.Minute, oc.IdleTimeout)

	cfg.Relay.EmailTimeout = "soon"
	_, err = mapDispatchConfig(cfg)
	assert.Error(t, err)

	cfg.Relay.EmailTimeout = ""
	dc, err := mapDispatchConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, dc.EmailTimeout)
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "campaignd.yaml")
	writeConfig(t, path, "scheduler:\n  enabled: true\n  spec: \"not a cron\"\nstorage:\n  driver: memory\n")
	_, err := NewApp(Options{ConfigPath: path})
	assert.Error(t, err)
}

func TestAppTickDispatchesThroughStore(t *testing.T) {
	t.Parallel()

	relay := relayOK(t)
	path := filepath.Join(t.TempDir(), "campaignd.yaml")
	writeConfig(t, path, fmt.Sprintf(baseYAML, relay.URL))

	a, err := NewApp(Options{ConfigPath: path, Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer func() {
		stopCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = a.Stop(stopCtx, StopSIGTERM)
	}()

	c := domain.Campaign{
		ID:             "c-1",
		Name:           "Bienvenue",
		Message:        "Bonjour à tous",
		Status:         domain.StatusScheduled,
		Channels:       domain.Channels{Group: true},
		ScheduledDates: []string{"2020-01-01T10:00:00Z"},
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, a.Store().PutCampaign(ctx, c))
	require.NoError(t, a.Runner().Tick(ctx))

	got, err := a.Store().GetCampaign(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, []string{"2020-01-01T10:00:00Z"}, got.SentDates)
	require.Len(t, got.Results, 1)
	assert.True(t, got.Results[0].OK())
	assert.Empty(t, got.Results[0].Error)

	mem, ok := a.Store().(*storage.Memory)
	require.True(t, ok)
	msgs := mem.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Bonjour à tous", msgs[0].Content)
}

func TestAppHotReloadAppliesScheduler(t *testing.T) {
	t.Parallel()

	relay := relayOK(t)
	path := filepath.Join(t.TempDir(), "campaignd.yaml")
	writeConfig(t, path, fmt.Sprintf(baseYAML, relay.URL))

	a, err := NewApp(Options{ConfigPath: path})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, unsub := a.Bus().Subscribe(16)
	defer unsub()
	require.NoError(t, a.Start(ctx))
	defer func() {
		stopCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = a.Stop(stopCtx, StopSIGINT)
	}()
	assert.Equal(t, "raw", a.Runner().Snapshot().Dedup)

	// Give the watcher a moment to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	reloaded := strings.Replace(fmt.Sprintf(baseYAML, relay.URL),
		"  timezone: Europe/Paris\n", "  timezone: Europe/Paris\n  dedup_by_instant: true\n", 1)
	writeConfig(t, path, reloaded)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type != eventbus.TypeConfigReloaded {
				continue
			}
			assert.Contains(t, e.Data, "scheduler")
			assert.Equal(t, "instant", a.Runner().Snapshot().Dedup)
			assert.True(t, a.Config().Scheduler.DedupByInstant)
			return
		case <-deadline:
			t.Fatal("config reload was not applied")
		}
	}
}

func TestStopBeforeStart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "campaignd.yaml")
	writeConfig(t, path, fmt.Sprintf(baseYAML, ""))
	a, err := NewApp(Options{ConfigPath: path})
	require.NoError(t, err)
	assert.NoError(t, a.Stop(context.Background(), StopUnknown))
	assert.NoError(t, a.Err())
	select {
	case <-a.Done():
	default:
		t.Fatal("Done should be closed before Start")
	}
}
