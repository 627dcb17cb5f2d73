package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: debug
  console: true
scheduler:
  enabled: true
  spec: "@every 10s"
  timezone: Europe/Paris
  dispatch_rate_per_sec: 3
relay:
  email_url: http://127.0.0.1:9000/email
  broadcast_url: http://127.0.0.1:9000/broadcast
  email_timeout: 20s
storage:
  driver: memory
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDecodeYAMLAndJSON(t *testing.T) {
	t.Parallel()

	y, err := Decode("c.yaml", []byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "debug", y.Logging.Level)
	assert.Equal(t, "@every 10s", y.Scheduler.Spec)
	assert.Equal(t, 3, y.Scheduler.DispatchRatePerSec)
	assert.Equal(t, "20s", y.Relay.EmailTimeout)

	j, err := Decode("c.json", []byte(`{"storage":{"driver":"sqlite","path":"x.db"},"scheduler":{"timezone":"UTC"}}`))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", j.Storage.Driver)
	assert.Equal(t, "UTC", j.Scheduler.Timezone)
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "unknown json key", path: "c.json", body: `{"telegram":{}}`},
		{name: "unknown yaml key", path: "c.yml", body: "relay:\n  smtp_host: x\n"},
		{name: "trailing data", path: "c.json", body: `{} {}`},
		{name: "bad yaml", path: "c.yaml", body: "a: [1,"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.path, []byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDecodeEmptyYAML(t *testing.T) {
	t.Parallel()
	cfg, err := Decode("c.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Relay.EmailURL = "http://file/email"
	err := applyEnv(cfg, map[string]string{
		"CAMPAIGND_RELAY_BROADCAST_URL":        "http://env/broadcast",
		"CAMPAIGND_STORAGE_DRIVER":             "sqlite",
		"CAMPAIGND_STORAGE_PATH":               "/var/lib/campaignd.db",
		"CAMPAIGND_SCHEDULER_TIMEZONE":         "America/New_York",
		"CAMPAIGND_SCHEDULER_DEDUP_BY_INSTANT": "true",
		"CAMPAIGND_LOG_LEVEL":                  "warn",
		"CAMPAIGND_OPS_TOKEN":                  "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://file/email", cfg.Relay.EmailURL)
	assert.Equal(t, "http://env/broadcast", cfg.Relay.BroadcastURL)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/campaignd.db", cfg.Storage.Path)
	assert.Equal(t, "America/New_York", cfg.Scheduler.Timezone)
	assert.True(t, cfg.Scheduler.DedupByInstant)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "s3cret", cfg.Ops.Token)
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Parallel()
	err := applyEnv(Default(), map[string]string{"CAMPAIGND_SCHEDULER_DISPATCH_RATE_PER_SEC": "fast"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, Validate(Default()))

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "scheduler.timezone"},
		{"spec", func(c *Config) { c.Scheduler.Spec = "every now and then" }, "scheduler.spec"},
		{"rate", func(c *Config) { c.Scheduler.DispatchRatePerSec = -1 }, "dispatch_rate_per_sec"},
		{"driver", func(c *Config) { c.Storage.Driver = "file" }, "storage.driver"},
		{"sqlite path", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.path"},
		{"duration", func(c *Config) { c.Relay.EmailTimeout = "soon" }, "relay.email_timeout"},
		{"negative duration", func(c *Config) { c.Ops.IdleTimeout = "-1s" }, "ops.idle_timeout"},
		{"alert session", func(c *Config) { c.Logging.Alerts.Enabled = true }, "logging.alerts.session_id"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tt.mutate(c)
			err := Validate(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = ParseDurationOrDefault("x", "1500ms", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, err = ParseDurationField("relay.email_timeout", "abc")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "relay.email_timeout:"))
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	a := Default()
	b := Default()
	b.Ops.Token = "secret"
	b.Scheduler.Spec = "@every 1m"

	sections, attrs := SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"ops", "scheduler"}, sections)
	assert.NotEmpty(t, attrs)
	assert.Empty(t, RequiresRestart(sections))

	b.Storage.Path = "x.db"
	sections, _ = SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"storage"}, RequiresRestart(sections))

	sections, _ = SummarizeConfigChange(nil, nil)
	assert.Empty(t, sections)
}

func TestManagerLoadAndWatch(t *testing.T) {
	path := writeFile(t, "campaignd.yaml", sampleYAML)
	m := NewConfigManager(path)
	m.debounce = 20 * time.Millisecond

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, m.Get())

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	updated := strings.Replace(sampleYAML, "level: debug", "level: warn", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case got := <-ch:
		assert.Equal(t, "warn", got.Logging.Level)
		assert.Equal(t, "warn", m.Get().Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("no config published after file change")
	}

	cancel()
	<-done
}

func TestManagerRejectsInvalidReload(t *testing.T) {
	path := writeFile(t, "campaignd.json", `{"storage":{"driver":"memory"}}`)
	m := NewConfigManager(path)
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(1)

	require.NoError(t, os.WriteFile(path, []byte(`{"storage":{"driver":"tape"}}`), 0o644))
	m.reload(context.Background())

	select {
	case <-ch:
		t.Fatal("invalid config must not be published")
	default:
	}
	assert.Equal(t, "memory", m.Get().Storage.Driver)
}

func TestPublishKeepsNewest(t *testing.T) {
	t.Parallel()
	m := NewConfigManager("unused.json")
	ch := m.Subscribe(1)
	first, second := Default(), Default()
	m.publish(first)
	m.publish(second)
	assert.Same(t, second, <-ch)

	m.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}
