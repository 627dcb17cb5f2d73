package config

// Config is the campaignd configuration file (JSON or YAML).
//
// Every field may also be overridden from CAMPAIGND_* environment variables;
// see ApplyEnv.
type Config struct {
	Logging   LoggingConfig   `json:"logging" envPrefix:"LOG_"`
	Scheduler SchedulerConfig `json:"scheduler" envPrefix:"SCHEDULER_"`
	Relay     RelayConfig     `json:"relay" envPrefix:"RELAY_"`
	Coach     CoachConfig     `json:"coach,omitempty" envPrefix:"COACH_"`
	Storage   StorageConfig   `json:"storage" envPrefix:"STORAGE_"`
	Ops       OpsConfig       `json:"ops,omitempty" envPrefix:"OPS_"`
}

type LoggingConfig struct {
	Level   string       `json:"level" env:"LEVEL"`
	Console bool         `json:"console" env:"CONSOLE"`
	File    LoggingFile  `json:"file" envPrefix:"FILE_"`
	Alerts  LoggingAlert `json:"alerts,omitempty" envPrefix:"ALERTS_"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" env:"ENABLED"`
	Path    string `json:"path" env:"PATH"`
}

// LoggingAlert forwards warn+ log lines to an operator session through the
// broadcast relay.
type LoggingAlert struct {
	Enabled    bool   `json:"enabled" env:"ENABLED"`
	SessionID  string `json:"session_id,omitempty" env:"SESSION_ID"`
	MinLevel   string `json:"min_level,omitempty" env:"MIN_LEVEL"`
	RatePerSec int    `json:"rate_per_sec,omitempty" env:"RATE_PER_SEC"`
}

// SchedulerConfig controls the campaign runner.
//
// Defaults (when fields are omitted/zero):
//   - spec: "@every 30s"
//   - timezone: "Europe/Paris"
//   - dispatch_rate_per_sec: 5
type SchedulerConfig struct {
	Enabled bool `json:"enabled" env:"ENABLED"`

	// Spec is a cron expression or descriptor (e.g. "*/1 * * * *", "@every 30s").
	Spec string `json:"spec,omitempty" env:"SPEC"`

	// Timezone is the home zone used to read offset-less campaign dates.
	Timezone string `json:"timezone,omitempty" env:"TIMEZONE"`

	// DedupByInstant treats two sent dates naming the same instant as equal.
	// Off by default: sent dates match by exact text.
	DedupByInstant bool `json:"dedup_by_instant,omitempty" env:"DEDUP_BY_INSTANT"`

	DispatchRatePerSec int `json:"dispatch_rate_per_sec,omitempty" env:"DISPATCH_RATE_PER_SEC"`
}

// RelayConfig points at the internal email and broadcast relays.
//
// Timeouts are Go duration strings; they default to 30s (email) and 10s
// (broadcast).
type RelayConfig struct {
	EmailURL         string `json:"email_url" env:"EMAIL_URL"`
	BroadcastURL     string `json:"broadcast_url" env:"BROADCAST_URL"`
	EmailTimeout     string `json:"email_timeout,omitempty" env:"EMAIL_TIMEOUT"`
	BroadcastTimeout string `json:"broadcast_timeout,omitempty" env:"BROADCAST_TIMEOUT"`
}

// CoachConfig is the sender persona of automated messages.
type CoachConfig struct {
	ID             string `json:"id,omitempty" env:"ID"`
	Name           string `json:"name,omitempty" env:"NAME"`
	CommunityLabel string `json:"community_label,omitempty" env:"COMMUNITY_LABEL"`
	FallbackName   string `json:"fallback_name,omitempty" env:"FALLBACK_NAME"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./campaignd.db" }
type StorageConfig struct {
	Driver      string `json:"driver" env:"DRIVER"`
	Path        string `json:"path" env:"PATH"`
	BusyTimeout string `json:"busy_timeout,omitempty" env:"BUSY_TIMEOUT"` // Go duration string (sqlite)
}

// OpsConfig controls the operator HTTP server (health, status, date preview,
// pprof).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8089").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type OpsConfig struct {
	Enabled       bool   `json:"enabled" env:"ENABLED"`
	Addr          string `json:"addr,omitempty" env:"ADDR"`   // default: "127.0.0.1:8089"
	Token         string `json:"token,omitempty" env:"TOKEN"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty" env:"ALLOW_INSECURE"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /debug/pprof/profile (which can take 30s+) works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty" env:"READ_TIMEOUT"`
	WriteTimeout string `json:"write_timeout,omitempty" env:"WRITE_TIMEOUT"`
	IdleTimeout  string `json:"idle_timeout,omitempty" env:"IDLE_TIMEOUT"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging:   LoggingConfig{Level: "info", Console: true},
		Scheduler: SchedulerConfig{Enabled: true, Spec: DefaultSchedulerSpec, Timezone: DefaultTimezone},
		Storage:   StorageConfig{Driver: "memory"},
	}
}

const (
	DefaultSchedulerSpec = "@every 30s"
	DefaultTimezone      = "Europe/Paris"
	DefaultDispatchRate  = 5
	DefaultOpsAddr       = "127.0.0.1:8089"
)
