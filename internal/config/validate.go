package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks cfg for values the runtime cannot use. It is the default
// validator of ConfigManager.Watch.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	if spec := strings.TrimSpace(cfg.Scheduler.Spec); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.spec: %w", err))
		}
	}
	if cfg.Scheduler.DispatchRatePerSec < 0 {
		errs = append(errs, errors.New("scheduler.dispatch_rate_per_sec: must be >= 0"))
	}

	switch d := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); d {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path: required for sqlite"))
		}
	case "":
		errs = append(errs, errors.New("storage.driver: required"))
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", d))
	}

	durations := []struct{ path, raw string }{
		{"relay.email_timeout", cfg.Relay.EmailTimeout},
		{"relay.broadcast_timeout", cfg.Relay.BroadcastTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"ops.read_timeout", cfg.Ops.ReadTimeout},
		{"ops.write_timeout", cfg.Ops.WriteTimeout},
		{"ops.idle_timeout", cfg.Ops.IdleTimeout},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.Logging.Alerts.Enabled && strings.TrimSpace(cfg.Logging.Alerts.SessionID) == "" {
		errs = append(errs, errors.New("logging.alerts.session_id: required when alerts are enabled"))
	}
	return errors.Join(errs...)
}
