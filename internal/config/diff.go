package config

import (
	"hash/fnv"
	"sort"
	"strings"

	logx "campaignd/pkg/logx"
)

// hashBytes returns a stable 64-bit hash of b. Empty input returns 0.
func hashBytes(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// SummarizeConfigChange returns the sorted list of changed sections and safe
// structured fields for logging. Tokens and relay URLs are never included;
// only whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.alerts_enabled", newCfg.Logging.Alerts.Enabled),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.spec", strings.TrimSpace(newCfg.Scheduler.Spec)),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.Bool("scheduler.dedup_by_instant", newCfg.Scheduler.DedupByInstant),
			logx.Int("scheduler.dispatch_rate_per_sec", newCfg.Scheduler.DispatchRatePerSec),
		)
	}

	if oldCfg.Relay != newCfg.Relay {
		changed = append(changed, "relay")
		attrs = append(attrs,
			logx.Bool("relay.email_url_set", strings.TrimSpace(newCfg.Relay.EmailURL) != ""),
			logx.Bool("relay.broadcast_url_set", strings.TrimSpace(newCfg.Relay.BroadcastURL) != ""),
			logx.String("relay.email_timeout", strings.TrimSpace(newCfg.Relay.EmailTimeout)),
			logx.String("relay.broadcast_timeout", strings.TrimSpace(newCfg.Relay.BroadcastTimeout)),
		)
	}

	if oldCfg.Coach != newCfg.Coach {
		changed = append(changed, "coach")
		attrs = append(attrs, logx.String("coach.name", newCfg.Coach.Name))
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
		)
	}

	if oldCfg.Ops != newCfg.Ops {
		changed = append(changed, "ops")
		attrs = append(attrs,
			logx.Bool("ops.enabled", newCfg.Ops.Enabled),
			logx.String("ops.addr", strings.TrimSpace(newCfg.Ops.Addr)),
			logx.Bool("ops.token_set", strings.TrimSpace(newCfg.Ops.Token) != ""),
			logx.Bool("ops.allow_insecure", newCfg.Ops.AllowInsecure),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// RequiresRestart reports sections whose change only takes effect after a
// restart (the store is opened once).
func RequiresRestart(sections []string) []string {
	var out []string
	for _, s := range sections {
		if s == "storage" {
			out = append(out, s)
		}
	}
	return out
}
