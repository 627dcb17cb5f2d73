package app

import (
	"strings"
	"time"

	"campaignd/internal/campaign"
	"campaignd/internal/config"
	"campaignd/internal/dispatch"
	"campaignd/internal/opsapi"
	"campaignd/internal/schedule"
	"campaignd/internal/storage"
	logx "campaignd/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Alerts: logx.AlertConfig{
			Enabled:    cfg.Logging.Alerts.Enabled,
			MinLevel:   cfg.Logging.Alerts.MinLevel,
			RatePerSec: cfg.Logging.Alerts.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: busy,
	}, nil
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	emailTimeout, err := config.ParseDurationOrDefault("relay.email_timeout", cfg.Relay.EmailTimeout, dispatch.DefaultEmailTimeout)
	if err != nil {
		return dispatch.Config{}, err
	}
	broadcastTimeout, err := config.ParseDurationOrDefault("relay.broadcast_timeout", cfg.Relay.BroadcastTimeout, dispatch.DefaultBroadcastTimeout)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		EmailURL:         strings.TrimSpace(cfg.Relay.EmailURL),
		BroadcastURL:     strings.TrimSpace(cfg.Relay.BroadcastURL),
		EmailTimeout:     emailTimeout,
		BroadcastTimeout: broadcastTimeout,
		Coach: dispatch.Coach{
			ID:             cfg.Coach.ID,
			Name:           cfg.Coach.Name,
			CommunityLabel: cfg.Coach.CommunityLabel,
			FallbackName:   cfg.Coach.FallbackName,
		},
	}, nil
}

func mapRunnerConfig(cfg *config.Config) (campaign.Config, error) {
	tz := strings.TrimSpace(cfg.Scheduler.Timezone)
	if tz == "" {
		tz = config.DefaultTimezone
	}
	loc, err := schedule.LoadLocation(tz)
	if err != nil {
		return campaign.Config{}, err
	}
	return campaign.Config{
		Enabled:            cfg.Scheduler.Enabled,
		Spec:               strings.TrimSpace(cfg.Scheduler.Spec),
		Location:           loc,
		DedupByInstant:     cfg.Scheduler.DedupByInstant,
		DispatchRatePerSec: cfg.Scheduler.DispatchRatePerSec,
	}, nil
}

func mapOpsConfig(cfg *config.Config) (opsapi.Config, error) {
	read, err := config.ParseDurationOrDefault("ops.read_timeout", cfg.Ops.ReadTimeout, 10*time.Second)
	if err != nil {
		return opsapi.Config{}, err
	}
	write, err := config.ParseDurationField("ops.write_timeout", cfg.Ops.WriteTimeout)
	if err != nil {
		return opsapi.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("ops.idle_timeout", cfg.Ops.IdleTimeout, time.Minute)
	if err != nil {
		return opsapi.Config{}, err
	}
	return opsapi.Config{
		Enabled:       cfg.Ops.Enabled,
		Addr:          strings.TrimSpace(cfg.Ops.Addr),
		Token:         strings.TrimSpace(cfg.Ops.Token),
		AllowInsecure: cfg.Ops.AllowInsecure,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   idle,
	}, nil
}
