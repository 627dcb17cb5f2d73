package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"campaignd/internal/campaign"
	"campaignd/internal/config"
	"campaignd/internal/dispatch"
	"campaignd/internal/eventbus"
	"campaignd/internal/opsapi"
	"campaignd/internal/runtime/supervisor"
	"campaignd/internal/storage"
	logx "campaignd/pkg/logx"
)

// Options configure NewApp.
type Options struct {
	// ConfigPath is a JSON or YAML file. Empty means defaults plus environment,
	// with no hot reload.
	ConfigPath string
	Version    string
}

type App struct {
	opts Options

	cfgm *config.ConfigManager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store  storage.Store
	runner *campaign.Runner
	ops    *opsapi.Server

	mu   sync.Mutex
	cfg  *config.Config
	disp *dispatch.Dispatcher

	sup *supervisor.Supervisor
}

func NewApp(opts Options) (*App, error) {
	cfg, cfgm, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg), nil)
	if cfgm != nil {
		cfgm.SetLogger(log.With(logx.String("comp", "config")))
	}

	stCfg, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	store, err := storage.Open(stCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &App{
		opts:  opts,
		cfgm:  cfgm,
		cfg:   cfg,
		log:   log,
		logs:  logs,
		bus:   eventbus.New(),
		store: store,
	}

	disp, err := a.buildDispatcher(cfg)
	if err != nil {
		a.closeEarly()
		return nil, err
	}
	a.disp = disp

	rcfg, err := mapRunnerConfig(cfg)
	if err != nil {
		a.closeEarly()
		return nil, err
	}
	a.runner = campaign.NewRunner(rcfg, store, campaign.SendersFrom(disp),
		log.With(logx.String("comp", "runner")), campaign.WithBus(a.bus))

	a.ops = opsapi.NewServer(opsapi.Deps{
		Runner:     a.runner,
		Supervisor: a.supervisorSnapshot,
		Version:    opts.Version,
		Started:    time.Now(),
	}, log.With(logx.String("comp", "ops")))

	return a, nil
}

func loadConfig(path string) (*config.Config, *config.ConfigManager, error) {
	if strings.TrimSpace(path) == "" {
		cfg := config.Default()
		if err := config.ApplyEnv(cfg); err != nil {
			return nil, nil, err
		}
		if err := config.Validate(cfg); err != nil {
			return nil, nil, err
		}
		return cfg, nil, nil
	}
	cfgm := config.NewConfigManager(path)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfgm, nil
}

func (a *App) closeEarly() {
	_ = a.store.Close()
	_ = a.logs.Close()
}

// buildDispatcher maps relay and coach settings and points the alert sink at
// the new broadcaster.
func (a *App) buildDispatcher(cfg *config.Config) (*dispatch.Dispatcher, error) {
	dcfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	disp := dispatch.New(dcfg, a.store, a.log)
	if cfg.Logging.Alerts.Enabled {
		a.logs.SetAlertSink(disp.Broadcaster.AlertSink(cfg.Logging.Alerts.SessionID, dcfg.Coach, time.Now))
	} else {
		a.logs.SetAlertSink(nil)
	}
	return disp, nil
}

func (a *App) Logger() logx.Logger { return a.log }
func (a *App) Runner() *campaign.Runner { return a.runner }
func (a *App) Store() storage.Store { return a.store }
func (a *App) Bus() eventbus.Bus { return a.bus }
func (a *App) OpsAddr() string { return a.ops.Addr() }

func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *App) Dispatcher() *dispatch.Dispatcher {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disp
}

func (a *App) supervisorSnapshot() supervisor.Snapshot {
	if a.sup == nil {
		return supervisor.Snapshot{}
	}
	return a.sup.Snapshot()
}

// Done is closed when the supervisor context ends, either from Stop or from a
// fatal goroutine error.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	runCtx := a.sup.Context()

	if err := a.runner.Start(runCtx); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("start runner: %w", err)
	}

	cfg := a.Config()
	opsCfg, err := mapOpsConfig(cfg)
	if err != nil {
		a.sup.Cancel()
		return err
	}
	a.ops.Reconfigure(runCtx, opsCfg)

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.logEvent(e)
			}
		}
	})

	if a.cfgm != nil {
		sub := a.cfgm.Subscribe(8)
		a.sup.Go("config.reload", func(c context.Context) error {
			defer a.cfgm.Unsubscribe(sub)
			for {
				select {
				case <-c.Done():
					return nil
				case newCfg, ok := <-sub:
					if !ok {
						return nil
					}
					a.applyConfig(c, newCfg)
				}
			}
		})
		a.sup.Go("config.watch", func(c context.Context) error {
			return a.cfgm.Watch(c)
		})
	}

	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		return watchdog(c, a.log)
	})
	sdNotify(a.log, daemon.SdNotifyReady)

	a.log.Info("app started",
		logx.String("version", a.opts.Version),
		logx.String("storage", cfg.Storage.Driver),
		logx.Bool("scheduler", cfg.Scheduler.Enabled),
	)
	return nil
}

// applyConfig fans a committed config out to each component. A section that
// fails to map keeps its previous settings.
func (a *App) applyConfig(ctx context.Context, newCfg *config.Config) {
	if newCfg == nil {
		return
	}
	oldCfg := a.Config()
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	a.mu.Lock()
	a.cfg = newCfg
	a.mu.Unlock()

	a.logs.Apply(mapLogConfig(newCfg))

	if oldCfg.Relay != newCfg.Relay || oldCfg.Coach != newCfg.Coach || oldCfg.Logging.Alerts != newCfg.Logging.Alerts {
		disp, err := a.buildDispatcher(newCfg)
		if err != nil {
			a.log.Warn("invalid relay config; keeping previous", logx.Err(err))
		} else {
			a.mu.Lock()
			a.disp = disp
			a.mu.Unlock()
			a.runner.SetSenders(campaign.SendersFrom(disp))
		}
	}

	if rcfg, err := mapRunnerConfig(newCfg); err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
	} else if err := a.runner.Apply(ctx, rcfg); err != nil {
		a.log.Warn("scheduler reconfigure failed", logx.Err(err))
	}

	if ocfg, err := mapOpsConfig(newCfg); err != nil {
		a.log.Warn("invalid ops config; keeping previous", logx.Err(err))
	} else {
		a.ops.Reconfigure(ctx, ocfg)
	}

	if restart := config.RequiresRestart(sections); len(restart) > 0 {
		a.log.Warn("config change needs a restart to take effect", logx.String("sections", strings.Join(restart, ",")))
	}

	a.bus.Publish(eventbus.Event{
		Type: eventbus.TypeConfigReloaded,
		Time: time.Now(),
		Data: sections,
	})
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) logEvent(e eventbus.Event) {
	switch d := e.Data.(type) {
	case eventbus.OccurrenceData:
		a.log.Debug("event",
			logx.String("type", e.Type),
			logx.String("campaign_id", d.CampaignID),
			logx.String("date", d.Raw),
			logx.Int("sent", d.Sent),
			logx.Int("failed", d.Failed),
		)
	default:
		a.log.Debug("event", logx.String("type", e.Type))
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	a.sup.Cancel()

	// step runs fn bounded by max, never past the caller's deadline.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if dl, ok := ctx.Deadline(); ok {
			max = min(max, time.Until(dl))
		}
		if max > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			took := time.Since(start)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
				return
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Err(stepCtx.Err()))
		}
	}

	step("runner", 5*time.Second, a.runner.Stop)
	step("ops", 2*time.Second, func(c context.Context) error { a.ops.Stop(c); return nil })
	step("supervisor", 2*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped", logx.String("reason", string(reason)))
	_ = a.logs.Close()
	return nil
}
