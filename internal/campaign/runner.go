package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"campaignd/internal/domain"
	"campaignd/internal/eventbus"
	"campaignd/internal/schedule"
	"campaignd/internal/storage"
	logx "campaignd/pkg/logx"
)

const (
	DefaultSpec         = "@every 30s"
	DefaultDispatchRate = 5
)

// Config controls the runner. Location is the home zone: it reads
// offset-less campaign dates and evaluates cron specs.
type Config struct {
	Enabled            bool
	Spec               string
	Location           *time.Location
	DedupByInstant     bool
	DispatchRatePerSec int
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Spec) == "" {
		c.Spec = DefaultSpec
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.DispatchRatePerSec <= 0 {
		c.DispatchRatePerSec = DefaultDispatchRate
	}
	return c
}

// Runner evaluates active campaigns on a cron schedule.
type Runner struct {
	store storage.Store
	bus   eventbus.Bus
	clock schedule.Clock
	log   logx.Logger

	// tickMu serializes Tick so manual and scheduled ticks never overlap.
	tickMu sync.Mutex

	mu      sync.Mutex
	cfg     Config
	gate    *schedule.Gate
	senders Senders
	limiter *rate.Limiter
	cron    *cron.Cron
	entry   cron.EntryID
	started bool

	statsMu sync.Mutex
	stats   Snapshot
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock replaces the system clock.
func WithClock(c schedule.Clock) Option { return func(r *Runner) { r.clock = c } }

// WithBus publishes runner events on b.
func WithBus(b eventbus.Bus) Option { return func(r *Runner) { r.bus = b } }

func NewRunner(cfg Config, st storage.Store, senders Senders, log logx.Logger, opts ...Option) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	r := &Runner{
		store:   st,
		clock:   schedule.SystemClock{},
		log:     log,
		cfg:     cfg,
		senders: senders,
		limiter: rate.NewLimiter(rate.Limit(cfg.DispatchRatePerSec), cfg.DispatchRatePerSec),
	}
	r.gate = r.newGate(cfg.Location)
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) newGate(loc *time.Location) *schedule.Gate {
	gl := r.log.With(logx.String("comp", "gate"))
	return schedule.NewGate(schedule.NewNormalizer(loc, gl), gl)
}

// Gate returns the gate currently used by ticks.
func (r *Runner) Gate() *schedule.Gate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gate
}

// SetSenders swaps the channel adapters, e.g. after a relay config reload.
func (r *Runner) SetSenders(s Senders) {
	r.mu.Lock()
	r.senders = s
	r.mu.Unlock()
}

// Start registers the tick on a cron scheduler in the home zone. A tick that
// is still running when the next one is due is skipped.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.started = true
	return r.startLocked(ctx)
}

func (r *Runner) startLocked(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("runner disabled")
		return nil
	}
	cl := cronLogger{log: r.log.With(logx.String("comp", "cron"))}
	c := cron.New(
		cron.WithLocation(r.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(r.cfg.Spec, func() {
		if err := r.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("tick failed", logx.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("runner spec %q: %w", r.cfg.Spec, err)
	}
	r.cron, r.entry = c, id
	c.Start()
	r.log.Info("runner started",
		logx.String("spec", r.cfg.Spec),
		logx.String("tz", r.cfg.Location.String()),
		logx.Int("dispatch_rate_per_sec", r.cfg.DispatchRatePerSec),
	)
	return nil
}

// Stop halts the schedule and waits for a running tick, bounded by ctx.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron, r.entry, r.started = nil, 0, false
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		r.log.Info("runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply swaps the runner config. Spec, zone or enabled changes restart the
// schedule.
func (r *Runner) Apply(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.cfg
	r.cfg = cfg
	if cfg.DispatchRatePerSec != old.DispatchRatePerSec {
		r.limiter.SetLimit(rate.Limit(cfg.DispatchRatePerSec))
		r.limiter.SetBurst(cfg.DispatchRatePerSec)
	}
	zoneChanged := cfg.Location.String() != old.Location.String()
	if zoneChanged {
		r.gate = r.newGate(cfg.Location)
	}
	if !zoneChanged && cfg.Spec == old.Spec && cfg.Enabled == old.Enabled {
		return nil
	}
	if !r.started {
		return nil
	}
	// A tick already in flight finishes on its own; tickMu keeps it from
	// overlapping the first tick of the new schedule.
	if r.cron != nil {
		r.cron.Stop()
		r.cron, r.entry = nil, 0
	}
	return r.startLocked(ctx)
}

// Tick evaluates every active campaign once against a single reading of the
// clock.
func (r *Runner) Tick(ctx context.Context) error {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.mu.Lock()
	cfg, gate, senders := r.cfg, r.gate, r.senders
	r.mu.Unlock()

	times := gate.Normalizer().CurrentTimes(r.clock)
	now := times.UTC
	r.log.Debug("tick", logx.String("utc", times.UTCClock()), logx.String("local", times.LocalClock()))

	campaigns, err := r.store.ListActiveCampaigns(ctx)
	if err != nil {
		r.noteTick(now, TickStats{}, err)
		r.publish(eventbus.TypeTickFailed, now, err.Error())
		return fmt.Errorf("list campaigns: %w", err)
	}

	var total TickStats
	var errs []error
	for _, c := range campaigns {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		st, err := r.runCampaign(ctx, cfg, gate, senders, c, now)
		total.add(st)
		if err != nil {
			errs = append(errs, fmt.Errorf("campaign %s: %w", c.ID, err))
		}
	}
	err = errors.Join(errs...)
	r.noteTick(now, total, err)
	return err
}

// occurrences returns the raw dates to evaluate. A campaign without scheduled
// dates is sent once, keyed by its creation time.
func occurrences(c domain.Campaign) []string {
	if len(c.ScheduledDates) > 0 {
		return c.ScheduledDates
	}
	if c.Status == domain.StatusScheduled && !c.CreatedAt.IsZero() {
		return []string{sendNowKey(c)}
	}
	return nil
}

func sendNowKey(c domain.Campaign) string {
	return c.CreatedAt.UTC().Format(time.RFC3339)
}

type sentSet interface {
	schedule.SentSet
	add(raw string, at time.Time)
}

type rawSent struct{ schedule.RawSet }

func (s rawSent) add(raw string, _ time.Time) { s.Add(raw) }

type instantSent struct{ *schedule.InstantSet }

func (s instantSent) add(raw string, at time.Time) { s.Add(raw, at) }

func newSentSet(cfg Config, n *schedule.Normalizer, dates []string) sentSet {
	if cfg.DedupByInstant {
		return instantSent{schedule.NewInstantSet(n, dates...)}
	}
	return rawSent{schedule.NewRawSet(dates...)}
}

func (r *Runner) runCampaign(ctx context.Context, cfg Config, gate *schedule.Gate, senders Senders, c domain.Campaign, now time.Time) (TickStats, error) {
	var st TickStats
	dates := occurrences(c)
	sent := newSentSet(cfg, gate.Normalizer(), c.SentDates)

	for _, raw := range dates {
		d := gate.Decide(raw, sent, now, c.Name)
		switch d.Kind {
		case schedule.KindInvalid:
			st.Invalid++
			continue
		case schedule.KindWaiting:
			st.Waiting++
			continue
		case schedule.KindAlreadySent:
			st.AlreadySent++
			continue
		}

		st.Fired++
		r.log.Info("occurrence due",
			logx.String("campaign_id", c.ID),
			logx.String("campaign", c.Name),
			logx.String("date", raw),
			logx.Time("at", d.At),
		)
		r.publish(eventbus.TypeOccurrenceFired, now, eventbus.OccurrenceData{CampaignID: c.ID, Raw: raw, At: d.At})

		results, dispatchErr := r.dispatch(ctx, senders, c)
		sent.add(raw, d.At)

		status := domain.StatusSending
		if allSent(gate.Normalizer(), dates, sent) {
			status = domain.StatusCompleted
		}
		// Record even when ctx ended mid-dispatch so delivered sends are not repeated.
		if err := r.store.RecordOccurrence(context.WithoutCancel(ctx), c.ID, raw, results, status); err != nil {
			return st, fmt.Errorf("record %q: %w", raw, err)
		}

		data := eventbus.OccurrenceData{CampaignID: c.ID, Raw: raw, At: d.At}
		for _, o := range results {
			if o.OK() {
				data.Sent++
			} else {
				data.Failed++
			}
		}
		st.Delivered += data.Sent
		st.Failed += data.Failed
		r.publish(eventbus.TypeOccurrenceRecorded, now, data)
		r.log.Info("occurrence recorded",
			logx.String("campaign_id", c.ID),
			logx.String("date", raw),
			logx.Int("sent", data.Sent),
			logx.Int("failed", data.Failed),
			logx.String("status", string(status)),
		)
		if status == domain.StatusCompleted {
			r.publish(eventbus.TypeCampaignCompleted, now, c.ID)
		}
		if dispatchErr != nil {
			return st, dispatchErr
		}
	}
	return st, nil
}

// allSent reports whether every valid date is in sent. Invalid dates can
// never fire and do not hold a campaign open.
func allSent(n *schedule.Normalizer, dates []string, sent schedule.SentSet) bool {
	for _, d := range dates {
		at, ok := n.Normalize(d)
		if ok && !sent.Has(d, at) {
			return false
		}
	}
	return true
}

// dispatch sends one occurrence on every enabled channel. Each send waits on
// the dispatch limiter; when ctx ends the outcomes gathered so far are
// returned with the error so they are still recorded.
func (r *Runner) dispatch(ctx context.Context, senders Senders, c domain.Campaign) ([]domain.Outcome, error) {
	var out []domain.Outcome
	wait := func() error { return r.limiter.Wait(ctx) }

	if c.Channels.Email && senders.Email != nil {
		subject := c.Subject
		if strings.TrimSpace(subject) == "" {
			subject = c.Name
		}
		for _, ct := range c.Contacts {
			if strings.TrimSpace(ct.Email) == "" {
				continue
			}
			if err := wait(); err != nil {
				return out, err
			}
			out = append(out, senders.Email.Send(ctx, dispatchEmail(c, ct, subject)))
		}
	}
	if c.Channels.Internal && senders.Conversation != nil {
		for _, id := range c.ConversationIDs {
			if err := wait(); err != nil {
				return out, err
			}
			out = append(out, senders.Conversation.Send(ctx, dispatchConversation(c, id)))
		}
	}
	if c.Channels.Group && senders.Community != nil {
		if err := wait(); err != nil {
			return out, err
		}
		out = append(out, senders.Community.Send(ctx, dispatchCommunity(c)))
	}
	return out, nil
}

func (r *Runner) publish(typ string, at time.Time, data any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{Type: typ, Time: at, Data: data})
}
