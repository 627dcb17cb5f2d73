package campaign

import "time"

// TickStats counts gate decisions and dispatch outcomes.
type TickStats struct {
	Fired       int `json:"fired"`
	Waiting     int `json:"waiting"`
	AlreadySent int `json:"already_sent"`
	Invalid     int `json:"invalid"`
	Delivered   int `json:"delivered"`
	Failed      int `json:"failed"`
}

func (s *TickStats) add(o TickStats) {
	s.Fired += o.Fired
	s.Waiting += o.Waiting
	s.AlreadySent += o.AlreadySent
	s.Invalid += o.Invalid
	s.Delivered += o.Delivered
	s.Failed += o.Failed
}

// Snapshot is the runner state reported by the ops status endpoint.
type Snapshot struct {
	Enabled   bool      `json:"enabled"`
	Spec      string    `json:"spec"`
	Timezone  string    `json:"timezone"`
	Dedup     string    `json:"dedup"`
	NextTick  time.Time `json:"next_tick,omitempty"`
	LastTick  time.Time `json:"last_tick,omitempty"`
	Ticks     uint64    `json:"ticks"`
	LastStats TickStats `json:"last_stats"`
	Totals    TickStats `json:"totals"`
	LastError string    `json:"last_error,omitempty"`
}

func (r *Runner) noteTick(now time.Time, st TickStats, err error) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.Ticks++
	r.stats.LastTick = now
	r.stats.LastStats = st
	r.stats.Totals.add(st)
	r.stats.LastError = ""
	if err != nil {
		r.stats.LastError = err.Error()
	}
}

func (r *Runner) Snapshot() Snapshot {
	r.statsMu.Lock()
	snap := r.stats
	r.statsMu.Unlock()

	r.mu.Lock()
	snap.Enabled = r.cfg.Enabled
	snap.Spec = r.cfg.Spec
	snap.Timezone = r.cfg.Location.String()
	snap.Dedup = "raw"
	if r.cfg.DedupByInstant {
		snap.Dedup = "instant"
	}
	if r.cron != nil && r.entry != 0 {
		snap.NextTick = r.cron.Entry(r.entry).Next
	}
	r.mu.Unlock()
	return snap
}
