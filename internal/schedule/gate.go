package schedule

import (
	"time"

	logx "campaignd/pkg/logx"
)

// DecisionKind classifies a gate decision for operator diagnostics.
type DecisionKind int

const (
	KindInvalid DecisionKind = iota
	KindFire
	KindWaiting
	KindAlreadySent
)

func (k DecisionKind) String() string {
	switch k {
	case KindFire:
		return "fire"
	case KindWaiting:
		return "waiting"
	case KindAlreadySent:
		return "already_sent"
	default:
		return "invalid"
	}
}

// Decision is the result of Gate.Decide. At is zero when Valid is false.
type Decision struct {
	Fire  bool
	Valid bool
	At    time.Time
	Kind  DecisionKind
}

// Gate decides whether a campaign occurrence fires.
type Gate struct {
	norm *Normalizer
	log  logx.Logger
}

func NewGate(norm *Normalizer, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{norm: norm, log: log}
}

func (g *Gate) Normalizer() *Normalizer { return g.norm }

// Decide fires iff raw normalizes to an instant <= now and sent does not
// already hold it. A nil sent set is empty. The logged kind is diagnostic only.
func (g *Gate) Decide(raw string, sent SentSet, now time.Time, label string) Decision {
	at, ok := g.norm.NormalizeFor(raw, label)
	if !ok {
		g.log.Debug("occurrence skipped: invalid date",
			logx.String("campaign", label),
			logx.String("date", raw),
			logx.String("decision", KindInvalid.String()),
		)
		return Decision{Kind: KindInvalid}
	}

	isPast := !at.After(now)
	alreadySent := sent != nil && sent.Has(raw, at)

	d := Decision{Valid: true, At: at, Fire: isPast && !alreadySent}
	switch {
	case d.Fire:
		d.Kind = KindFire
	case !isPast:
		d.Kind = KindWaiting
	default:
		d.Kind = KindAlreadySent
	}

	loc := g.norm.Location()
	g.log.Debug("occurrence evaluated",
		logx.String("decision", d.Kind.String()),
		logx.String("campaign", label),
		logx.String("planned", at.In(loc).Format("15:04")),
		logx.String("now", now.In(loc).Format("15:04:05")),
		logx.String("zone", loc.String()),
	)
	return d
}
