package schedule

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Tests and the CLI use it.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c).UTC() }

// Times is "now" in UTC and in the home zone.
type Times struct {
	UTC   time.Time
	Local time.Time
}

func (t Times) UTCClock() string   { return t.UTC.Format("15:04:05") }
func (t Times) LocalClock() string { return t.Local.Format("15:04:05") }

// CurrentTimes reads c once and renders it in both zones.
func (n *Normalizer) CurrentTimes(c Clock) Times {
	now := c.Now().UTC()
	return Times{UTC: now, Local: now.In(n.loc)}
}
