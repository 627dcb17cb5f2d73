package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host

	logx "campaignd/pkg/logx"
)

// DefaultTimezone is the home zone used when none is configured.
const DefaultTimezone = "Europe/Paris"

var ErrEmptyDate = errors.New("empty date")

// shape classifies the zone annotation of a raw date string.
type shape int

const (
	shapeUTC shape = iota
	shapeOffset
	shapeLocal
)

func (s shape) String() string {
	switch s {
	case shapeUTC:
		return "utc"
	case shapeOffset:
		return "offset"
	default:
		return "local"
	}
}

var (
	wallLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02T15",
		"2006-01-02 15",
		"2006-01-02",
	}
	offsetLayouts = []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04Z07:00",
		"2006-01-02T15Z07:00",
	}
)

// Normalizer converts raw date strings into UTC instants.
// It is safe for concurrent use.
type Normalizer struct {
	loc *time.Location
	log logx.Logger
}

// LoadLocation resolves an IANA zone name; empty means DefaultTimezone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// NewNormalizer returns a Normalizer interpreting unannotated strings in home.
// A nil home falls back to UTC.
func NewNormalizer(home *time.Location, log logx.Logger) *Normalizer {
	if home == nil {
		home = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Normalizer{loc: home, log: log}
}

// Location returns the home zone.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Normalize returns the UTC instant denoted by raw. ok is false for empty or
// malformed input.
func (n *Normalizer) Normalize(raw string) (time.Time, bool) {
	return n.NormalizeFor(raw, "")
}

// NormalizeFor is Normalize with a campaign label attached to the diagnostic
// logged on parse failure.
func (n *Normalizer) NormalizeFor(raw, label string) (time.Time, bool) {
	t, err := n.Parse(raw)
	if err != nil {
		if !errors.Is(err, ErrEmptyDate) {
			n.log.Warn("date parsing error",
				logx.String("date", raw),
				logx.String("campaign", label),
				logx.Err(err),
			)
		}
		return time.Time{}, false
	}
	return t, true
}

// Parse is the error-returning form of Normalize.
func (n *Normalizer) Parse(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	switch classify(s) {
	case shapeUTC:
		t, err := parseLayouts(strings.ReplaceAll(s, "Z", "+00:00"), offsetLayouts)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	case shapeOffset:
		t, err := parseLayouts(s, offsetLayouts)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	default:
		w, err := parseLayouts(s, wallLayouts)
		if err != nil {
			return time.Time{}, err
		}
		return resolveWall(w, n.loc).UTC(), nil
	}
}

// classify applies the zone-annotation rules in priority order: a literal Z
// marker, then a numeric offset in the trailing six characters, else local.
func classify(s string) shape {
	if strings.Contains(s, "Z") {
		return shapeUTC
	}
	tail := s
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	if strings.ContainsAny(tail, "+-") && strings.Contains(tail, ":") {
		return shapeOffset
	}
	return shapeLocal
}

func parseLayouts(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// resolveWall maps the wall-clock fields of w (read as UTC) to an instant in
// loc. Ambiguous times (fall-back) take the standard-time offset; times in a
// spring-forward gap are read with the standard-time offset too.
func resolveWall(w time.Time, loc *time.Location) time.Time {
	y, mo, d := w.Date()
	h, mi, sec := w.Clock()
	naive := time.Date(y, mo, d, h, mi, sec, w.Nanosecond(), time.UTC)

	probes := []time.Time{naive.Add(-24 * time.Hour), naive, naive.Add(24 * time.Hour)}
	seen := map[int]bool{}
	var valid []time.Time
	stdOffset, haveStd := 0, false
	for _, p := range probes {
		lp := p.In(loc)
		_, off := lp.Zone()
		if !lp.IsDST() && !haveStd {
			stdOffset, haveStd = off, true
		}
		if seen[off] {
			continue
		}
		seen[off] = true
		cand := naive.Add(-time.Duration(off) * time.Second)
		if _, got := cand.In(loc).Zone(); got == off {
			valid = append(valid, cand)
		}
	}

	switch {
	case len(valid) == 1:
		return valid[0]
	case len(valid) > 1:
		for _, c := range valid {
			if !c.In(loc).IsDST() {
				return c
			}
		}
		return valid[len(valid)-1]
	case haveStd:
		return naive.Add(-time.Duration(stdOffset) * time.Second)
	default:
		return time.Date(y, mo, d, h, mi, sec, w.Nanosecond(), loc)
	}
}
