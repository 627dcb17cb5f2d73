package schedule

import "time"

// SentSet records fulfilled occurrences of one campaign.
type SentSet interface {
	// Has reports whether the occurrence spelled raw (normalized to at) was
	// already dispatched.
	Has(raw string, at time.Time) bool
}

// RawSet keys occurrences by exact raw string. Two spellings of the same
// instant are different occurrences.
type RawSet map[string]struct{}

func NewRawSet(dates ...string) RawSet {
	s := make(RawSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

func (s RawSet) Add(raw string) { s[raw] = struct{}{} }

func (s RawSet) Has(raw string, _ time.Time) bool {
	_, ok := s[raw]
	return ok
}

// InstantSet matches by raw string or by normalized instant, so reformatted
// spellings of a sent occurrence are not dispatched twice.
type InstantSet struct {
	raw RawSet
	at  map[int64]struct{}
}

// NewInstantSet normalizes dates with n. Unparseable entries still match by
// raw string.
func NewInstantSet(n *Normalizer, dates ...string) *InstantSet {
	s := &InstantSet{raw: NewRawSet(dates...), at: make(map[int64]struct{}, len(dates))}
	for _, d := range dates {
		if t, ok := n.Normalize(d); ok {
			s.at[t.UnixNano()] = struct{}{}
		}
	}
	return s
}

func (s *InstantSet) Add(raw string, at time.Time) {
	s.raw.Add(raw)
	if !at.IsZero() {
		s.at[at.UnixNano()] = struct{}{}
	}
}

func (s *InstantSet) Has(raw string, at time.Time) bool {
	if s.raw.Has(raw, at) {
		return true
	}
	if at.IsZero() {
		return false
	}
	_, ok := s.at[at.UnixNano()]
	return ok
}
