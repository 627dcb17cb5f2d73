package schedule

import (
	"bytes"
	"strings"
	"testing"
	"time"

	logx "campaignd/pkg/logx"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", name, err)
	}
	return loc
}

func utc(y int, mo time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, mo, d, h, mi, s, 0, time.UTC)
}

func TestNormalizeShapes(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(mustLoc(t, "Europe/Paris"), logx.Nop())

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "utc marker", raw: "2026-02-06T14:30:00Z", want: utc(2026, 2, 6, 14, 30, 0)},
		{name: "utc marker millis", raw: "2026-02-06T14:30:00.000Z", want: utc(2026, 2, 6, 14, 30, 0)},
		{name: "positive offset", raw: "2026-02-06T14:30:00+01:00", want: utc(2026, 2, 6, 13, 30, 0)},
		{name: "negative offset", raw: "2026-02-06T14:30:00-05:00", want: utc(2026, 2, 6, 19, 30, 0)},
		{name: "offset without seconds", raw: "2026-02-06T14:30+02:00", want: utc(2026, 2, 6, 12, 30, 0)},
		{name: "paris winter", raw: "2026-02-06T14:30:00", want: utc(2026, 2, 6, 13, 30, 0)},
		{name: "paris summer", raw: "2026-07-06T14:30:00", want: utc(2026, 7, 6, 12, 30, 0)},
		{name: "paris minutes only", raw: "2026-02-06T14:30", want: utc(2026, 2, 6, 13, 30, 0)},
		{name: "space separator", raw: "2026-02-06 14:30:00", want: utc(2026, 2, 6, 13, 30, 0)},
		{name: "date only", raw: "2026-02-06", want: utc(2026, 2, 5, 23, 0, 0)},
		{name: "surrounding space", raw: "  2026-02-06T14:30:00  ", want: utc(2026, 2, 6, 13, 30, 0)},
		{name: "fall back ambiguous takes standard", raw: "2026-10-25T02:30:00", want: utc(2026, 10, 25, 1, 30, 0)},
		{name: "spring forward gap takes standard", raw: "2026-03-29T02:30:00", want: utc(2026, 3, 29, 1, 30, 0)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.Normalize(tt.raw)
			if !ok {
				t.Fatalf("Normalize(%q) not ok", tt.raw)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Normalize(%q) = %s, want %s", tt.raw, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("Normalize(%q) location = %s, want UTC", tt.raw, got.Location())
			}
		})
	}
}

func TestNormalizeInvalid(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(mustLoc(t, "Europe/Paris"), logx.Nop())
	for _, raw := range []string{"", "   ", "not-a-date", "2026-02-30T10:00:00", "2026-13-01", "14:30", "2026-02-06T25:00:00"} {
		if got, ok := n.Normalize(raw); ok {
			t.Fatalf("Normalize(%q) = %s, want not ok", raw, got)
		}
	}
}

func TestNormalizeLogsOnlyMalformed(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	n := NewNormalizer(mustLoc(t, "Europe/Paris"), logx.NewWriter(&buf, "debug"))

	n.NormalizeFor("", "promo-ete")
	if buf.Len() != 0 {
		t.Fatalf("empty input logged: %s", buf.String())
	}
	n.NormalizeFor("not-a-date", "promo-ete")
	out := buf.String()
	if !strings.Contains(out, "not-a-date") || !strings.Contains(out, "promo-ete") {
		t.Fatalf("diagnostic missing date or campaign: %s", out)
	}
}

func TestNormalizeAnnotatedIndependentOfHomeZone(t *testing.T) {
	t.Parallel()
	paris := NewNormalizer(mustLoc(t, "Europe/Paris"), logx.Nop())
	tokyo := NewNormalizer(mustLoc(t, "Asia/Tokyo"), logx.Nop())
	for _, raw := range []string{"2026-02-06T14:30:00Z", "2026-02-06T14:30:00+01:00", "2026-07-01T08:00:00-04:00"} {
		a, okA := paris.Normalize(raw)
		b, okB := tokyo.Normalize(raw)
		if !okA || !okB || !a.Equal(b) {
			t.Fatalf("Normalize(%q) differs across home zones: %s vs %s", raw, a, b)
		}
	}
}

func TestNormalizeAlternateHomeZone(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(mustLoc(t, "America/New_York"), logx.Nop())
	got, ok := n.Normalize("2026-02-06T14:30:00")
	if !ok || !got.Equal(utc(2026, 2, 6, 19, 30, 0)) {
		t.Fatalf("Normalize() = %s, %v", got, ok)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(mustLoc(t, "Europe/Paris"), logx.Nop())
	a, _ := n.Normalize("2026-02-06T14:30:00")
	b, _ := n.Normalize("2026-02-06T14:30:00+01:00")
	if !a.Equal(b) {
		t.Fatalf("same wall clock and offset normalized differently: %s vs %s", a, b)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want shape
	}{
		{"2026-02-06T14:30:00Z", shapeUTC},
		{"2026-02-06T14:30:00+01:00", shapeOffset},
		{"2026-02-06T14:30:00-05:00", shapeOffset},
		{"2026-02-06T14:30:00", shapeLocal},
		{"2026-02-06T14:30", shapeLocal},
		{"2026-02-06", shapeLocal},
	}
	for _, tt := range tests {
		if got := classify(tt.raw); got != tt.want {
			t.Fatalf("classify(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
