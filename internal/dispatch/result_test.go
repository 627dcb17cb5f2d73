package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignd/internal/domain"
)

func TestFormatResultSuccessDropsError(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 2, 6, 13, 30, 0, 0, time.UTC)
	out := FormatResult("u-1", "Awa", domain.ChannelEmail, true, "ignored", "", at)
	assert.Equal(t, domain.DeliverySent, out.Status)
	assert.Empty(t, out.Error)
	assert.Equal(t, "2026-02-06T13:30:00Z", out.SentAt)
	assert.True(t, out.OK())
}

func TestFormatResultFailureKeepsError(t *testing.T) {
	t.Parallel()
	out := FormatResult("u-1", "Awa", domain.ChannelInternal, false, "boom", "s-1", time.Time{})
	assert.Equal(t, domain.DeliveryFailed, out.Status)
	assert.Equal(t, "boom", out.Error)
	assert.Equal(t, "s-1", out.SessionID)

	sentAt, err := time.Parse(time.RFC3339Nano, out.SentAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), sentAt, 5*time.Second)
	assert.Equal(t, time.UTC, sentAt.Location())
}

func TestFormatResultDistinguishesRecipientAndChannel(t *testing.T) {
	t.Parallel()
	at := time.Now()
	a := FormatResult("u-1", "Awa", domain.ChannelEmail, true, "", "", at)
	b := FormatResult("u-1", "Awa", domain.ChannelInternal, true, "", "", at)
	c := FormatResult("u-2", "Awa", domain.ChannelEmail, true, "", "", at)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestValidateLink(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"example.com", "https://example.com", true},
		{"  example.com/path ", "https://example.com/path", true},
		{"http://x", "http://x", true},
		{"https://x", "https://x", true},
		{"#anchor", "#anchor", true},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := ValidateLink(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestPersonalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Salut Awa !", Personalize("Salut {prénom} !", "Awa", "ami(e)"))
	assert.Equal(t, "Salut ami(e) !", Personalize("Salut {prenom} !", "  ", "ami(e)"))
	assert.Equal(t, "Hi Awa, Awa", Personalize("Hi {name}, {prénom}", "Awa", "friend"))
	assert.Equal(t, "no placeholder", Personalize("no placeholder", "Awa", "friend"))
}
