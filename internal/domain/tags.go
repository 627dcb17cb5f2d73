package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTag = errors.New("unknown tag")

// Channel is the delivery path of a dispatch.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelInternal Channel = "internal"
	ChannelGroup    Channel = "group"
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelEmail, ChannelInternal, ChannelGroup:
		return c, nil
	}
	return "", fmt.Errorf("channel %q: %w", s, ErrUnknownTag)
}

// Mode tags a conversation session.
type Mode string

const (
	ModeUser  Mode = "user"
	ModeAI    Mode = "ai"
	ModeHuman Mode = "human"

	ModeCommunity Mode = "community"
	ModeVIP       Mode = "vip"
	ModePromo     Mode = "promo"
)

// GroupTags is the fixed set of modes whose sessions may be created on first
// reference.
var GroupTags = []Mode{ModeCommunity, ModeVIP, ModePromo}

var groupTitles = map[Mode]string{
	ModeCommunity: "Communauté",
	ModeVIP:       "Groupe VIP",
	ModePromo:     "Promotions",
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeUser, ModeAI, ModeHuman, ModeCommunity, ModeVIP, ModePromo:
		return m, nil
	}
	return "", fmt.Errorf("mode %q: %w", s, ErrUnknownTag)
}

// IsGroupTag reports whether s is exactly one of GroupTags.
func IsGroupTag(s string) (Mode, bool) {
	for _, m := range GroupTags {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// GroupTitle is the display title for a lazily created group session.
func GroupTitle(m Mode) string {
	if t, ok := groupTitles[m]; ok {
		return t
	}
	return "Groupe " + string(m)
}

// CTAType is the call-to-action kind attached to a coach message.
type CTAType string

const (
	CTABook   CTAType = "reserver"
	CTAOffer  CTAType = "offre"
	CTACustom CTAType = "personnalise"
)

func ParseCTAType(s string) (CTAType, error) {
	switch c := CTAType(strings.ToLower(strings.TrimSpace(s))); c {
	case CTABook, CTAOffer, CTACustom:
		return c, nil
	}
	return "", fmt.Errorf("cta type %q: %w", s, ErrUnknownTag)
}

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusScheduled CampaignStatus = "scheduled"
	StatusSending   CampaignStatus = "sending"
	StatusCompleted CampaignStatus = "completed"
	StatusPaused    CampaignStatus = "paused"
)

func ParseCampaignStatus(s string) (CampaignStatus, error) {
	switch c := CampaignStatus(strings.ToLower(strings.TrimSpace(s))); c {
	case StatusDraft, StatusScheduled, StatusSending, StatusCompleted, StatusPaused:
		return c, nil
	}
	return "", fmt.Errorf("campaign status %q: %w", s, ErrUnknownTag)
}

// Active reports whether the runner should evaluate campaigns in this state.
func (s CampaignStatus) Active() bool {
	return s == StatusScheduled || s == StatusSending
}

// DeliveryStatus is the result of one dispatch attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// BroadcastStatus reports the real-time fan-out step separately from the store
// write.
type BroadcastStatus string

const (
	BroadcastSkipped BroadcastStatus = ""
	BroadcastOK      BroadcastStatus = "ok"
	BroadcastFailed  BroadcastStatus = "failed"
)
