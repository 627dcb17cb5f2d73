package dispatch

import (
	"net/http"
	"time"
)

const (
	DefaultEmailTimeout     = 30 * time.Second
	DefaultBroadcastTimeout = 10 * time.Second

	// PartialBroadcastError is reported by the community adapter when the
	// message was stored but the broadcast relay failed.
	PartialBroadcastError = "Message saved but broadcast failed"
)

// Coach is the persona used as sender of automated messages.
type Coach struct {
	ID             string
	Name           string
	CommunityLabel string
	FallbackName   string
}

// Config wires the adapters.
type Config struct {
	EmailURL         string
	BroadcastURL     string
	EmailTimeout     time.Duration
	BroadcastTimeout time.Duration
	Coach            Coach

	// HTTPClient defaults to a client without a global timeout; each call is
	// bounded by its own timeout.
	HTTPClient *http.Client
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.EmailTimeout <= 0 {
		c.EmailTimeout = DefaultEmailTimeout
	}
	if c.BroadcastTimeout <= 0 {
		c.BroadcastTimeout = DefaultBroadcastTimeout
	}
	if c.Coach.ID == "" {
		c.Coach.ID = "coach"
	}
	if c.Coach.Name == "" {
		c.Coach.Name = "Coach"
	}
	if c.Coach.CommunityLabel == "" {
		c.Coach.CommunityLabel = "la communauté"
	}
	if c.Coach.FallbackName == "" {
		c.Coach.FallbackName = "ami(e)"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
