package dispatch

import (
	"context"
	"fmt"
	"time"

	"campaignd/internal/domain"
	logx "campaignd/pkg/logx"
)

// BroadcastMessage is the message object of a broadcast relay payload.
type BroadcastMessage struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Text       string `json:"text"`
	Sender     string `json:"sender"`
	SenderID   string `json:"senderId"`
	SenderType string `json:"sender_type"`
	Scheduled  bool   `json:"scheduled,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	CTAType    string `json:"cta_type,omitempty"`
	CTAText    string `json:"cta_text,omitempty"`
	CTALink    string `json:"cta_link,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// BroadcastPayload is the body posted to the broadcast relay.
type BroadcastPayload struct {
	SessionID string           `json:"session_id"`
	Message   BroadcastMessage `json:"message"`
}

// Broadcaster announces stored messages to connected clients.
type Broadcaster struct {
	url     string
	timeout time.Duration
	relay   relayClient
}

func newBroadcaster(cfg Config) *Broadcaster {
	return &Broadcaster{url: cfg.BroadcastURL, timeout: cfg.BroadcastTimeout, relay: relayClient{http: cfg.HTTPClient}}
}

// Broadcast posts p; any non-2xx status is an error.
func (b *Broadcaster) Broadcast(ctx context.Context, p BroadcastPayload) error {
	status, _, err := b.relay.postJSON(ctx, b.url, b.timeout, p)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("broadcast relay: HTTP %d", status)
	}
	return nil
}

func payloadFor(m domain.Message) BroadcastPayload {
	return BroadcastPayload{
		SessionID: m.SessionID,
		Message: BroadcastMessage{
			ID:         m.ID,
			Type:       m.SenderType,
			Text:       m.Content,
			Sender:     m.SenderName,
			SenderID:   m.SenderID,
			SenderType: m.SenderType,
			Scheduled:  m.Scheduled,
			MediaURL:   m.MediaURL,
			CTAType:    string(m.CTA.Type),
			CTAText:    m.CTA.Text,
			CTALink:    m.CTA.Link,
			CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// AlertSink posts operator alerts as coach messages in sessionID. It does not
// store them.
func (b *Broadcaster) AlertSink(sessionID string, coach Coach, now func() time.Time) logx.AlertSink {
	return &alertSink{b: b, sessionID: sessionID, coach: coach, now: now}
}

type alertSink struct {
	b         *Broadcaster
	sessionID string
	coach     Coach
	now       func() time.Time
}

func (s *alertSink) Alert(ctx context.Context, text string) error {
	m := domain.Message{
		ID:         newID(),
		SessionID:  s.sessionID,
		SenderID:   s.coach.ID,
		SenderName: s.coach.Name,
		SenderType: "system",
		Content:    text,
		CreatedAt:  s.now(),
	}
	return s.b.Broadcast(ctx, payloadFor(m))
}
