package domain

import "time"

// Session is an addressable chat destination.
type Session struct {
	ID             string    `json:"id"`
	ParticipantIDs []string  `json:"participant_ids"`
	Mode           Mode      `json:"mode"`
	IsAIActive     bool      `json:"is_ai_active"`
	IsDeleted      bool      `json:"is_deleted"`
	LinkToken      string    `json:"link_token"`
	CreatedAt      time.Time `json:"created_at"`
	Title          string    `json:"title"`
}

// SenderCoach is the sender_type of every automated message.
const SenderCoach = "coach"

// CTA is an optional call-to-action. A zero CTA is not attached.
type CTA struct {
	Type CTAType `json:"cta_type,omitempty"`
	Text string  `json:"cta_text,omitempty"`
	Link string  `json:"cta_link,omitempty"`
}

func (c CTA) IsZero() bool { return c.Type == "" && c.Text == "" && c.Link == "" }

// Message is a coach-authored message attached to a session.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SenderType string    `json:"sender_type"`
	Content    string    `json:"content"`
	Mode       Mode      `json:"mode"`
	IsDeleted  bool      `json:"is_deleted"`
	Notified   bool      `json:"notified"`
	Scheduled  bool      `json:"scheduled,omitempty"`
	MediaURL   string    `json:"media_url,omitempty"`
	CTA        CTA       `json:"cta"`
	CreatedAt  time.Time `json:"created_at"`
}
