package domain

import "time"

// Contact is an email recipient of a campaign.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Channels selects the delivery paths of a campaign.
type Channels struct {
	Email    bool `json:"email"`
	Internal bool `json:"internal"`
	Group    bool `json:"group"`
}

// Campaign is a scheduled message with one or more occurrences.
//
// ScheduledDates and SentDates hold raw date strings exactly as configured; an
// occurrence is fulfilled once its raw string is present in SentDates.
type Campaign struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Subject  string         `json:"subject,omitempty"`
	Message  string         `json:"message"`
	MediaURL string         `json:"media_url,omitempty"`
	CTA      CTA            `json:"cta"`
	Status   CampaignStatus `json:"status"`
	Channels Channels       `json:"channels"`

	Contacts        []Contact `json:"contacts,omitempty"`
	ConversationIDs []string  `json:"conversation_ids,omitempty"`

	ScheduledDates []string  `json:"scheduled_dates,omitempty"`
	SentDates      []string  `json:"sent_dates,omitempty"`
	Results        []Outcome `json:"results,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pending returns the scheduled dates whose raw string is not yet in SentDates.
func (c Campaign) Pending() []string {
	sent := make(map[string]struct{}, len(c.SentDates))
	for _, d := range c.SentDates {
		sent[d] = struct{}{}
	}
	var out []string
	for _, d := range c.ScheduledDates {
		if _, ok := sent[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}
