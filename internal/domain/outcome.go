package domain

// Outcome is the uniform record of one dispatch attempt. It is created once and
// owned by the caller for persistence.
//
// Status/Error keep the legacy contract: Error is empty when Status is sent,
// except for the community partial outcome. Stored and Broadcast report the
// store write and the real-time fan-out separately.
type Outcome struct {
	ContactID   string          `json:"contactId"`
	ContactName string          `json:"contactName"`
	Channel     Channel         `json:"channel"`
	Status      DeliveryStatus  `json:"status"`
	Error       string          `json:"error,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	SentAt      string          `json:"sentAt"`
	Stored      bool            `json:"stored,omitempty"`
	Broadcast   BroadcastStatus `json:"broadcast,omitempty"`
}

func (o Outcome) OK() bool { return o.Status == DeliverySent }
