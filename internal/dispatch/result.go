package dispatch

import (
	"time"

	"campaignd/internal/domain"
)

// FormatResult builds the outcome of one dispatch attempt. A successful
// outcome never carries an error. A zero sentAt means now.
func FormatResult(contactID, contactName string, ch domain.Channel, success bool, errMsg, sessionID string, sentAt time.Time) domain.Outcome {
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	out := domain.Outcome{
		ContactID:   contactID,
		ContactName: contactName,
		Channel:     ch,
		Status:      domain.DeliveryFailed,
		Error:       errMsg,
		SessionID:   sessionID,
		SentAt:      sentAt.UTC().Format(time.RFC3339Nano),
	}
	if success {
		out.Status = domain.DeliverySent
		out.Error = ""
	}
	return out
}
