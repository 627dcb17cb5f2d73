package campaign

import (
	"context"

	"campaignd/internal/dispatch"
	"campaignd/internal/domain"
)

type EmailSender interface {
	Send(ctx context.Context, req dispatch.EmailRequest) domain.Outcome
}

type ConversationSender interface {
	Send(ctx context.Context, req dispatch.ConversationRequest) domain.Outcome
}

type CommunitySender interface {
	Send(ctx context.Context, req dispatch.CommunityRequest) domain.Outcome
}

// Senders are the channel adapters used by the runner. A nil sender skips its
// channel.
type Senders struct {
	Email        EmailSender
	Conversation ConversationSender
	Community    CommunitySender
}

func SendersFrom(d *dispatch.Dispatcher) Senders {
	return Senders{Email: d.Email, Conversation: d.Conversation, Community: d.Community}
}
