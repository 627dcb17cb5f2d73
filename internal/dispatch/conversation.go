package dispatch

import (
	"context"
	"time"

	"campaignd/internal/domain"
	"campaignd/internal/storage"
	logx "campaignd/pkg/logx"
)

// ConversationRequest targets one conversation by session id or group tag.
type ConversationRequest struct {
	ConversationID string
	RecipientName  string
	Message        string
	MediaURL       string
	CTA            domain.CTA
}

// ConversationAdapter injects a scheduled coach message into a conversation.
type ConversationAdapter struct {
	sessions  sessionResolver
	store     storage.Store
	broadcast *Broadcaster
	coach     Coach
	now       func() time.Time
	log       logx.Logger
}

func NewConversationAdapter(cfg Config, st storage.Store, log logx.Logger) *ConversationAdapter {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ConversationAdapter{
		sessions:  sessionResolver{store: st, now: cfg.Now, log: log},
		store:     st,
		broadcast: newBroadcaster(cfg),
		coach:     cfg.Coach,
		now:       cfg.Now,
		log:       log,
	}
}

// Send stores the message, then broadcasts it. A broadcast failure is logged
// and reported in Outcome.Broadcast only; the outcome stays successful.
func (a *ConversationAdapter) Send(ctx context.Context, req ConversationRequest) domain.Outcome {
	fail := func(err error, sessionID string) domain.Outcome {
		a.log.Warn("conversation dispatch failed",
			logx.String("conversation_id", req.ConversationID),
			logx.Err(err),
		)
		return FormatResult(req.ConversationID, req.RecipientName, domain.ChannelInternal, false, err.Error(), sessionID, a.now())
	}

	sess, err := a.sessions.resolve(ctx, req.ConversationID)
	if err != nil {
		return fail(err, "")
	}

	content := Personalize(req.Message, req.RecipientName, a.coach.FallbackName)
	msg, err := coachMessage(a.coach, sess, content, req.MediaURL, req.CTA, true, a.now())
	if err != nil {
		return fail(err, sess.ID)
	}
	if err := a.store.InsertMessage(ctx, msg); err != nil {
		return fail(err, sess.ID)
	}

	out := FormatResult(req.ConversationID, req.RecipientName, domain.ChannelInternal, true, "", sess.ID, msg.CreatedAt)
	out.Stored = true
	out.Broadcast = domain.BroadcastOK
	if err := a.broadcast.Broadcast(ctx, payloadFor(msg)); err != nil {
		out.Broadcast = domain.BroadcastFailed
		a.log.Warn("broadcast failed; message stored",
			logx.String("session_id", sess.ID),
			logx.String("message_id", msg.ID),
			logx.Err(err),
		)
	}
	return out
}
