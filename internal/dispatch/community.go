package dispatch

import (
	"context"
	"time"

	"campaignd/internal/domain"
	"campaignd/internal/storage"
	logx "campaignd/pkg/logx"
)

// CommunityRequest is a message for the community group session.
type CommunityRequest struct {
	Message  string
	MediaURL string
	CTA      domain.CTA
}

// CommunityAdapter posts a coach message to the singleton community session.
type CommunityAdapter struct {
	sessions  sessionResolver
	store     storage.Store
	broadcast *Broadcaster
	coach     Coach
	now       func() time.Time
	log       logx.Logger
}

func NewCommunityAdapter(cfg Config, st storage.Store, log logx.Logger) *CommunityAdapter {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CommunityAdapter{
		sessions:  sessionResolver{store: st, now: cfg.Now, log: log},
		store:     st,
		broadcast: newBroadcaster(cfg),
		coach:     cfg.Coach,
		now:       cfg.Now,
		log:       log,
	}
}

// Send stores the message, then broadcasts it. When only the broadcast fails
// the outcome is successful and carries PartialBroadcastError.
func (a *CommunityAdapter) Send(ctx context.Context, req CommunityRequest) domain.Outcome {
	contactID := string(domain.ModeCommunity)
	label := a.coach.CommunityLabel
	fail := func(err error, sessionID string) domain.Outcome {
		a.log.Warn("community dispatch failed", logx.Err(err))
		return FormatResult(contactID, label, domain.ChannelGroup, false, err.Error(), sessionID, a.now())
	}

	sess, err := a.sessions.ensureGroup(ctx, domain.ModeCommunity)
	if err != nil {
		return fail(err, "")
	}

	content := Personalize(req.Message, label, label)
	msg, err := coachMessage(a.coach, sess, content, req.MediaURL, req.CTA, false, a.now())
	if err != nil {
		return fail(err, sess.ID)
	}
	if err := a.store.InsertMessage(ctx, msg); err != nil {
		return fail(err, sess.ID)
	}

	out := FormatResult(contactID, label, domain.ChannelGroup, true, "", sess.ID, msg.CreatedAt)
	out.Stored = true
	out.Broadcast = domain.BroadcastOK
	if err := a.broadcast.Broadcast(ctx, payloadFor(msg)); err != nil {
		a.log.Warn("broadcast failed; message stored",
			logx.String("session_id", sess.ID),
			logx.String("message_id", msg.ID),
			logx.Err(err),
		)
		out.Broadcast = domain.BroadcastFailed
		out.Error = PartialBroadcastError
	}
	return out
}
