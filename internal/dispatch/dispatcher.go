package dispatch

import (
	"campaignd/internal/storage"
	logx "campaignd/pkg/logx"
)

// Dispatcher bundles the three adapters over one store and relay config.
type Dispatcher struct {
	Email        *EmailAdapter
	Conversation *ConversationAdapter
	Community    *CommunityAdapter
	Broadcaster  *Broadcaster
}

func New(cfg Config, st storage.Store, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	return &Dispatcher{
		Email:        NewEmailAdapter(cfg, log.With(logx.String("comp", "dispatch.email"))),
		Conversation: NewConversationAdapter(cfg, st, log.With(logx.String("comp", "dispatch.conversation"))),
		Community:    NewCommunityAdapter(cfg, st, log.With(logx.String("comp", "dispatch.community"))),
		Broadcaster:  newBroadcaster(cfg),
	}
}
