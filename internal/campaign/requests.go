package campaign

import (
	"campaignd/internal/dispatch"
	"campaignd/internal/domain"
)

func dispatchEmail(c domain.Campaign, ct domain.Contact, subject string) dispatch.EmailRequest {
	return dispatch.EmailRequest{
		ContactID: ct.ID,
		ToEmail:   ct.Email,
		ToName:    ct.Name,
		Subject:   subject,
		Message:   c.Message,
		MediaURL:  c.MediaURL,
	}
}

func dispatchConversation(c domain.Campaign, conversationID string) dispatch.ConversationRequest {
	return dispatch.ConversationRequest{
		ConversationID: conversationID,
		Message:        c.Message,
		MediaURL:       c.MediaURL,
		CTA:            c.CTA,
	}
}

func dispatchCommunity(c domain.Campaign) dispatch.CommunityRequest {
	return dispatch.CommunityRequest{
		Message:  c.Message,
		MediaURL: c.MediaURL,
		CTA:      c.CTA,
	}
}
