package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"campaignd/internal/domain"
	"campaignd/internal/storage"
	logx "campaignd/pkg/logx"
)

var ErrSessionNotFound = errors.New("session not found")

func newID() string { return uuid.NewString() }

// newLinkToken returns a short random access token.
func newLinkToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// sessionResolver finds target sessions and creates group sessions on first
// reference.
type sessionResolver struct {
	store storage.Store
	now   func() time.Time
	log   logx.Logger
}

// ensureGroup returns the live session for a group tag, creating it when absent.
func (r sessionResolver) ensureGroup(ctx context.Context, mode domain.Mode) (domain.Session, error) {
	s := domain.Session{
		ID:             newID(),
		ParticipantIDs: []string{},
		Mode:           mode,
		IsAIActive:     false,
		IsDeleted:      false,
		LinkToken:      newLinkToken(),
		CreatedAt:      r.now().UTC(),
		Title:          domain.GroupTitle(mode),
	}
	got, created, err := r.store.EnsureGroupSession(ctx, s)
	if err != nil {
		return domain.Session{}, fmt.Errorf("ensure %s session: %w", mode, err)
	}
	if created {
		r.log.Info("group session created", logx.String("mode", string(mode)), logx.String("session_id", got.ID))
	}
	return got, nil
}

// resolve looks up id among live sessions. A missing id that names a group tag
// resolves to that group's session.
func (r sessionResolver) resolve(ctx context.Context, id string) (domain.Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Session{}, fmt.Errorf("load session %q: %w", id, err)
	}
	if mode, ok := domain.IsGroupTag(id); ok {
		return r.ensureGroup(ctx, mode)
	}
	return domain.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// coachMessage builds the stored message. Media and CTA are attached only when
// set; the CTA link goes through ValidateLink and an unknown CTA type is an
// error.
func coachMessage(coach Coach, sess domain.Session, content, mediaURL string, cta domain.CTA, scheduled bool, at time.Time) (domain.Message, error) {
	m := domain.Message{
		ID:         newID(),
		SessionID:  sess.ID,
		SenderID:   coach.ID,
		SenderName: coach.Name,
		SenderType: domain.SenderCoach,
		Content:    content,
		Mode:       sess.Mode,
		Scheduled:  scheduled,
		CreatedAt:  at.UTC(),
	}
	if u := strings.TrimSpace(mediaURL); u != "" {
		m.MediaURL = u
	}
	if cta.IsZero() {
		return m, nil
	}
	if cta.Type != "" {
		t, err := domain.ParseCTAType(string(cta.Type))
		if err != nil {
			return domain.Message{}, err
		}
		m.CTA.Type = t
	}
	m.CTA.Text = strings.TrimSpace(cta.Text)
	if link, ok := ValidateLink(cta.Link); ok {
		m.CTA.Link = link
	}
	return m, nil
}
