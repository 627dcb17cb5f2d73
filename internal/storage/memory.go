package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"campaignd/internal/domain"
)

// Memory is the in-process driver. The extra accessors (Messages, Sessions,
// PutSession) exist for tests.
type Memory struct {
	mu        sync.Mutex
	closed    bool
	sessions  map[string]domain.Session
	messages  []domain.Message
	campaigns map[string]domain.Campaign
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		sessions:  map[string]domain.Session{},
		campaigns: map[string]domain.Campaign{},
	}
}

func (s *Memory) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Session{}, ErrClosed
	}
	sess, ok := s.sessions[id]
	if !ok || sess.IsDeleted {
		return domain.Session{}, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *Memory) EnsureGroupSession(_ context.Context, in domain.Session) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Session{}, false, ErrClosed
	}
	for _, sess := range s.sessions {
		if !sess.IsDeleted && sess.Mode == in.Mode {
			return cloneSession(sess), false, nil
		}
	}
	s.sessions[in.ID] = cloneSession(in)
	return cloneSession(in), true, nil
}

func (s *Memory) InsertMessage(_ context.Context, m domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.messages = append(s.messages, m)
	return nil
}

// Messages returns a copy of every stored message, oldest first.
func (s *Memory) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Sessions returns a copy of every stored session, including deleted ones.
func (s *Memory) Sessions() []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PutSession stores a session as-is. Tests use it to seed conversations.
func (s *Memory) PutSession(sess domain.Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = cloneSession(sess)
	s.mu.Unlock()
}

func (s *Memory) PutCampaign(_ context.Context, c domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

func (s *Memory) GetCampaign(_ context.Context, id string) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Campaign{}, ErrClosed
	}
	c, ok := s.campaigns[id]
	if !ok {
		return domain.Campaign{}, ErrNotFound
	}
	return cloneCampaign(c), nil
}

func (s *Memory) ListActiveCampaigns(_ context.Context) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.Status.Active() {
			out = append(out, cloneCampaign(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) RecordOccurrence(_ context.Context, campaignID, raw string, results []domain.Outcome, status domain.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	c, ok := s.campaigns[campaignID]
	if !ok {
		return ErrNotFound
	}
	applyOccurrence(&c, raw, results, status)
	s.campaigns[campaignID] = c
	return nil
}

func (s *Memory) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func applyOccurrence(c *domain.Campaign, raw string, results []domain.Outcome, status domain.CampaignStatus) {
	if raw != "" && !slices.Contains(c.SentDates, raw) {
		c.SentDates = append(c.SentDates, raw)
	}
	c.Results = append(c.Results, results...)
	if status != "" {
		c.Status = status
	}
	c.UpdatedAt = time.Now().UTC()
}

func cloneSession(s domain.Session) domain.Session {
	s.ParticipantIDs = slices.Clone(s.ParticipantIDs)
	return s
}

func cloneCampaign(c domain.Campaign) domain.Campaign {
	c.Contacts = slices.Clone(c.Contacts)
	c.ConversationIDs = slices.Clone(c.ConversationIDs)
	c.ScheduledDates = slices.Clone(c.ScheduledDates)
	c.SentDates = slices.Clone(c.SentDates)
	c.Results = slices.Clone(c.Results)
	return c
}
