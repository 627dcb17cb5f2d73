package storage

import (
	"context"
	"errors"
	"strings"

	"campaignd/internal/domain"
	logx "campaignd/pkg/logx"
)

// Store is the persistence API used by the dispatch adapters and the runner.
type Store interface {
	// GetSession returns the non-deleted session with id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// EnsureGroupSession returns the non-deleted session whose mode is s.Mode,
	// inserting s if there is none. created reports whether s was inserted.
	EnsureGroupSession(ctx context.Context, s domain.Session) (got domain.Session, created bool, err error)
	InsertMessage(ctx context.Context, m domain.Message) error

	PutCampaign(ctx context.Context, c domain.Campaign) error
	GetCampaign(ctx context.Context, id string) (domain.Campaign, error)
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
	// RecordOccurrence appends raw to the campaign's sent dates (once), appends
	// results and sets status.
	RecordOccurrence(ctx context.Context, campaignID, raw string, results []domain.Outcome, status domain.CampaignStatus) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "":
		return nil, errors.New("storage driver is required")
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
