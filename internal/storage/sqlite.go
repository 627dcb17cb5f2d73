package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"campaignd/internal/domain"
	logx "campaignd/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("sqlite opened", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const sessionColumns = `id, participant_ids, mode, is_ai_active, is_deleted, link_token, created_at, title`

func (s *sqliteStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND is_deleted = 0`, id)
	return scanSession(row)
}

func (s *sqliteStore) EnsureGroupSession(ctx context.Context, in domain.Session) (domain.Session, bool, error) {
	pids, err := json.Marshal(nonNil(in.ParticipantIDs))
	if err != nil {
		return domain.Session{}, false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions(`+sessionColumns+`) VALUES(?,?,?,?,?,?,?,?)`,
		in.ID, string(pids), string(in.Mode), in.IsAIActive, in.IsDeleted, in.LinkToken,
		in.CreatedAt.UTC().Format(time.RFC3339Nano), in.Title,
	)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("insert session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return in, true, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE mode = ? AND is_deleted = 0 ORDER BY created_at LIMIT 1`,
		string(in.Mode))
	got, err := scanSession(row)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("load group session %q: %w", in.Mode, err)
	}
	return got, false, nil
}

func (s *sqliteStore) InsertMessage(ctx context.Context, m domain.Message) error {
	var scheduled any
	if m.Scheduled {
		scheduled = true
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(id, session_id, sender_id, sender_name, sender_type, content, mode,
		 is_deleted, notified, scheduled, media_url, cta_type, cta_text, cta_link, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.SessionID, m.SenderID, m.SenderName, m.SenderType, m.Content, string(m.Mode),
		m.IsDeleted, m.Notified, scheduled, nullStr(m.MediaURL),
		nullStr(string(m.CTA.Type)), nullStr(m.CTA.Text), nullStr(m.CTA.Link),
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListMessages returns the messages of a session, oldest first.
func (s *sqliteStore) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sender_id, sender_name, sender_type, content, mode, is_deleted, notified,
		 scheduled, media_url, cta_type, cta_text, cta_link, created_at
		 FROM messages WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m                                   domain.Message
			mode, createdAt                     string
			scheduled                           sql.NullBool
			mediaURL, ctaType, ctaText, ctaLink sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.SenderID, &m.SenderName, &m.SenderType, &m.Content, &mode,
			&m.IsDeleted, &m.Notified, &scheduled, &mediaURL, &ctaType, &ctaText, &ctaLink, &createdAt); err != nil {
			return nil, err
		}
		m.Mode = domain.Mode(mode)
		m.Scheduled = scheduled.Valid && scheduled.Bool
		m.MediaURL = mediaURL.String
		m.CTA = domain.CTA{Type: domain.CTAType(ctaType.String), Text: ctaText.String, Link: ctaLink.String}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PutCampaign(ctx context.Context, c domain.Campaign) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaigns(id, status, doc, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET status=excluded.status, doc=excluded.doc, updated_at=excluded.updated_at`,
		c.ID, string(c.Status), string(doc), c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) GetCampaign(ctx context.Context, id string) (domain.Campaign, error) {
	return getCampaign(ctx, s.db, id)
}

func (s *sqliteStore) ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM campaigns WHERE status IN (?, ?) ORDER BY id`,
		string(domain.StatusScheduled), string(domain.StatusSending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c domain.Campaign
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			s.log.Warn("skipping undecodable campaign", logx.Err(err))
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *sqliteStore) RecordOccurrence(ctx context.Context, campaignID, raw string, results []domain.Outcome, status domain.CampaignStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	c, err := getCampaign(ctx, tx, campaignID)
	if err != nil {
		return err
	}
	applyOccurrence(&c, raw, results, status)
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE campaigns SET status = ?, doc = ?, updated_at = ? WHERE id = ?`,
		string(c.Status), string(doc), c.UpdatedAt.Format(time.RFC3339Nano), campaignID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCampaign(ctx context.Context, q queryRower, id string) (domain.Campaign, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM campaigns WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Campaign{}, ErrNotFound
	}
	if err != nil {
		return domain.Campaign{}, err
	}
	var c domain.Campaign
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return domain.Campaign{}, fmt.Errorf("decode campaign %q: %w", id, err)
	}
	return c, nil
}

func scanSession(row *sql.Row) (domain.Session, error) {
	var (
		sess                domain.Session
		pids, mode, created string
	)
	err := row.Scan(&sess.ID, &pids, &mode, &sess.IsAIActive, &sess.IsDeleted, &sess.LinkToken, &created, &sess.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	sess.Mode = domain.Mode(mode)
	if err := json.Unmarshal([]byte(pids), &sess.ParticipantIDs); err != nil {
		return domain.Session{}, fmt.Errorf("decode participant_ids: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return sess, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
