package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/event-planner/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL DEFAULT '',
	event_name   TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	date         TEXT NOT NULL DEFAULT '',
	guest_count  INTEGER NOT NULL DEFAULT 0,
	total_budget INTEGER NOT NULL DEFAULT 0,
	location     TEXT NOT NULL DEFAULT '',
	services     TEXT NOT NULL DEFAULT '[]',
	invitation   TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS discovery_cache (
	cache_key  TEXT PRIMARY KEY,
	providers  TEXT NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id);
CREATE INDEX IF NOT EXISTS idx_discovery_cache_expires_at ON discovery_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	hash, err := hashPassword(email, password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, eris.Wrapf(ErrEmailTaken, "sqlite: insert user %s", email)
		}
		return nil, eris.Wrap(err, "sqlite: insert user")
	}
	return u, nil
}

func (s *SQLiteStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get user")
	}
	return checkPassword(&u, password)
}

// --- Events ---

func (s *SQLiteStore) CreateEvent(ctx context.Context, ev *model.EventPlan) (*model.EventPlan, error) {
	out := prepareEvent(ev, uuid.New().String(), time.Now().UTC())

	servicesJSON, err := json.Marshal(out.Services)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal services")
	}
	invitationJSON, err := marshalInvitation(out.Invitation)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, event_name, category, date, guest_count, total_budget, location, services, invitation, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.EventName, out.Category, out.Date, out.GuestCount, out.TotalBudget,
		out.Location, string(servicesJSON), invitationJSON, out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert event")
	}
	return out, nil
}

const sqliteEventColumns = `id, user_id, event_name, category, date, guest_count, total_budget, location, services, invitation, created_at, updated_at`

func (s *SQLiteStore) GetEvent(ctx context.Context, eventID string) (*model.EventPlan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteEventColumns+` FROM events WHERE id = ?`, eventID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: event %s", eventID)
	}
	return ev, err
}

func (s *SQLiteStore) ListEventsByUser(ctx context.Context, userID string) ([]model.EventPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteEventColumns+` FROM events WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var events []model.EventPlan
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

func (s *SQLiteStore) UpdateServices(ctx context.Context, eventID string, services []model.ServiceLine) error {
	servicesJSON, err := json.Marshal(normalizeServices(services))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal services")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET services = ?, updated_at = ? WHERE id = ?`,
		string(servicesJSON), time.Now().UTC(), eventID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update services %s", eventID)
	}
	return checkRowsAffected(res, "event", eventID)
}

func (s *SQLiteStore) UpdateServiceProvider(ctx context.Context, eventID, serviceName string, p *model.Provider) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var servicesJSON string
	err = tx.QueryRowContext(ctx, `SELECT services FROM events WHERE id = ?`, eventID).Scan(&servicesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "sqlite: event %s", eventID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get services %s", eventID)
	}

	var services []model.ServiceLine
	if err := json.Unmarshal([]byte(servicesJSON), &services); err != nil {
		return eris.Wrap(err, "sqlite: unmarshal services")
	}
	updated, err := applyProvider(services, eventID, serviceName, p)
	if err != nil {
		return err
	}
	out, err := json.Marshal(updated)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal services")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET services = ?, updated_at = ? WHERE id = ?`,
		string(out), time.Now().UTC(), eventID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: update provider %s", eventID)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) UpdateInvitation(ctx context.Context, eventID string, inv *model.Invitation) error {
	invitationJSON, err := marshalInvitation(inv)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET invitation = ?, updated_at = ? WHERE id = ?`,
		invitationJSON, time.Now().UTC(), eventID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update invitation %s", eventID)
	}
	return checkRowsAffected(res, "event", eventID)
}

// --- Discovery cache ---

func (s *SQLiteStore) GetCachedDiscovery(ctx context.Context, key string) ([]model.Provider, bool, error) {
	var providersJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT providers FROM discovery_cache WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&providersJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get cached discovery")
	}

	var providers []model.Provider
	if err := json.Unmarshal([]byte(providersJSON), &providers); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: unmarshal cached providers")
	}
	return providers, true, nil
}

func (s *SQLiteStore) SetCachedDiscovery(ctx context.Context, key string, providers []model.Provider, ttl time.Duration) error {
	providersJSON, err := json.Marshal(providers)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal providers")
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discovery_cache (cache_key, providers, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET providers = excluded.providers,
		   cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, string(providersJSON), now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set cached discovery")
}

func (s *SQLiteStore) DeleteExpiredDiscoveries(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM discovery_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired discoveries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func marshalInvitation(inv *model.Invitation) (*string, error) {
	if inv == nil {
		return nil, nil
	}
	b, err := json.Marshal(inv)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal invitation")
	}
	out := string(b)
	return &out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(row scannable) (*model.EventPlan, error) {
	var ev model.EventPlan
	var servicesJSON string
	var invitationJSON sql.NullString

	err := row.Scan(&ev.ID, &ev.UserID, &ev.EventName, &ev.Category, &ev.Date, &ev.GuestCount,
		&ev.TotalBudget, &ev.Location, &servicesJSON, &invitationJSON, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan event")
	}

	if err := json.Unmarshal([]byte(servicesJSON), &ev.Services); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal services")
	}
	if invitationJSON.Valid && invitationJSON.String != "" {
		var inv model.Invitation
		if err := json.Unmarshal([]byte(invitationJSON.String), &inv); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal invitation")
		}
		ev.Invitation = &inv
	}
	return &ev, nil
}
