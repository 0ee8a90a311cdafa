package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/event-planner/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL DEFAULT '',
	event_name   TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	date         TEXT NOT NULL DEFAULT '',
	guest_count  INTEGER NOT NULL DEFAULT 0,
	total_budget BIGINT NOT NULL DEFAULT 0,
	location     TEXT NOT NULL DEFAULT '',
	services     JSONB NOT NULL DEFAULT '[]'::jsonb,
	invitation   JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS discovery_cache (
	cache_key  TEXT PRIMARY KEY,
	providers  JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id);
CREATE INDEX IF NOT EXISTS idx_discovery_cache_expires_at ON discovery_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
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
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, eris.Wrapf(ErrEmailTaken, "postgres: insert user %s", email)
		}
		return nil, eris.Wrap(err, "postgres: insert user")
	}
	return u, nil
}

func (s *PostgresStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get user")
	}
	return checkPassword(&u, password)
}

// --- Events ---

func (s *PostgresStore) CreateEvent(ctx context.Context, ev *model.EventPlan) (*model.EventPlan, error) {
	out := prepareEvent(ev, uuid.New().String(), time.Now().UTC())

	servicesJSON, err := json.Marshal(out.Services)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal services")
	}
	invitationJSON, err := invitationBytes(out.Invitation)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO events (id, user_id, event_name, category, date, guest_count, total_budget, location, services, invitation, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		out.ID, out.UserID, out.EventName, out.Category, out.Date, out.GuestCount, out.TotalBudget,
		out.Location, servicesJSON, invitationJSON, out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert event")
	}
	return out, nil
}

const postgresEventColumns = `id, user_id, event_name, category, date, guest_count, total_budget, location, services, invitation, created_at, updated_at`

func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (*model.EventPlan, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresEventColumns+` FROM events WHERE id = $1`, eventID)
	ev, err := scanPgEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: event %s", eventID)
	}
	return ev, err
}

func (s *PostgresStore) ListEventsByUser(ctx context.Context, userID string) ([]model.EventPlan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresEventColumns+` FROM events WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.EventPlan
	for rows.Next() {
		ev, err := scanPgEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func (s *PostgresStore) UpdateServices(ctx context.Context, eventID string, services []model.ServiceLine) error {
	servicesJSON, err := json.Marshal(normalizeServices(services))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal services")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET services = $1, updated_at = $2 WHERE id = $3`,
		servicesJSON, time.Now().UTC(), eventID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update services %s", eventID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: event %s", eventID)
	}
	return nil
}

// UpdateServiceProvider locks the event row while it rewrites the one
// service line, so concurrent selections on the same event serialize.
func (s *PostgresStore) UpdateServiceProvider(ctx context.Context, eventID, serviceName string, p *model.Provider) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var servicesJSON []byte
		err := tx.QueryRow(ctx,
			`SELECT services FROM events WHERE id = $1 FOR UPDATE`, eventID,
		).Scan(&servicesJSON)
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "postgres: event %s", eventID)
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: get services %s", eventID)
		}

		var services []model.ServiceLine
		if err := json.Unmarshal(servicesJSON, &services); err != nil {
			return eris.Wrap(err, "postgres: unmarshal services")
		}
		updated, err := applyProvider(services, eventID, serviceName, p)
		if err != nil {
			return err
		}
		out, err := json.Marshal(updated)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal services")
		}

		_, err = tx.Exec(ctx,
			`UPDATE events SET services = $1, updated_at = $2 WHERE id = $3`,
			out, time.Now().UTC(), eventID,
		)
		return eris.Wrapf(err, "postgres: update provider %s", eventID)
	})
}

func (s *PostgresStore) UpdateInvitation(ctx context.Context, eventID string, inv *model.Invitation) error {
	invitationJSON, err := invitationBytes(inv)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET invitation = $1, updated_at = $2 WHERE id = $3`,
		invitationJSON, time.Now().UTC(), eventID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update invitation %s", eventID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: event %s", eventID)
	}
	return nil
}

// --- Discovery cache ---

func (s *PostgresStore) GetCachedDiscovery(ctx context.Context, key string) ([]model.Provider, bool, error) {
	var providersJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT providers FROM discovery_cache WHERE cache_key = $1 AND expires_at > now()`,
		key,
	).Scan(&providersJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: get cached discovery")
	}

	var providers []model.Provider
	if err := json.Unmarshal(providersJSON, &providers); err != nil {
		return nil, false, eris.Wrap(err, "postgres: unmarshal cached providers")
	}
	return providers, true, nil
}

func (s *PostgresStore) SetCachedDiscovery(ctx context.Context, key string, providers []model.Provider, ttl time.Duration) error {
	providersJSON, err := json.Marshal(providers)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal providers")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO discovery_cache (cache_key, providers, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cache_key) DO UPDATE SET providers = EXCLUDED.providers,
		   cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, providersJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached discovery")
}

func (s *PostgresStore) DeleteExpiredDiscoveries(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM discovery_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired discoveries")
	}
	return int(tag.RowsAffected()), nil
}

// --- helpers ---

func (s *PostgresStore) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func invitationBytes(inv *model.Invitation) ([]byte, error) {
	if inv == nil {
		return nil, nil
	}
	b, err := json.Marshal(inv)
	return b, eris.Wrap(err, "store: marshal invitation")
}

func scanPgEvent(row pgx.Row) (*model.EventPlan, error) {
	var ev model.EventPlan
	var servicesJSON, invitationJSON []byte

	err := row.Scan(&ev.ID, &ev.UserID, &ev.EventName, &ev.Category, &ev.Date, &ev.GuestCount,
		&ev.TotalBudget, &ev.Location, &servicesJSON, &invitationJSON, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan event")
	}

	if len(servicesJSON) > 0 {
		if err := json.Unmarshal(servicesJSON, &ev.Services); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal services")
		}
	}
	if len(invitationJSON) > 0 {
		var inv model.Invitation
		if err := json.Unmarshal(invitationJSON, &inv); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal invitation")
		}
		ev.Invitation = &inv
	}
	return &ev, nil
}
