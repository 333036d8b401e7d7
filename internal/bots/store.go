// Package bots is the per-tenant bot configuration store behind the
// embeddable assistant: a key-value lookup by opaque bot id, plus the
// best-effort chat log written per resolved widget turn.
package bots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("bot not found")
	ErrExists   = errors.New("bot id is already taken")
)

type Config struct {
	BotID     string    `json:"bot_id"`
	Name      string    `json:"name"`
	Context   string    `json:"context"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type dbQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type Store struct {
	db    dbQuerier
	cache *Cache
}

// NewStore wires the Postgres-backed store; cache may be nil, in which case
// every read hits the database.
func NewStore(db dbQuerier, cache *Cache) *Store {
	return &Store{db: db, cache: cache}
}

// EnsureSchema creates the two tables this service owns. Everything else in
// the system is in-memory session state.
func EnsureSchema(ctx context.Context, db dbQuerier) error {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bots (
			bot_id     TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			context    TEXT NOT NULL,
			locale     TEXT NOT NULL DEFAULT 'en',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return err
	}
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chat_logs (
			id           TEXT PRIMARY KEY,
			bot_id       TEXT NOT NULL,
			user_message TEXT NOT NULL,
			ai_response  TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (s *Store) Create(ctx context.Context, cfg Config) (Config, error) {
	locale := cfg.Locale
	if locale == "" {
		locale = "en"
	}
	row := s.db.QueryRow(
		ctx,
		`INSERT INTO bots (bot_id, name, context, locale)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (bot_id) DO NOTHING
		 RETURNING bot_id, name, context, locale, created_at, updated_at`,
		cfg.BotID,
		cfg.Name,
		cfg.Context,
		locale,
	)
	created, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrExists
	}
	if err != nil {
		return Config{}, err
	}
	return created, nil
}

// Get serves reads through the cache; widget traffic hits this on every turn
// while writes are rare.
func (s *Store) Get(ctx context.Context, botID string) (Config, error) {
	if cached, ok := s.cache.Get(ctx, botID); ok {
		return cached, nil
	}

	row := s.db.QueryRow(
		ctx,
		`SELECT bot_id, name, context, locale, created_at, updated_at
		 FROM bots WHERE bot_id = $1`,
		botID,
	)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrNotFound
	}
	if err != nil {
		return Config{}, err
	}

	s.cache.Set(ctx, cfg)
	return cfg, nil
}

func (s *Store) List(ctx context.Context) ([]Config, error) {
	rows, err := s.db.Query(
		ctx,
		`SELECT bot_id, name, context, locale, created_at, updated_at
		 FROM bots ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make([]Config, 0, 16)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// Update applies only the non-empty fields, matching the partial-update
// contract of the admin surface.
func (s *Store) Update(ctx context.Context, botID string, cfg Config) (Config, error) {
	row := s.db.QueryRow(
		ctx,
		`UPDATE bots SET
			name       = COALESCE(NULLIF($2, ''), name),
			context    = COALESCE(NULLIF($3, ''), context),
			locale     = COALESCE(NULLIF($4, ''), locale),
			updated_at = NOW()
		 WHERE bot_id = $1
		 RETURNING bot_id, name, context, locale, created_at, updated_at`,
		botID,
		cfg.Name,
		cfg.Context,
		cfg.Locale,
	)
	updated, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrNotFound
	}
	if err != nil {
		return Config{}, err
	}

	s.cache.Delete(ctx, botID)
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, botID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM bots WHERE bot_id = $1`, botID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.cache.Delete(ctx, botID)
	return nil
}

// AppendChatLog records one resolved widget turn. Callers treat failures as
// non-fatal; the conversation must not depend on the log being written.
func (s *Store) AppendChatLog(ctx context.Context, botID, userMessage, aiResponse string) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO chat_logs (id, bot_id, user_message, ai_response)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(),
		botID,
		userMessage,
		aiResponse,
	)
	return err
}

func scanConfig(row pgx.Row) (Config, error) {
	var cfg Config
	err := row.Scan(&cfg.BotID, &cfg.Name, &cfg.Context, &cfg.Locale, &cfg.CreatedAt, &cfg.UpdatedAt)
	return cfg, err
}
