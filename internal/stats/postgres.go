package stats

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists stats through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ ProfileStore = (*Postgres)(nil)

func NewPostgres(dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// EnsureSchema creates the two stats tables if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			identity     TEXT PRIMARY KEY,
			total_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			last_played  TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS counters (
			name  TEXT PRIMARY KEY,
			value BIGINT NOT NULL DEFAULT 0
		);
	`)
	return err
}

func (p *Postgres) RecordResult(ctx context.Context, identity string, net float64, playedAt time.Time) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO profiles (identity, total_profit, games_played, last_played)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (identity) DO UPDATE SET
			total_profit = profiles.total_profit + EXCLUDED.total_profit,
			games_played = profiles.games_played + 1,
			last_played  = EXCLUDED.last_played
	`, identity, net, playedAt)
	return err
}

func (p *Postgres) IncrRoomsCreated(ctx context.Context) (int64, error) {
	var value int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO counters (name, value) VALUES ('rooms_created', 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`).Scan(&value)
	return value, err
}

func (p *Postgres) RoomsCreated(ctx context.Context) (int64, error) {
	var value int64
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM counters WHERE name = 'rooms_created'`,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return value, err
}

func (p *Postgres) GetProfile(ctx context.Context, identity string) (*Profile, error) {
	var prof Profile
	var lastPlayed *time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT identity, total_profit, games_played, last_played
		FROM profiles WHERE identity = $1
	`, identity).Scan(&prof.Identity, &prof.TotalProfit, &prof.GamesPlayed, &lastPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastPlayed != nil {
		prof.LastPlayed = *lastPlayed
	}
	return &prof, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
