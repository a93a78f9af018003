package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores the state as one JSONB row.
type Postgres struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgres creates the snapshots table if needed.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, name string) (*Postgres, error) {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		name       TEXT PRIMARY KEY,
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}
	return &Postgres{pool: pool, name: name}, nil
}

func (p *Postgres) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data::text FROM snapshots WHERE name = $1`, p.name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %q: %w", p.name, err)
	}
	return data, nil
}

func (p *Postgres) Write(ctx context.Context, data []byte) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO snapshots (name, data, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.name, string(data),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot %q: %w", p.name, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }
