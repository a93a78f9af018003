package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQL stores the state as one row of the snapshots table created by the
// migrations package. Several named snapshots may share a database.
type SQL struct {
	db   *sql.DB
	name string
}

func NewSQL(db *sql.DB, name string) *SQL {
	return &SQL{db: db, name: name}
}

func (s *SQL) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE name = ?`, s.name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %q: %w", s.name, err)
	}
	return data, nil
}

func (s *SQL) Write(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.name, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot %q: %w", s.name, err)
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
