package callstore

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx stdlib driver for sqlx
	"github.com/jmoiron/sqlx"
)

const callLogSchema = `
CREATE TABLE IF NOT EXISTS call_log (
	id BIGSERIAL PRIMARY KEY,
	call_sid TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	speaker TEXT NOT NULL,
	text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS call_log_call_sid_idx ON call_log (call_sid, created_at);
`

// PostgresSink persists call log entries to a call_log table. It is an
// optional second durable sink next to the per-call files.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink opens the database and ensures the call_log table exists.
func NewPostgresSink(connectionString string) (*PostgresSink, error) {
	db, err := sqlx.Open("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open call log database: %w", err)
	}
	if _, err := db.Exec(callLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure call_log table: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (p *PostgresSink) Append(ctx context.Context, entry CallLogEntry) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO call_log (call_sid, created_at, speaker, text) VALUES ($1, $2, $3, $4)`,
		entry.CallSid, entry.Timestamp, string(entry.Speaker), entry.Text)
	if err != nil {
		return fmt.Errorf("failed to insert call log entry: %w", err)
	}
	return nil
}

// Shutdown closes the underlying database handle.
func (p *PostgresSink) Shutdown() error {
	return p.db.Close()
}
