package logsink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/postgres"
)

// PostgresWriter inserts one row per message into the log table, one
// transaction per batch.
type PostgresWriter struct {
	client *postgres.Client
	insert string
	runID  string
	seq    int64
}

// NewPostgresWriter creates the log table if needed and returns a writer
// for it.
func NewPostgresWriter(ctx context.Context, client *postgres.Client, table, runID string) (*PostgresWriter, error) {
	if err := client.EnsureSchema(ctx, createLogTableSQL(table)...); err != nil {
		return nil, fmt.Errorf("preparing log table %s: %w", table, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (run_id, seq, message, logged_at) VALUES ($1, $2, $3, $4)",
		postgres.QuoteIdentifier(table))
	return &PostgresWriter{client: client, insert: insert, runID: runID}, nil
}

func createLogTableSQL(table string) []string {
	quoted := postgres.QuoteIdentifier(table)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	message TEXT NOT NULL,
	logged_at TIMESTAMPTZ NOT NULL
)`, quoted),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (run_id, seq)",
			postgres.QuoteIdentifier(table+"_run_idx"), quoted),
	}
}

// Write inserts lines in one transaction. seq advances only on commit.
func (w *PostgresWriter) Write(ctx context.Context, lines []string) error {
	now := time.Now().UTC()
	seq := w.seq
	err := w.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, w.insert)
		if err != nil {
			return fmt.Errorf("preparing log insert: %w", err)
		}
		defer stmt.Close()
		for _, line := range lines {
			seq++
			if _, err := stmt.ExecContext(ctx, w.runID, seq, line, now); err != nil {
				return fmt.Errorf("inserting log row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.seq = seq
	return nil
}

func (w *PostgresWriter) Close() error {
	return w.client.Close()
}
