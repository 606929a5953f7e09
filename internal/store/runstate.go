package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastRunKey = "last_run"

// LastRun returns the timestamp of the last notified run, or zero time when
// no run has completed yet.
func (d *DB) LastRun(ctx context.Context) (time.Time, error) {
	var value string
	err := d.Pool.QueryRowContext(ctx,
		`SELECT value FROM run_state WHERE key = ?;`, lastRunKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastRun records when a run completed and its report went out.
func (d *DB) SetLastRun(ctx context.Context, t time.Time) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO run_state(key, value) VALUES(?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
		lastRunKey, t.UTC().Format(time.RFC3339))
	return err
}
