package store

import (
	"context"
	"time"

	"homescout-engine/internal/domain"
)

// RecordScouted remembers a reported location so later runs can skip its
// address without re-querying the routing backend. Returns true when the
// address was new.
func (d *DB) RecordScouted(ctx context.Context, loc domain.ScoutedLocation, reportedAt time.Time) (bool, error) {
	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO scouted_history(address, price_per_month, link, total_commute_minutes, first_reported)
VALUES(?,?,?,?,?);`,
		loc.Listing.Address,
		loc.Listing.PricePerMonth,
		loc.Listing.Link,
		loc.TotalCommuteMinutes,
		reportedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ReportedAddresses returns every address reported by a previous run.
func (d *DB) ReportedAddresses(ctx context.Context) (map[string]bool, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT address FROM scouted_history;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out[addr] = true
	}
	return out, rows.Err()
}
