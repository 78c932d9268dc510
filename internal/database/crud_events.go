// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
)

const eventColumns = `platform, external_id, name, start_time, end_time, url, mode, location, last_seen_at`

const upsertEventSQL = `INSERT INTO events (
		platform, external_id, category, name, start_time, end_time,
		url, mode, location, first_seen_at, last_seen_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (platform, external_id) DO UPDATE SET
		name = EXCLUDED.name,
		start_time = EXCLUDED.start_time,
		end_time = EXCLUDED.end_time,
		url = EXCLUDED.url,
		mode = EXCLUDED.mode,
		location = EXCLUDED.location,
		last_seen_at = EXCLUDED.last_seen_at`

// distinctColumns whitelists the columns Distinct may select.
var distinctColumns = map[store.Field]string{
	store.FieldPlatform: "platform",
	store.FieldMode:     "mode",
	store.FieldLocation: "location",
}

// Upsert inserts e or overwrites the row with the same (platform, external_id).
// Transaction conflicts from concurrent writers are retried.
func (db *DB) Upsert(ctx context.Context, e models.Event) error {
	key := e.Key()
	if db.closed.Load() {
		return store.Wrap("upsert", key, store.ErrClosed)
	}
	mode := e.Mode
	if mode == "" {
		mode = models.ModeUnknown
	}

	var err error
	for attempt := 0; attempt <= db.maxConflictRetries; attempt++ {
		if attempt > 0 {
			logging.Debug().Str("key", key).Int("attempt", attempt).Msg("Retrying upsert after transaction conflict")
			select {
			case <-time.After(time.Duration(attempt) * db.conflictDelay):
			case <-ctx.Done():
				return store.Wrap("upsert", key, ctx.Err())
			}
		}
		_, err = db.conn.ExecContext(ctx, upsertEventSQL,
			string(e.Platform), e.ExternalID, string(e.Platform.Category()), e.Name,
			e.StartTime.UTC(), e.EndTime.UTC(), e.URL, string(mode), e.Location,
			e.LastSeenAt.UTC(), e.LastSeenAt.UTC(),
		)
		if err == nil || !isTransactionConflict(err) {
			break
		}
	}
	return store.Wrap("upsert", key, err)
}

// Find returns events matching f ordered by start time. limit <= 0 means
// no limit.
func (db *DB) Find(ctx context.Context, f store.Filter, s store.Sort, limit int) ([]models.Event, error) {
	if db.closed.Load() {
		return nil, store.Wrap("find", "", store.ErrClosed)
	}
	where, args := buildWhere(f)

	var q strings.Builder
	q.WriteString("SELECT " + eventColumns + " FROM events" + where)
	if s == store.SortStartDesc {
		q.WriteString(" ORDER BY start_time DESC, platform ASC, external_id ASC")
	} else {
		q.WriteString(" ORDER BY start_time ASC, platform ASC, external_id ASC")
	}
	if limit > 0 {
		fmt.Fprintf(&q, " LIMIT %d", limit)
	}
	if f.Offset > 0 {
		fmt.Fprintf(&q, " OFFSET %d", f.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, store.Wrap("find", "", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, store.Wrap("find", "", fmt.Errorf("failed to scan event: %w", err))
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("find", "", fmt.Errorf("error iterating events: %w", err))
	}
	return events, nil
}

// DeleteMany removes events selected by p and returns how many went.
func (db *DB) DeleteMany(ctx context.Context, p store.Predicate) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, store.Wrap("delete", "", err)
	}
	if db.closed.Load() {
		return 0, store.Wrap("delete", "", store.ErrClosed)
	}
	query := `DELETE FROM events WHERE start_time < ? AND last_seen_at < ?`
	args := []any{p.StartBefore.UTC(), p.LastSeenBefore.UTC()}
	if len(p.Platforms) > 0 {
		in, platformArgs := platformsIn(p.Platforms)
		query += " AND " + in
		args = append(args, platformArgs...)
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, store.Wrap("delete", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, store.Wrap("delete", "", err)
	}
	return int(n), nil
}

// CountDocuments counts events matching f. Offset is ignored.
func (db *DB) CountDocuments(ctx context.Context, f store.Filter) (int, error) {
	if db.closed.Load() {
		return 0, store.Wrap("count", "", store.ErrClosed)
	}
	where, args := buildWhere(f)
	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&n); err != nil {
		return 0, store.Wrap("count", "", err)
	}
	return int(n), nil
}

// Distinct returns the sorted non-empty values of field over matching events.
func (db *DB) Distinct(ctx context.Context, field store.Field, f store.Filter) ([]string, error) {
	col, ok := distinctColumns[field]
	if !ok {
		return nil, store.Wrap("distinct", string(field), store.ErrUnknownField)
	}
	if db.closed.Load() {
		return nil, store.Wrap("distinct", string(field), store.ErrClosed)
	}
	where, args := buildWhere(f)
	if where == "" {
		where = " WHERE "
	} else {
		where += " AND "
	}
	query := "SELECT DISTINCT " + col + " FROM events" + where + col + " <> '' ORDER BY " + col

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Wrap("distinct", string(field), err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, store.Wrap("distinct", string(field), err)
		}
		values = append(values, v)
	}
	return values, store.Wrap("distinct", string(field), rows.Err())
}

// buildWhere renders f as a WHERE clause with positional arguments.
func buildWhere(f store.Filter) (string, []any) {
	var conds []string
	var args []any

	if len(f.Platforms) > 0 {
		in, platformArgs := platformsIn(f.Platforms)
		conds = append(conds, in)
		args = append(args, platformArgs...)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if !f.StartAfter.IsZero() {
		conds = append(conds, "start_time >= ?")
		args = append(args, f.StartAfter.UTC())
	}
	if !f.StartBefore.IsZero() {
		conds = append(conds, "start_time < ?")
		args = append(args, f.StartBefore.UTC())
	}
	if !f.EndAfter.IsZero() {
		conds = append(conds, "end_time > ?")
		args = append(args, f.EndAfter.UTC())
	}
	if f.Location != "" {
		conds = append(conds, "contains(lower(location), ?)")
		args = append(args, strings.ToLower(f.Location))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func platformsIn(platforms []models.Platform) (string, []any) {
	placeholders := make([]string, len(platforms))
	args := make([]any, len(platforms))
	for i, p := range platforms {
		placeholders[i] = "?"
		args[i] = string(p)
	}
	return "platform IN (" + strings.Join(placeholders, ", ") + ")", args
}

func scanEvent(rows *sql.Rows) (models.Event, error) {
	var (
		e                    models.Event
		platform, mode       string
		start, end, lastSeen time.Time
	)
	if err := rows.Scan(&platform, &e.ExternalID, &e.Name, &start, &end, &e.URL, &mode, &e.Location, &lastSeen); err != nil {
		return e, err
	}
	e.Platform = models.Platform(platform)
	e.Mode = models.Mode(mode)
	e.StartTime = start.UTC()
	e.EndTime = end.UTC()
	e.LastSeenAt = lastSeen.UTC()
	return e, nil
}
