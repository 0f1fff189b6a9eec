package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

var _ repository.ActivityRepository = (*DB)(nil)

// RecordActivity appends an audit entry. An empty UserID is stored as NULL.
func (db *DB) RecordActivity(ctx context.Context, entry *model.Activity) error {
	var userID sql.NullString
	if entry.UserID != "" {
		userID = sql.NullString{String: entry.UserID, Valid: true}
	}
	entry.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, action, details, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID,
		entry.Action,
		entry.Details,
		entry.IPAddress,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording activity %s: %w", entry.Action, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListActivity returns the newest entries first.
func (db *DB) ListActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, action, details, ip_address, created_at
		 FROM activity_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activity: %w", err)
	}
	defer rows.Close()

	entries := []model.Activity{}
	for rows.Next() {
		var (
			e      model.Activity
			userID sql.NullString
		)
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.Details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity: %w", err)
		}
		e.UserID = userID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activity: %w", err)
	}
	return entries, nil
}
