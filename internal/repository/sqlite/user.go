package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, discord_id, username, avatar, is_admin, is_authed, created_at`

// Upsert inserts or updates a user keyed by Discord ID.
//
// INSERT ... ON CONFLICT DO UPDATE runs as one statement, so two logins racing
// for the same Discord ID still produce exactly one row. Only username and
// avatar are refreshed on conflict; the admin and authed flags of an existing
// user are never touched by a login.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, discord_id, username, avatar, is_admin, is_authed, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(discord_id) DO UPDATE SET
		     username = excluded.username,
		     avatar   = excluded.avatar
		 RETURNING `+userColumns,
		xid.New().String(),
		user.DiscordID,
		user.Username,
		user.Avatar,
		user.IsAdmin,
		time.Now().UTC(),
	)

	stored, err := scanUser(row)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (discordID=%s): %w", user.DiscordID, err)
	}

	*user = *stored
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByDiscordID retrieves a user by external identity.
func (db *DB) GetUserByDiscordID(ctx context.Context, discordID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE discord_id = ?`, discordID)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", discordID)
		}
		return nil, fmt.Errorf("sqlite: getting user by discord id %s: %w", discordID, err)
	}
	return u, nil
}

// ListUsers returns every user in insertion order.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// SetAuthed sets the is_authed flag and returns the updated row.
func (db *DB) SetAuthed(ctx context.Context, id string, authed bool) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`UPDATE users SET is_authed = ? WHERE id = ? RETURNING `+userColumns,
		authed, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	return u, nil
}

// SetAdminByDiscordID grants or revokes the admin role of an existing user.
func (db *DB) SetAdminByDiscordID(ctx context.Context, discordID string, admin bool) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`UPDATE users SET is_admin = ? WHERE discord_id = ? RETURNING `+userColumns,
		admin, discordID)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", discordID)
		}
		return nil, fmt.Errorf("sqlite: updating admin flag for %s: %w", discordID, err)
	}
	return u, nil
}

// DeleteUser removes a user. Accounts and activity rows go with it through
// ON DELETE CASCADE.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// CountUsers returns the number of registered users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.DiscordID,
		&u.Username,
		&u.Avatar,
		&u.IsAdmin,
		&u.IsAuthed,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
