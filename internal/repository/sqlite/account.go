package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

// errUnreadableToken marks a row whose stored token cannot be opened with the
// configured key.
var errUnreadableToken = errors.New("stored token cannot be opened")

const accountColumns = `id, user_id, token, discord_username, discord_avatar,
	guilds_count, friends_count, status, pid, created_at`

// CreateAccount inserts a new account. ID, Status, PID and CreatedAt are
// assigned here; the token is sealed before it reaches the table.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	sealed, err := db.sealer.Seal(account.Token)
	if err != nil {
		return fmt.Errorf("sqlite: sealing token: %w", err)
	}

	account.ID = xid.New().String()
	account.Status = model.StatusOffline
	account.PID = nil
	account.CreatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, token, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.ID,
		account.UserID,
		sealed,
		account.Status,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting account for user %s: %w", account.UserID, err)
	}
	return nil
}

// GetAccount retrieves one account. Returns apperror.ErrNotFound when absent.
func (db *DB) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	a, err := db.scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return a, nil
}

// ListAccountsByUser returns the accounts of one owner in insertion order.
func (db *DB) ListAccountsByUser(ctx context.Context, userID string) ([]model.Account, error) {
	return db.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY rowid`, userID)
}

// ListAccounts returns every account in insertion order.
func (db *DB) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return db.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY rowid`)
}

// DeleteAccount removes an account. Deleting an unknown id is not an error.
func (db *DB) DeleteAccount(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", id, err)
	}
	return nil
}

// UpdateAccountStatus sets status and pid in one statement and returns the row.
func (db *DB) UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus, pid *int) (*model.Account, error) {
	var pidValue sql.NullInt64
	if pid != nil {
		pidValue = sql.NullInt64{Int64: int64(*pid), Valid: true}
	}

	row := db.conn.QueryRowContext(ctx,
		`UPDATE accounts SET status = ?, pid = ? WHERE id = ? RETURNING `+accountColumns,
		status, pidValue, id)

	a, err := db.scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: updating status of account %s: %w", id, err)
	}
	return a, nil
}

// UpdateAccountProfile stores freshly validated Discord profile fields and marks
// the account online.
func (db *DB) UpdateAccountProfile(ctx context.Context, id string, p model.AccountProfile) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`UPDATE accounts
		 SET discord_username = ?, discord_avatar = ?, guilds_count = ?, friends_count = ?, status = ?
		 WHERE id = ?
		 RETURNING `+accountColumns,
		p.DiscordUsername,
		p.DiscordAvatar,
		p.GuildsCount,
		p.FriendsCount,
		model.StatusOnline,
		id,
	)

	a, err := db.scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: updating profile of account %s: %w", id, err)
	}
	return a, nil
}

// CountAccounts returns the total number of accounts and how many are online.
func (db *DB) CountAccounts(ctx context.Context) (total, online int, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM accounts`,
		model.StatusOnline,
	).Scan(&total, &online)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: counting accounts: %w", err)
	}
	return total, online, nil
}

func (db *DB) queryAccounts(ctx context.Context, query string, args ...any) ([]model.Account, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := db.scanAccount(rows)
		if errors.Is(err, errUnreadableToken) {
			// One bad row must not hide the rest of the list.
			db.logger.Warn("skipping account with unreadable token", slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating accounts: %w", err)
	}
	return accounts, nil
}

func (db *DB) scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a      model.Account
		sealed string
		status string
		pid    sql.NullInt64
	)
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&sealed,
		&a.DiscordUsername,
		&a.DiscordAvatar,
		&a.GuildsCount,
		&a.FriendsCount,
		&status,
		&pid,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}

	token, err := db.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w: %w", a.ID, errUnreadableToken, err)
	}
	a.Token = token
	a.Status = model.AccountStatus(status)
	if pid.Valid {
		v := int(pid.Int64)
		a.PID = &v
	}
	return &a, nil
}
