package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/secret"
)

// newTestDB opens a fresh database file under t.TempDir().
func newTestDB(t *testing.T) *DB {
	t.Helper()
	return newTestDBWithSealer(t, nil)
}

func newTestDBWithSealer(t *testing.T, sealer *secret.Sealer) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"), sealer)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, discordID, username string) *model.User {
	t.Helper()
	user := &model.User{DiscordID: discordID, Username: username}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestAccount(t *testing.T, db *DB, userID, token string) *model.Account {
	t.Helper()
	account := &model.Account{UserID: userID, Token: token}
	if err := db.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	first, err := New(path, nil)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	createTestUser(t, first, "1001", "persisted")
	first.Close()

	second, err := New(path, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer second.Close()

	if _, err := second.GetUserByDiscordID(context.Background(), "1001"); err != nil {
		t.Errorf("user lost after reopening: %v", err)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
