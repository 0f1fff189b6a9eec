package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/secret"
)

func TestCreateAccount_Defaults(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "D1", "owner")

	account := createTestAccount(t, db, user.ID, "abcdefghijklmnopqrstuvwxyz")

	if account.ID == "" {
		t.Fatal("CreateAccount() did not set ID")
	}
	if account.Status != model.StatusOffline {
		t.Errorf("Status = %q, want offline", account.Status)
	}
	if account.PID != nil {
		t.Errorf("PID = %v, want nil", *account.PID)
	}

	found, err := db.GetAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if found.Token != "abcdefghijklmnopqrstuvwxyz" {
		t.Errorf("Token = %q, want original", found.Token)
	}
	if found.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", found.UserID, user.ID)
	}
}

func TestCreateAccount_UnknownOwnerRejected(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateAccount(context.Background(), &model.Account{UserID: "ghost", Token: "t"})
	if err == nil {
		t.Fatal("CreateAccount() should fail the foreign key for an unknown user")
	}
}

func TestCreateAccount_SealsTokenAtRest(t *testing.T) {
	sealer, err := secret.New("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	if err != nil {
		t.Fatalf("secret.New() error = %v", err)
	}
	db := newTestDBWithSealer(t, sealer)
	user := createTestUser(t, db, "D1", "owner")
	account := createTestAccount(t, db, user.ID, "super-secret-token")

	var stored string
	if err := db.conn.QueryRow(`SELECT token FROM accounts WHERE id = ?`, account.ID).Scan(&stored); err != nil {
		t.Fatalf("reading raw token: %v", err)
	}
	if stored == "super-secret-token" {
		t.Error("token stored in the clear")
	}

	found, err := db.GetAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if found.Token != "super-secret-token" {
		t.Errorf("Token = %q, want decrypted value", found.Token)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetAccount(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetAccount() error = %v, want ErrNotFound", err)
	}
}

func TestListAccountsByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "A", "alice")
	bob := createTestUser(t, db, "B", "bob")

	first := createTestAccount(t, db, alice.ID, "a1")
	createTestAccount(t, db, bob.ID, "b1")
	second := createTestAccount(t, db, alice.ID, "a2")

	accounts, err := db.ListAccountsByUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListAccountsByUser() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("len = %d, want 2", len(accounts))
	}
	if accounts[0].ID != first.ID || accounts[1].ID != second.ID {
		t.Errorf("order = [%s %s], want [%s %s]", accounts[0].ID, accounts[1].ID, first.ID, second.ID)
	}

	none, err := db.ListAccountsByUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListAccountsByUser(nobody) error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", none)
	}
}

func TestDeleteAccount_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "D1", "owner")
	account := createTestAccount(t, db, user.ID, "tok")

	if err := db.DeleteAccount(ctx, account.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if err := db.DeleteAccount(ctx, account.ID); err != nil {
		t.Errorf("second DeleteAccount() error = %v, want nil", err)
	}

	if _, err := db.GetAccount(ctx, account.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("account still present: %v", err)
	}
}

func TestUpdateAccountStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "D1", "owner")
	account := createTestAccount(t, db, user.ID, "tok")

	pid := 4242
	online, err := db.UpdateAccountStatus(ctx, account.ID, model.StatusOnline, &pid)
	if err != nil {
		t.Fatalf("UpdateAccountStatus(online) error = %v", err)
	}
	if online.Status != model.StatusOnline || online.PID == nil || *online.PID != 4242 {
		t.Errorf("after start: status=%q pid=%v", online.Status, online.PID)
	}

	offline, err := db.UpdateAccountStatus(ctx, account.ID, model.StatusOffline, nil)
	if err != nil {
		t.Fatalf("UpdateAccountStatus(offline) error = %v", err)
	}
	if offline.Status != model.StatusOffline || offline.PID != nil {
		t.Errorf("after stop: status=%q pid=%v", offline.Status, offline.PID)
	}
}

func TestUpdateAccountStatus_RejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "D1", "owner")
	account := createTestAccount(t, db, user.ID, "tok")

	_, err := db.UpdateAccountStatus(context.Background(), account.ID, model.AccountStatus("starting"), nil)
	if err == nil {
		t.Error("CHECK constraint should reject an unknown status")
	}
}

func TestUpdateAccountStatus_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.UpdateAccountStatus(context.Background(), "missing", model.StatusOnline, nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateAccountProfile(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "D1", "owner")
	account := createTestAccount(t, db, user.ID, "tok")

	updated, err := db.UpdateAccountProfile(context.Background(), account.ID, model.AccountProfile{
		DiscordUsername: "hosted",
		DiscordAvatar:   "https://cdn.discordapp.com/avatars/1/x.png",
		GuildsCount:     12,
		FriendsCount:    30,
	})
	if err != nil {
		t.Fatalf("UpdateAccountProfile() error = %v", err)
	}
	if updated.DiscordUsername != "hosted" || updated.GuildsCount != 12 || updated.FriendsCount != 30 {
		t.Errorf("profile not stored: %+v", updated)
	}
	if updated.Status != model.StatusOnline {
		t.Errorf("Status = %q, want online", updated.Status)
	}
	if updated.Token != "tok" {
		t.Errorf("Token changed: %q", updated.Token)
	}
}

func TestUpdateAccountStatus_ConcurrentWritersLeaveValidRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "D1", "owner")
	account := createTestAccount(t, db, user.ID, "tok")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := i + 1
			if _, err := db.UpdateAccountStatus(ctx, account.ID, model.StatusOnline, &pid); err != nil {
				t.Errorf("concurrent update %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	final, err := db.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if final.Status != model.StatusOnline || final.PID == nil {
		t.Errorf("final row = status %q pid %v", final.Status, final.PID)
	}
}

func TestCountAccounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	total, online, err := db.CountAccounts(ctx)
	if err != nil {
		t.Fatalf("CountAccounts() on empty db error = %v", err)
	}
	if total != 0 || online != 0 {
		t.Errorf("empty db: total=%d online=%d", total, online)
	}

	user := createTestUser(t, db, "D1", "owner")
	a := createTestAccount(t, db, user.ID, "a")
	createTestAccount(t, db, user.ID, "b")
	pid := 1
	if _, err := db.UpdateAccountStatus(ctx, a.ID, model.StatusOnline, &pid); err != nil {
		t.Fatal(err)
	}

	total, online, err = db.CountAccounts(ctx)
	if err != nil {
		t.Fatalf("CountAccounts() error = %v", err)
	}
	if total != 2 || online != 1 {
		t.Errorf("total=%d online=%d, want 2/1", total, online)
	}
}

func TestListAccounts_SkipsUnreadableToken(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "D1", "owner")
	good := createTestAccount(t, db, user.ID, "readable-token")
	bad := createTestAccount(t, db, user.ID, "placeholder")

	// A value that looks sealed cannot be opened without a key.
	if _, err := db.conn.ExecContext(context.Background(),
		`UPDATE accounts SET token = ? WHERE id = ?`, "enc:v1:whatever", bad.ID); err != nil {
		t.Fatalf("corrupting token: %v", err)
	}

	byUser, err := db.ListAccountsByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListAccountsByUser() error = %v", err)
	}
	if len(byUser) != 1 || byUser[0].ID != good.ID {
		t.Errorf("ListAccountsByUser() = %+v, want only %s", byUser, good.ID)
	}

	all, err := db.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListAccounts() returned %d accounts, want 1", len(all))
	}

	if _, err := db.GetAccount(context.Background(), bad.ID); err == nil {
		t.Error("GetAccount() on an unreadable row should fail")
	}

	if err := db.DeleteAccount(context.Background(), bad.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	total, _, err := db.CountAccounts(context.Background())
	if err != nil {
		t.Fatalf("CountAccounts() error = %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1 after deleting the unreadable row", total)
	}
}
