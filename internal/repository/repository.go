// Package repository declares the storage contracts the services depend on.
// The sqlite sub-package is the only production implementation.
package repository

import (
	"context"

	"github.com/sakif/botpanel/internal/model"
)

// UserRepository persists panel users.
type UserRepository interface {
	// Upsert inserts the user if its DiscordID is unseen, otherwise refreshes
	// Username and Avatar on the existing row. On return *user holds the stored
	// row (ID, IsAdmin, IsAuthed, CreatedAt). IsAdmin on input is only honored
	// for the insert path.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByDiscordID(ctx context.Context, discordID string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetAuthed(ctx context.Context, id string, authed bool) (*model.User, error)
	SetAdminByDiscordID(ctx context.Context, discordID string, admin bool) (*model.User, error)
	// DeleteUser removes the user and, through the foreign key, every account
	// and activity row it owns.
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}

// AccountRepository persists hosted accounts. Every mutation after Create is a
// single UPDATE ... RETURNING so concurrent owner and admin actions on the same
// row never lose an update.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccountsByUser(ctx context.Context, userID string) ([]model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	// DeleteAccount is a no-op when the id does not exist.
	DeleteAccount(ctx context.Context, id string) error
	UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus, pid *int) (*model.Account, error)
	UpdateAccountProfile(ctx context.Context, id string, profile model.AccountProfile) (*model.Account, error)
	CountAccounts(ctx context.Context) (total, online int, err error)
}

// ActivityRepository is the append-only audit log.
type ActivityRepository interface {
	RecordActivity(ctx context.Context, entry *model.Activity) error
	ListActivity(ctx context.Context, limit int) ([]model.Activity, error)
}
