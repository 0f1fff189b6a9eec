package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/auth"
	"github.com/sakif/botpanel/internal/model"
)

// =========================================================================
// AUTHENTICATE TESTS
// =========================================================================

func TestAuthenticate_CreatesUserOnFirstLogin(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.auth.Authenticate(context.Background(),
		&auth.DiscordUser{ID: "D1", Username: "alice", AvatarURL: "https://cdn/a.png"}, "10.0.0.1")
	require.NoError(t, err)

	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "D1", res.User.DiscordID)
	assert.False(t, res.User.IsAdmin)
	assert.False(t, res.User.IsAuthed)
	assert.NotEmpty(t, res.Cookie)

	entries, err := env.db.ListActivity(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionUserLogin, entries[0].Action)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
}

func TestAuthenticate_RepeatLoginKeepsOneUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.auth.Authenticate(ctx, &auth.DiscordUser{ID: "D1", Username: "alice"}, "")
	require.NoError(t, err)
	second, err := env.auth.Authenticate(ctx, &auth.DiscordUser{ID: "D1", Username: "alice2", AvatarURL: "new"}, "")
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "alice2", second.User.Username)
	assert.Equal(t, "new", second.User.Avatar)

	n, err := env.db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAuthenticate_AdminAllowList(t *testing.T) {
	env := newTestEnv(t)

	admin, _ := env.login(t, "admin-discord-id", "root")
	member, _ := env.login(t, "someone-else", "member")

	assert.True(t, admin.IsAdmin)
	assert.False(t, member.IsAdmin)
}

func TestAuthenticate_LoginDoesNotResetFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin, _ := env.login(t, "admin-discord-id", "root")
	member, _ := env.login(t, "D1", "alice")
	_, err := env.admin.AuthorizeUser(ctx, admin, member.UserID)
	require.NoError(t, err)

	res, err := env.auth.Authenticate(ctx, &auth.DiscordUser{ID: "D1", Username: "alice"}, "")
	require.NoError(t, err)
	assert.True(t, res.User.IsAuthed)
}

func TestAuthenticate_RejectsMissingID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Authenticate(context.Background(), &auth.DiscordUser{Username: "ghost"}, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.auth.Authenticate(context.Background(), nil, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// CURRENT USER / LOGOUT TESTS
// =========================================================================

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller, cookie := env.login(t, "D1", "alice")

	user, err := env.auth.CurrentUser(ctx, cookie)
	require.NoError(t, err)
	assert.Equal(t, caller.UserID, user.ID)

	_, err = env.auth.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = env.auth.CurrentUser(ctx, "forged.cookie.value")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestLogout_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, cookie := env.login(t, "D1", "alice")

	env.auth.Logout(ctx, cookie)
	env.auth.Logout(ctx, cookie)
	env.auth.Logout(ctx, "")

	_, err := env.auth.CurrentUser(ctx, cookie)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestCurrentUser_DeletedUserIsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, _ := env.login(t, "admin-discord-id", "root")
	member, cookie := env.login(t, "D1", "alice")

	require.NoError(t, env.admin.DeleteUser(ctx, admin, member.UserID))

	_, err := env.auth.CurrentUser(ctx, cookie)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}
