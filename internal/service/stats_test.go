package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.login(t, "D1", "alice")
	env.login(t, "D2", "bob")
	a := env.createAccount(t, alice, "a")
	env.createAccount(t, alice, "b")
	_, err := env.accounts.Start(ctx, alice, a.ID)
	require.NoError(t, err)

	stats, err := env.stats.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveBots)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalAccounts)
}
