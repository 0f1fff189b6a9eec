package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every SessionStore must share.
func exerciseStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()
	id := xid.New().String()

	_, err := store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, id, "user-1", time.Minute))

	userID, err := store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, store.Delete(ctx, id), "deleting twice is not an error")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(16, time.Hour))
}

func TestMemoryStore_PerSessionTTL(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", "user-1", time.Minute))
	require.NoError(t, store.Save(ctx, "long", "user-2", 30*time.Minute))

	now = now.Add(2 * time.Minute)

	_, err := store.Lookup(ctx, "short")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	userID, err := store.Lookup(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	store := NewMemoryStore(2, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", "user-a", time.Hour))
	require.NoError(t, store.Save(ctx, "b", "user-b", time.Hour))
	require.NoError(t, store.Save(ctx, "c", "user-c", time.Hour))

	_, err := store.Lookup(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 2, store.Len())
}

// TestRedisStore needs a reachable server, e.g. REDIS_TEST_URL=redis://localhost:6379/15.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	client, err := NewRedisClient(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	exerciseStore(t, NewRedisStore(client))
}
