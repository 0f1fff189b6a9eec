package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/botpanel/internal/auth"
	"github.com/sakif/botpanel/internal/discord"
	"github.com/sakif/botpanel/internal/launcher"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository/sqlite"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Storage is the real SQLite repository on a temp file: the atomic
// UPDATE ... RETURNING behaviour is part of what these tests check. Only the
// two external collaborators, the process launcher and Discord, are faked.

// fakeLauncher records calls and hands out increasing pids.
type fakeLauncher struct {
	mu        sync.Mutex
	startErr  error
	stopErr   error
	removeErr error
	nextPID   int
	running   map[string]int
	stopped   []string
	removed   []string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{nextPID: 1000, running: make(map[string]int)}
}

func (f *fakeLauncher) Start(_ context.Context, spec launcher.Spec) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return 0, f.startErr
	}
	if pid, ok := f.running[spec.Name]; ok {
		return pid, nil
	}
	f.nextPID++
	f.running[spec.Name] = f.nextPID
	return f.nextPID, nil
}

func (f *fakeLauncher) Stop(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, name)
	if f.stopErr != nil {
		return f.stopErr
	}
	delete(f.running, name)
	return nil
}

func (f *fakeLauncher) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	return f.removeErr
}

func (f *fakeLauncher) isRunning(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.running[name]
	return ok
}

// fakeProvider returns a fixed profile per token and rejects everything else.
type fakeProvider struct {
	mu       sync.Mutex
	profiles map[string]*discord.Profile
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{profiles: make(map[string]*discord.Profile)}
}

func (f *fakeProvider) add(token string, p *discord.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[token] = p
}

func (f *fakeProvider) FetchProfile(ctx context.Context, token string) (*discord.Profile, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[token]
	if !ok {
		return nil, discord.ErrInvalidToken
	}
	return p, nil
}

var errLauncherDown = errors.New("docker: connection refused")

// =========================================================================
// FIXTURE
// =========================================================================

type testEnv struct {
	db        *sqlite.DB
	launcher  *fakeLauncher
	provider  *fakeProvider
	validator *ValidatorService
	accounts  *AccountService
	admin     *AdminService
	auth      *AuthService
	stats     *StatsService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, false, "admin-discord-id")
}

func newTestEnvWith(t *testing.T, strict bool, adminIDs ...string) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("service-test-secret-32-bytes!!!")
	require.NoError(t, err)
	sessions := auth.NewSessions(tokens, auth.NewMemoryStore(64, time.Hour), time.Hour)

	logger := testLogger()
	l := newFakeLauncher()
	p := newFakeProvider()
	v := NewValidatorService(db, p, 3, logger)

	return &testEnv{
		db:        db,
		launcher:  l,
		provider:  p,
		validator: v,
		accounts:  NewAccountService(db, db, l, v, strict, logger),
		admin:     NewAdminService(db, db, db, l, v, strict, logger),
		auth:      NewAuthService(db, db, sessions, adminIDs, logger),
		stats:     NewStatsService(db, db),
	}
}

// login authenticates a Discord identity and returns the caller for it.
func (e *testEnv) login(t *testing.T, discordID, username string) (Caller, string) {
	t.Helper()
	res, err := e.auth.Authenticate(context.Background(), &auth.DiscordUser{ID: discordID, Username: username}, "127.0.0.1")
	require.NoError(t, err)
	return CallerFor(res.User, "127.0.0.1"), res.Cookie
}

func (e *testEnv) createAccount(t *testing.T, caller Caller, token string) *model.Account {
	t.Helper()
	a, err := e.accounts.Create(context.Background(), caller, token)
	require.NoError(t, err)
	return a
}
