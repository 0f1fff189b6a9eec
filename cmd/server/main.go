// Package main is the entry point for the bot panel server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (internal/config)
//  2. Create dependencies (database, session store, launcher, Discord client)
//  3. Wire services and start the HTTP server
//
// All actual logic lives in the internal/ packages.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/botpanel/internal/auth"
	"github.com/sakif/botpanel/internal/config"
	"github.com/sakif/botpanel/internal/discord"
	"github.com/sakif/botpanel/internal/launcher"
	"github.com/sakif/botpanel/internal/launcher/docker"
	sqliteRepo "github.com/sakif/botpanel/internal/repository/sqlite"
	"github.com/sakif/botpanel/internal/scheduler"
	"github.com/sakif/botpanel/internal/secret"
	"github.com/sakif/botpanel/internal/server"
	"github.com/sakif/botpanel/internal/service"
)

// memorySessionLimit bounds the in-process session store.
const memorySessionLimit = 10_000

func main() {
	// === 1. CONFIGURATION + LOGGING ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// === 2. DATABASE ===
	// os.MkdirAll is `mkdir -p`: the data directory is created on first run.
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	sealer := secret.Plaintext()
	if cfg.TokenEncryptionKey != "" {
		s, err := secret.New(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY: %w", err)
		}
		sealer = s
	} else {
		logger.Warn("TOKEN_ENCRYPTION_KEY not set, account tokens are stored unencrypted")
	}

	db, err := sqliteRepo.New(cfg.DBPath, sealer)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// === 3. SESSIONS ===
	// Without JWT_SECRET Discord login is disabled. A random secret still backs
	// the session verifier so every protected route simply answers 401.
	oauthEnabled := cfg.OAuthEnabled()
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set, authentication is disabled")
		jwtSecret, err = randomSecret()
		if err != nil {
			return err
		}
	}
	tokens, err := auth.NewTokenService(jwtSecret)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}

	var store auth.SessionStore
	if cfg.RedisURL != "" {
		rdb, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		store = auth.NewRedisStore(rdb)
		logger.Info("sessions stored in redis")
	} else {
		store = auth.NewMemoryStore(memorySessionLimit, cfg.SessionTTL)
		logger.Info("sessions stored in memory, they end on restart")
	}
	sessions := auth.NewSessions(tokens, store, cfg.SessionTTL)

	// === 4. LAUNCHER ===
	// Docker is optional. Without it every launch records a placeholder pid,
	// or fails with 502 when LAUNCHER_STRICT is set.
	var l launcher.Launcher = launcher.Unavailable{}
	dockerCfg := docker.DefaultConfig()
	dockerCfg.Image = cfg.Launcher.Image
	dockerCfg.Timeout = cfg.Launcher.Timeout
	if dl, err := docker.New(dockerCfg, logger); err != nil {
		logger.Warn("Docker launcher unavailable, instances will not really run",
			slog.String("error", err.Error()),
		)
	} else {
		defer dl.Close()
		l = dl
	}

	// === 5. SERVICES ===
	identity := discord.NewClient(cfg.Discord.Timeout)
	validator := service.NewValidatorService(db, identity, cfg.ValidateConcurrency, logger)

	authService := service.NewAuthService(db, db, sessions, cfg.Discord.AdminIDs, logger)
	deps := server.Dependencies{
		DB:       db,
		Auth:     authService,
		Accounts: service.NewAccountService(db, db, l, validator, cfg.Launcher.Strict, logger),
		Admin:    service.NewAdminService(db, db, db, l, validator, cfg.Launcher.Strict, logger),
		Stats:    service.NewStatsService(db, db),
	}
	if oauthEnabled {
		deps.OAuth = auth.NewDiscordProvider(cfg.Discord.ClientID, cfg.Discord.ClientSecret, cfg.Discord.RedirectURL).
			WithTimeout(cfg.Discord.Timeout)
	} else if cfg.JWTSecret != "" {
		logger.Warn("DISCORD_CLIENT_ID or DISCORD_CLIENT_SECRET not set, Discord login is disabled")
	}

	// === 6. SCHEDULED REVALIDATION ===
	sched, err := scheduler.New(cfg.ValidateSchedule, validator, 10*time.Minute, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	// === 7. HTTP SERVER ===
	// Start() blocks until SIGINT/SIGTERM.
	srv := server.New(server.Config{
		Port:          cfg.Port,
		SecureCookies: cfg.SecureCookies,
	}, deps, logger)

	return srv.Start()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
