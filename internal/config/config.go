// Package config loads server configuration from the environment.
//
// A .env file in the working directory is read first if present. Real
// environment variables always win over .env entries because godotenv.Load
// never overwrites a variable that is already set.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   int
	DBPath string

	JWTSecret     string
	SessionTTL    time.Duration
	SecureCookies bool

	Discord DiscordConfig

	Launcher LauncherConfig

	ValidateConcurrency int
	ValidateSchedule    string

	TokenEncryptionKey string
	RedisURL           string

	LogLevel  slog.Level
	LogFormat string
}

type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AdminIDs are Discord user ids that become admins on first login.
	AdminIDs []string
	Timeout  time.Duration
}

type LauncherConfig struct {
	Image   string
	Timeout time.Duration
	// Strict makes start/stop report launcher failures instead of recording a
	// placeholder state.
	Strict bool
}

// Load reads the configuration. Malformed numeric, boolean or duration values
// are errors rather than silent fallbacks.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		fail("PORT", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "168h"))
	if err != nil {
		fail("SESSION_TTL", err)
	}

	discordTimeout, err := time.ParseDuration(getEnv("DISCORD_TIMEOUT", "8s"))
	if err != nil {
		fail("DISCORD_TIMEOUT", err)
	}

	launcherTimeout, err := time.ParseDuration(getEnv("LAUNCHER_TIMEOUT", "10s"))
	if err != nil {
		fail("LAUNCHER_TIMEOUT", err)
	}

	strict, err := strconv.ParseBool(getEnv("LAUNCHER_STRICT", "false"))
	if err != nil {
		fail("LAUNCHER_STRICT", err)
	}

	secure, err := strconv.ParseBool(getEnv("SECURE_COOKIES", "false"))
	if err != nil {
		fail("SECURE_COOKIES", err)
	}

	concurrency, err := strconv.Atoi(getEnv("VALIDATE_CONCURRENCY", "5"))
	if err == nil && concurrency < 1 {
		err = fmt.Errorf("must be at least 1, got %d", concurrency)
	}
	if err != nil {
		fail("VALIDATE_CONCURRENCY", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		fail("LOG_LEVEL", err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	return &Config{
		Port:   port,
		DBPath: getEnv("DB_PATH", "data/botpanel.db"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionTTL:    sessionTTL,
		SecureCookies: secure,

		Discord: DiscordConfig{
			ClientID:     getEnv("DISCORD_CLIENT_ID", ""),
			ClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("DISCORD_REDIRECT_URL", fmt.Sprintf("http://localhost:%d/auth/discord/callback", port)),
			AdminIDs:     splitList(getEnv("ADMIN_DISCORD_IDS", "")),
			Timeout:      discordTimeout,
		},

		Launcher: LauncherConfig{
			Image:   getEnv("LAUNCHER_IMAGE", "ghcr.io/sakif/botpanel-runner:latest"),
			Timeout: launcherTimeout,
			Strict:  strict,
		},

		ValidateConcurrency: concurrency,
		ValidateSchedule:    getEnv("VALIDATE_SCHEDULE", "@every 1h"),

		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		RedisURL:           getEnv("REDIS_URL", ""),

		LogLevel:  level,
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}, nil
}

// OAuthEnabled reports whether Discord login can be offered.
func (c *Config) OAuthEnabled() bool {
	return c.JWTSecret != "" && c.Discord.ClientID != "" && c.Discord.ClientSecret != ""
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
