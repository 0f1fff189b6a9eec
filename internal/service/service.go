// Package service holds the business rules of the panel.
//
// LAYERING:
//
//	handler (HTTP) → service (rules) → repository (storage)
//	                              ↘ launcher (process supervisor)
//	                              ↘ IdentityProvider (Discord REST)
//
// Services never see an http.Request. The handler layer turns the
// authenticated request into a Caller and passes it down; every ownership and
// role decision is made here from that Caller alone.
package service

import (
	"context"
	"log/slog"

	"github.com/sakif/botpanel/internal/discord"
	"github.com/sakif/botpanel/internal/metrics"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

// Caller is the authenticated principal an operation runs on behalf of.
type Caller struct {
	UserID  string
	IsAdmin bool
	// IP is recorded in the activity log only.
	IP string
}

// CallerFor builds a Caller from a loaded user.
func CallerFor(u *model.User, ip string) Caller {
	return Caller{UserID: u.ID, IsAdmin: u.IsAdmin, IP: ip}
}

// IdentityProvider resolves the Discord identity behind a hosted token.
// *discord.Client is the production implementation.
type IdentityProvider interface {
	FetchProfile(ctx context.Context, token string) (*discord.Profile, error)
}

// activityLog writes audit entries. Failures never fail the operation being
// audited; they are logged and counted.
type activityLog struct {
	repo   repository.ActivityRepository
	logger *slog.Logger
}

func (a activityLog) record(ctx context.Context, caller Caller, action, details string) {
	if a.repo == nil {
		return
	}
	entry := &model.Activity{
		UserID:    caller.UserID,
		Action:    action,
		Details:   details,
		IPAddress: caller.IP,
	}
	if err := a.repo.RecordActivity(ctx, entry); err != nil {
		metrics.ActivityWriteErrors.Inc()
		a.logger.Warn("recording activity failed",
			slog.String("action", action),
			slog.String("userID", caller.UserID),
			slog.String("error", err.Error()),
		)
	}
}
