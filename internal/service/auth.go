package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/auth"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

// AuthService is the identity gate: it turns a Discord login into a panel user
// and a session, and a session cookie back into a user.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                 ↘ auth.Sessions (cookie + SessionStore)
type AuthService struct {
	users    repository.UserRepository
	sessions *auth.Sessions
	adminIDs map[string]bool
	activity activityLog
	logger   *slog.Logger
}

// NewAuthService creates an AuthService. Users whose Discord id is in adminIDs
// are created as admins.
func NewAuthService(
	users repository.UserRepository,
	activity repository.ActivityRepository,
	sessions *auth.Sessions,
	adminIDs []string,
	logger *slog.Logger,
) *AuthService {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		adminIDs: admins,
		activity: activityLog{repo: activity, logger: logger},
		logger:   logger,
	}
}

// AuthResult bundles the user and the session cookie value so the handler can
// set the cookie and redirect in one step.
type AuthResult struct {
	User   *model.User
	Cookie string
}

// Authenticate records a successful Discord login.
//
// WHY UPSERT?
// The Discord id is stable and unique, so the user row is upserted on it:
// first login inserts, later logins refresh username and avatar on the same
// row. The admin allow-list only applies to the insert; admin and authed flags
// of an existing user are never changed by logging in.
func (s *AuthService) Authenticate(ctx context.Context, du *auth.DiscordUser, ip string) (*AuthResult, error) {
	if du == nil || du.ID == "" {
		return nil, apperror.ValidationFailed("discordId", "Discord profile has no id")
	}

	user := &model.User{
		DiscordID: du.ID,
		Username:  du.Username,
		Avatar:    du.AvatarURL,
		IsAdmin:   s.adminIDs[du.ID],
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (discordID=%s): %w", du.ID, err)
	}

	cookie, err := s.sessions.Begin(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: opening session for %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via Discord",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.Bool("admin", user.IsAdmin),
	)
	s.activity.record(ctx, CallerFor(user, ip), model.ActionUserLogin, user.Username)

	return &AuthResult{User: user, Cookie: cookie}, nil
}

// CurrentUser resolves a session cookie. Every way of not having a usable
// session, including a session whose user has since been deleted, is
// apperror.ErrUnauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, cookie string) (*model.User, error) {
	userID, err := s.sessions.Resolve(ctx, cookie)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSession) {
			return nil, apperror.Unauthenticated("valid authentication required")
		}
		return nil, fmt.Errorf("service/auth: resolving session: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.sessions.End(ctx, cookie)
			return nil, apperror.Unauthenticated("valid authentication required")
		}
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}
	return user, nil
}

// Logout ends the session named by cookie. It succeeds for unknown or already
// ended sessions; a store failure is logged, not returned.
func (s *AuthService) Logout(ctx context.Context, cookie string) {
	if err := s.sessions.End(ctx, cookie); err != nil {
		s.logger.Warn("ending session failed", slog.String("error", err.Error()))
	}
}

// SessionTTL is how long a new session cookie should live in the browser.
func (s *AuthService) SessionTTL() int {
	return int(s.sessions.TTL().Seconds())
}
