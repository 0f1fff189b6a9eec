package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/launcher"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 500
)

// AdminService implements the admin console. The role check itself is done by
// auth.RequireAdmin before any method here runs; every method still refuses a
// non-admin Caller so the rule holds for callers outside HTTP too.
type AdminService struct {
	users     repository.UserRepository
	accounts  repository.AccountRepository
	activity  repository.ActivityRepository
	runner    *runner
	validator *ValidatorService
	audit     activityLog
	logger    *slog.Logger
}

// NewAdminService wires an AdminService.
func NewAdminService(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	activity repository.ActivityRepository,
	l launcher.Launcher,
	validator *ValidatorService,
	strict bool,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		users:     users,
		accounts:  accounts,
		activity:  activity,
		runner:    newRunner(l, strict, logger),
		validator: validator,
		audit:     activityLog{repo: activity, logger: logger},
		logger:    logger,
	}
}

// HostResult is the reply to a manual host request.
type HostResult struct {
	Message string `json:"message"`
	PID     int    `json:"pid"`
}

func requireAdmin(caller Caller) error {
	if !caller.IsAdmin {
		return apperror.Forbidden("admin access required")
	}
	return nil
}

// ListUsers returns every user.
func (s *AdminService) ListUsers(ctx context.Context, caller Caller) ([]model.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing users: %w", err)
	}
	return users, nil
}

// ListAccounts returns every account of every user.
func (s *AdminService) ListAccounts(ctx context.Context, caller Caller) ([]model.Account, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing accounts: %w", err)
	}
	return accounts, nil
}

// AuthorizeUser sets isAuthed on a user. Authorizing twice is fine.
func (s *AdminService) AuthorizeUser(ctx context.Context, caller Caller, userID string) (*model.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	user, err := s.users.SetAuthed(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("service/admin: authorizing user: %w", err)
	}

	s.logger.Info("user authorized", slog.String("userID", userID), slog.String("by", caller.UserID))
	s.audit.record(ctx, caller, model.ActionUserAuthorized, userID)
	return user, nil
}

// DeleteUser removes a user together with their accounts and activity.
// Running instances of those accounts are stopped first, best effort.
func (s *AdminService) DeleteUser(ctx context.Context, caller Caller, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if userID == caller.UserID {
		return apperror.ValidationFailed("id", "admins cannot delete themselves")
	}

	accounts, err := s.accounts.ListAccountsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/admin: listing accounts of %s: %w", userID, err)
	}
	for _, a := range accounts {
		if a.Status == model.StatusOffline {
			continue
		}
		if err := s.runner.stop(ctx, a.InstanceName()); err != nil {
			s.logger.Warn("stopping instance of deleted user failed",
				slog.String("accountID", a.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("service/admin: deleting user: %w", err)
	}

	s.logger.Info("user deleted",
		slog.String("userID", userID),
		slog.Int("accounts", len(accounts)),
		slog.String("by", caller.UserID),
	)
	s.audit.record(ctx, caller, model.ActionUserDeleted, userID)
	return nil
}

// HostManual starts an instance named after an arbitrary Discord id. No user
// or account is looked up or created; the id only has to be a valid instance
// name, which the handler narrows further to a Discord snowflake.
func (s *AdminService) HostManual(ctx context.Context, caller Caller, externalID string) (*HostResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := launcher.ValidateName(externalID); err != nil {
		return nil, apperror.ValidationFailed("discordId", "discordId is not a valid instance name")
	}

	pid, err := s.runner.start(ctx, launcher.Spec{Name: externalID})
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual host started",
		slog.String("discordId", externalID),
		slog.Int("pid", pid),
		slog.String("by", caller.UserID),
	)
	s.audit.record(ctx, caller, model.ActionHostManual, externalID)

	return &HostResult{
		Message: "Started host for " + externalID,
		PID:     pid,
	}, nil
}

// ValidateAllAccounts validates every account in the system.
func (s *AdminService) ValidateAllAccounts(ctx context.Context, caller Caller) (string, error) {
	if err := requireAdmin(caller); err != nil {
		return "", err
	}
	msg, err := s.validator.ValidateAll(ctx, "")
	if err != nil {
		return "", err
	}
	s.audit.record(ctx, caller, model.ActionAccountsChecked, "all")
	return msg, nil
}

// ListActivity returns the newest activity entries. limit <= 0 means the
// default; larger values are capped.
func (s *AdminService) ListActivity(ctx context.Context, caller Caller, limit int) ([]model.Activity, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	entries, err := s.activity.ListActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing activity: %w", err)
	}
	return entries, nil
}
