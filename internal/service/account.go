package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/botpanel/internal/apperror"
	"github.com/sakif/botpanel/internal/launcher"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
	"github.com/sakif/botpanel/internal/secret"
)

// maxTokenLength bounds stored tokens. Discord tokens are well under 100
// characters; anything near this limit is not a token.
const maxTokenLength = 512

// AccountService manages hosted accounts on behalf of their owners.
//
// OWNERSHIP RULE:
// Every operation on a single account first loads it and checks that the
// caller owns it or is an admin. A missing account is NotFound; somebody
// else's account is Forbidden. The check happens before any side effect.
type AccountService struct {
	accounts  repository.AccountRepository
	runner    *runner
	validator *ValidatorService
	activity  activityLog
	logger    *slog.Logger
}

// NewAccountService wires an AccountService. A nil launcher behaves like
// launcher.Unavailable.
func NewAccountService(
	accounts repository.AccountRepository,
	activity repository.ActivityRepository,
	l launcher.Launcher,
	validator *ValidatorService,
	strict bool,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		runner:    newRunner(l, strict, logger),
		validator: validator,
		activity:  activityLog{repo: activity, logger: logger},
		logger:    logger,
	}
}

// List returns the caller's own accounts in creation order.
func (s *AccountService) List(ctx context.Context, caller Caller) ([]model.Account, error) {
	accounts, err := s.accounts.ListAccountsByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing accounts of %s: %w", caller.UserID, err)
	}
	return accounts, nil
}

// Create stores a new offline account for the caller. The token is not checked
// against Discord here; callers validate afterwards.
func (s *AccountService) Create(ctx context.Context, caller Caller, token string) (*model.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperror.ValidationFailed("token", "token is required")
	}
	if len(token) > maxTokenLength {
		return nil, apperror.ValidationFailed("token", fmt.Sprintf("token must be at most %d characters", maxTokenLength))
	}
	if secret.IsSealed(token) {
		return nil, apperror.ValidationFailed("token", "token is not a Discord token")
	}

	account := &model.Account{
		UserID: caller.UserID,
		Token:  token,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("service/account: creating account: %w", err)
	}

	s.logger.Info("account created",
		slog.String("accountID", account.ID),
		slog.String("userID", caller.UserID),
	)
	s.activity.record(ctx, caller, model.ActionAccountCreated, account.ID)
	return account, nil
}

// Get returns one account the caller may see.
func (s *AccountService) Get(ctx context.Context, caller Caller, id string) (*model.Account, error) {
	account, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}
	if err := authorize(caller, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete removes an account. An account that is already gone is not an error.
// A running instance is stopped first, best effort.
func (s *AccountService) Delete(ctx context.Context, caller Caller, id string) error {
	account, err := s.Get(ctx, caller, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}

	if account.Status != model.StatusOffline {
		// Deletion proceeds even in strict mode; the row is going away.
		if err := s.runner.stop(ctx, account.InstanceName()); err != nil {
			s.logger.Warn("stopping instance of deleted account failed",
				slog.String("accountID", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("service/account: deleting account %s: %w", id, err)
	}

	s.logger.Info("account deleted", slog.String("accountID", id), slog.String("userID", caller.UserID))
	s.activity.record(ctx, caller, model.ActionAccountDeleted, id)
	return nil
}

// Start launches the account's instance and marks it online with the pid the
// launcher reported, or a placeholder pid when the launcher failed.
// Starting an online account is allowed and leaves it online.
func (s *AccountService) Start(ctx context.Context, caller Caller, id string) (*model.Account, error) {
	account, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	pid, err := s.runner.start(ctx, launcher.Spec{
		Name:  account.InstanceName(),
		Token: account.Token,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.accounts.UpdateAccountStatus(ctx, id, model.StatusOnline, &pid)
	if err != nil {
		return nil, fmt.Errorf("service/account: marking %s online: %w", id, err)
	}

	s.logger.Info("account started",
		slog.String("accountID", id),
		slog.String("userID", caller.UserID),
		slog.Int("pid", pid),
	)
	s.activity.record(ctx, caller, model.ActionAccountStarted, id)
	return updated, nil
}

// Stop stops and removes the account's instance and marks it offline.
func (s *AccountService) Stop(ctx context.Context, caller Caller, id string) (*model.Account, error) {
	account, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if err := s.runner.stop(ctx, account.InstanceName()); err != nil {
		return nil, err
	}

	updated, err := s.accounts.UpdateAccountStatus(ctx, id, model.StatusOffline, nil)
	if err != nil {
		return nil, fmt.Errorf("service/account: marking %s offline: %w", id, err)
	}

	s.logger.Info("account stopped", slog.String("accountID", id), slog.String("userID", caller.UserID))
	s.activity.record(ctx, caller, model.ActionAccountStopped, id)
	return updated, nil
}

// Validate refreshes one account's cached Discord profile.
func (s *AccountService) Validate(ctx context.Context, caller Caller, id string) (*ValidationResult, error) {
	account, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, account)
}

// ValidateAll refreshes every account the caller owns.
func (s *AccountService) ValidateAll(ctx context.Context, caller Caller) (string, error) {
	msg, err := s.validator.ValidateAll(ctx, caller.UserID)
	if err != nil {
		return "", err
	}
	s.activity.record(ctx, caller, model.ActionAccountsChecked, "own")
	return msg, nil
}

func authorize(caller Caller, account *model.Account) error {
	if caller.IsAdmin || account.UserID == caller.UserID {
		return nil
	}
	return apperror.Forbidden("you do not own this account")
}
