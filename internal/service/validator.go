package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/botpanel/internal/discord"
	"github.com/sakif/botpanel/internal/metrics"
	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

// ValidationCompleteMessage is returned by every batch validation, whatever
// the individual outcomes were.
const ValidationCompleteMessage = "Validation complete"

// ValidationResult is the outcome of validating one account.
type ValidationResult struct {
	Account *model.Account `json:"account"`
	// Valid is false when Discord rejected the token or could not be reached.
	// Account is then the unchanged stored row.
	Valid bool `json:"valid"`
}

// ValidatorService refreshes cached Discord profile fields of accounts.
type ValidatorService struct {
	accounts    repository.AccountRepository
	provider    IdentityProvider
	concurrency int
	logger      *slog.Logger
}

// NewValidatorService creates a ValidatorService. concurrency bounds how many
// Discord calls a batch run makes at once.
func NewValidatorService(
	accounts repository.AccountRepository,
	provider IdentityProvider,
	concurrency int,
	logger *slog.Logger,
) *ValidatorService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ValidatorService{
		accounts:    accounts,
		provider:    provider,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Validate checks one account's token against Discord.
//
// On success the profile fields are stored and the account becomes online in a
// single UPDATE. On failure nothing is written and the failure is logged; the
// error return is reserved for storage failures.
func (s *ValidatorService) Validate(ctx context.Context, account *model.Account) (*ValidationResult, error) {
	profile, err := s.provider.FetchProfile(ctx, account.Token)
	if err != nil {
		metrics.Validations.WithLabelValues(metrics.OutcomeFailure).Inc()

		level := slog.LevelWarn
		if errors.Is(err, discord.ErrInvalidToken) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "account validation failed",
			slog.String("accountID", account.ID),
			slog.String("userID", account.UserID),
			slog.String("error", err.Error()),
		)
		return &ValidationResult{Account: account, Valid: false}, nil
	}

	updated, err := s.accounts.UpdateAccountProfile(ctx, account.ID, model.AccountProfile{
		DiscordUsername: profile.Username,
		DiscordAvatar:   profile.AvatarURL,
		GuildsCount:     profile.Guilds,
		FriendsCount:    profile.Friends,
	})
	if err != nil {
		metrics.Validations.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, fmt.Errorf("service/validator: storing profile of account %s: %w", account.ID, err)
	}

	metrics.Validations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.Debug("account validated",
		slog.String("accountID", account.ID),
		slog.String("discordUsername", profile.Username),
	)
	return &ValidationResult{Account: updated, Valid: true}, nil
}

// ValidateAll validates every account of ownerID, or every account in the
// system when ownerID is empty. Per-account failures do not stop the batch
// and are not reported; only failing to list the accounts is an error.
func (s *ValidatorService) ValidateAll(ctx context.Context, ownerID string) (string, error) {
	var (
		accounts []model.Account
		err      error
	)
	if ownerID == "" {
		accounts, err = s.accounts.ListAccounts(ctx)
	} else {
		accounts, err = s.accounts.ListAccountsByUser(ctx, ownerID)
	}
	if err != nil {
		return "", fmt.Errorf("service/validator: listing accounts: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range accounts {
		account := &accounts[i]
		g.Go(func() error {
			if _, err := s.Validate(gctx, account); err != nil {
				s.logger.Error("validation batch: storing result failed",
					slog.String("accountID", account.ID),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("validation batch finished",
		slog.String("ownerID", ownerID),
		slog.Int("accounts", len(accounts)),
	)
	return ValidationCompleteMessage, nil
}
