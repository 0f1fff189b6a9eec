package service

import (
	"context"
	"fmt"

	"github.com/sakif/botpanel/internal/model"
	"github.com/sakif/botpanel/internal/repository"
)

// StatsService computes the public landing page counters.
type StatsService struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
}

func NewStatsService(users repository.UserRepository, accounts repository.AccountRepository) *StatsService {
	return &StatsService{users: users, accounts: accounts}
}

// Stats returns online accounts, registered users and total accounts.
func (s *StatsService) Stats(ctx context.Context) (*model.Stats, error) {
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}
	total, online, err := s.accounts.CountAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}
	return &model.Stats{
		ActiveBots:    online,
		TotalUsers:    users,
		TotalAccounts: total,
	}, nil
}
