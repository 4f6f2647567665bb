package leaderboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "realtime-leaderboard/internal/domain/leaderboard"
)

// defaultUserNames are the users created on first run against an empty store.
var defaultUserNames = []string{
	"Rahul",
	"Kamal",
	"Sanak",
	"Priya",
	"Amit",
	"Neha",
	"Vikram",
	"Anjali",
	"Rajesh",
	"Sneha",
}

// SeedDefaultUsers creates the default users if the store is empty.
// It runs once per empty-database lifetime; a store with any users at all,
// even fewer than the full default set, is left untouched.
func (s *Service) SeedDefaultUsers(ctx context.Context) error {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users for seeding: %w", err)
	}
	if count > 0 {
		s.log.Debug("seeding skipped, store not empty", zap.Int64("users", count))
		return nil
	}

	for _, name := range defaultUserNames {
		if _, err := s.repo.CreateUser(ctx, &domain.User{Name: name}); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", name, err)
		}
	}

	s.log.Info("default users initialized", zap.Int("count", len(defaultUserNames)))
	return nil
}
