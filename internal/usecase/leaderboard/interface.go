package leaderboard

import "context"

// Usecase defines the interface for leaderboard business logic operations.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*User, error)
	Claim(ctx context.Context, in ClaimRequest) (*ClaimResponse, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListHistory(ctx context.Context) ([]HistoryEntry, error)
	SeedDefaultUsers(ctx context.Context) error
}
