package leaderboard

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"realtime-leaderboard/internal/adapter/broadcast"
	"realtime-leaderboard/internal/adapter/cache"
	domain "realtime-leaderboard/internal/domain/leaderboard"
	errs "realtime-leaderboard/pkg/errors"
	"realtime-leaderboard/pkg/security"
)

// Claim awards are drawn uniformly from [MinClaimPoints, MaxClaimPoints].
const (
	MinClaimPoints = 1
	MaxClaimPoints = 10
)

// randIntN is swapped out in tests for deterministic awards.
var randIntN = rand.IntN

// Repository defines the interface for leaderboard data access operations.
// It abstracts the data layer, allowing different implementations to be
// used interchangeably.
type Repository interface {
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByName(ctx context.Context, name string) (*domain.User, error)
	ListUsersByPoints(ctx context.Context) ([]domain.User, error)
	CountUsers(ctx context.Context) (int64, error)
	ApplyClaim(ctx context.Context, userID string, points int64) (*domain.User, *domain.ClaimHistoryEntry, error)
	ListHistory(ctx context.Context, limit int) ([]domain.ClaimHistoryEntry, error)
}

// Service implements the business logic for the leaderboard.
// It provides a clean separation between the transport layer and data layer.
type Service struct {
	repo        Repository            // Repository for data access
	cache       cache.SnapshotCache   // Cache for the leaderboard snapshot, may be nil
	broadcaster broadcast.Broadcaster // Pushes snapshots to connected viewers
	log         *zap.Logger           // Logger for structured logging
	validate    *validator.Validate   // Validator for request validation
	group       singleflight.Group    // Collapses concurrent snapshot rebuilds
}

// New creates a new Service. If sc is nil, snapshot caching is disabled.
func New(r Repository, sc cache.SnapshotCache, b broadcast.Broadcaster, log *zap.Logger) *Service {
	return &Service{
		repo:        r,
		cache:       sc,
		broadcaster: b,
		log:         log,
		validate:    validator.New(),
	}
}

// formatValidationError converts validator.ValidationErrors into a human-readable error.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return errs.NewValidationError("", strings.Join(messages, ", "))
	}
	return err
}

// CreateUser creates a new user with zero points after validating the name
// and checking uniqueness, then broadcasts the refreshed leaderboard.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	s.log.Info("creating user", zap.String("name", in.Name))

	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	name, err := security.ValidateUserName(in.Name)
	if err != nil {
		s.log.Warn("name rejected", zap.String("name", in.Name), zap.Error(err))
		return nil, errs.NewValidationError("name", err.Error())
	}

	existing, err := s.repo.GetUserByName(ctx, name)
	if err != nil {
		s.log.Error("failed to check existing name", zap.String("name", name), zap.Error(err))
		return nil, errs.NewInternalError("failed to validate name uniqueness", err)
	}
	if existing != nil {
		s.log.Warn("name already exists", zap.String("name", name))
		return nil, errs.NewValidationError("name", "name already exists")
	}

	created, err := s.repo.CreateUser(ctx, &domain.User{Name: name})
	if err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	s.refreshAndBroadcast(ctx)

	return toUserDTO(created), nil
}

// Claim performs one claim for the given user: draws a uniformly random
// award in [1,10], applies it atomically together with the history entry,
// and broadcasts the refreshed leaderboard.
func (s *Service) Claim(ctx context.Context, in ClaimRequest) (*ClaimResponse, error) {
	if _, err := uuid.Parse(in.UserID); err != nil {
		// Malformed ids cannot name a user, same outcome as an unknown id.
		s.log.Warn("claim for malformed user id", zap.String("user_id", in.UserID))
		return nil, errs.NewNotFoundError("user", "User not found")
	}

	points := int64(randIntN(MaxClaimPoints-MinClaimPoints+1) + MinClaimPoints)

	user, entry, err := s.repo.ApplyClaim(ctx, in.UserID, points)
	if err != nil {
		s.log.Warn("claim failed", zap.String("user_id", in.UserID), zap.Error(err))
		return nil, err
	}

	s.log.Info("points claimed",
		zap.String("user_id", user.ID),
		zap.String("user_name", user.Name),
		zap.Int64("points", entry.Points),
		zap.Int64("new_total", user.TotalPoints),
	)

	s.refreshAndBroadcast(ctx)

	return &ClaimResponse{
		Message:        "Points claimed successfully",
		Points:         entry.Points,
		UserName:       user.Name,
		NewTotalPoints: user.TotalPoints,
	}, nil
}

// ListUsers retrieves all users ordered by total points descending. Reads go
// through the snapshot, so a cached snapshot answers without touching the
// database.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.log.Error("failed to list users", zap.Error(err))
		return nil, err
	}

	users := make([]User, len(snap.Users))
	for i := range snap.Users {
		users[i] = *toUserDTO(&snap.Users[i])
	}
	return users, nil
}

// ListHistory retrieves the full claim history ordered by recency descending.
func (s *Service) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	domainEntries, err := s.repo.ListHistory(ctx, 0)
	if err != nil {
		s.log.Error("failed to list history", zap.Error(err))
		return nil, err
	}

	entries := make([]HistoryEntry, len(domainEntries))
	for i, e := range domainEntries {
		entries[i] = HistoryEntry{
			ID:                  e.ID,
			UserID:              e.UserID,
			UserName:            e.UserName,
			Points:              e.Points,
			PreviousTotalPoints: e.PreviousTotalPoints,
			NewTotalPoints:      e.NewTotalPoints,
			CreatedAt:           e.CreatedAt,
		}
	}
	return entries, nil
}

// Snapshot returns the current broadcastable state, serving from the cache
// when possible. Concurrent rebuilds collapse into a single repository read.
func (s *Service) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("snapshot cache get error, falling back to database", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	result, err, _ := s.group.Do("snapshot", func() (any, error) {
		// Double-check the cache in case another request populated it
		// while we were waiting.
		if s.cache != nil {
			cached, err := s.cache.Get(ctx)
			if err == nil && cached != nil {
				return cached, nil
			}
		}

		snap, err := s.buildSnapshot(ctx)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.Set(ctx, snap); err != nil {
				s.log.Warn("failed to cache snapshot", zap.Error(err))
			}
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Snapshot), nil
}

// buildSnapshot reads the current state straight from the repository.
func (s *Service) buildSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	users, err := s.repo.ListUsersByPoints(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, domain.SnapshotHistoryLimit)
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot{Users: users, History: history}, nil
}

// refreshAndBroadcast recomputes the snapshot after a state change,
// refreshes the cache, and pushes it to every connected viewer. Broadcast
// delivery is fire-and-forget relative to the triggering request: failures
// are logged and swallowed, never surfaced to the caller.
func (s *Service) refreshAndBroadcast(ctx context.Context) {
	snap, err := s.buildSnapshot(ctx)
	if err != nil {
		s.log.Error("failed to build snapshot for broadcast", zap.Error(err))
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.log.Warn("failed to refresh snapshot cache", zap.Error(err))
		}
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, snap); err != nil {
			s.log.Error("failed to broadcast leaderboard update", zap.Error(err))
		}
	}
}

func toUserDTO(u *domain.User) *User {
	return &User{
		ID:          u.ID,
		Name:        u.Name,
		TotalPoints: u.TotalPoints,
		Rank:        u.Rank,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
