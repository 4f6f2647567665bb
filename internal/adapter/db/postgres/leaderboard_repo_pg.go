package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"realtime-leaderboard/internal/domain/leaderboard"
	errs "realtime-leaderboard/pkg/errors"
)

// LeaderboardRepoPG implements the leaderboard repository using GORM.
type LeaderboardRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewLeaderboardRepoPG creates a new instance of LeaderboardRepoPG.
func NewLeaderboardRepoPG(db *gorm.DB, log *zap.Logger) *LeaderboardRepoPG {
	return &LeaderboardRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"not null;uniqueIndex"`
	TotalPoints int64     `gorm:"not null;default:0"`
	Rank        int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// ClaimHistorySchema represents the database schema for the claim history table.
// Rows are append-only; nothing ever updates or deletes them.
type ClaimHistorySchema struct {
	ID                  string    `gorm:"primaryKey;size:36"`
	UserID              string    `gorm:"size:36;not null;index"`
	UserName            string    `gorm:"not null"`
	Points              int64     `gorm:"not null"`
	PreviousTotalPoints int64     `gorm:"not null"`
	NewTotalPoints      int64     `gorm:"not null"`
	CreatedAt           time.Time `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for the ClaimHistorySchema model.
func (ClaimHistorySchema) TableName() string {
	return "claim_histories"
}

// Migrate creates or updates the tables backing the repository.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{}, &ClaimHistorySchema{})
}

// CreateUser inserts a new user with a generated id and zero points.
func (r *LeaderboardRepoPG) CreateUser(ctx context.Context, u *leaderboard.User) (*leaderboard.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:          uuid.NewString(),
		Name:        u.Name,
		TotalPoints: u.TotalPoints,
		Rank:        u.Rank,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate user name", zap.String("name", u.Name))
			return nil, errs.NewValidationError("name", "name already exists")
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("name", u.Name))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.String("id", model.ID), zap.String("name", model.Name))
	return toDomainUser(&model), nil
}

// GetUserByName retrieves a user by their display name.
// Returns nil, nil when no user has the name.
func (r *LeaderboardRepoPG) GetUserByName(ctx context.Context, name string) (*leaderboard.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error("failed to get user by name from db", zap.Error(err), zap.String("name", name))
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}

	return toDomainUser(&model), nil
}

// ListUsersByPoints retrieves all users ordered by total points descending.
// Ties break on name so the order is stable across identical queries.
func (r *LeaderboardRepoPG) ListUsersByPoints(ctx context.Context) ([]leaderboard.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("total_points DESC, name ASC").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]leaderboard.User, len(models))
	for i := range models {
		users[i] = *toDomainUser(&models[i])
	}
	return users, nil
}

// CountUsers returns the number of user records.
func (r *LeaderboardRepoPG) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Count(&count).Error; err != nil {
		r.log.Error("failed to count users in db", zap.Error(err))
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// ApplyClaim atomically awards points to a user and appends the history
// entry in one transaction. The total is bumped with an in-database
// increment rather than a read-modify-write from the caller, so two
// concurrent claims for the same user can never lose an update.
func (r *LeaderboardRepoPG) ApplyClaim(ctx context.Context, userID string, points int64) (*leaderboard.User, *leaderboard.ClaimHistoryEntry, error) {
	if points < 1 {
		return nil, nil, fmt.Errorf("points must be positive, got %d", points)
	}

	var (
		updated *leaderboard.User
		entry   *leaderboard.ClaimHistoryEntry
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserSchema
		if err := tx.First(&model, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NewNotFoundError("user", "User not found")
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		if err := tx.Model(&model).Update("total_points", gorm.Expr("total_points + ?", points)).Error; err != nil {
			return fmt.Errorf("failed to update user points: %w", err)
		}

		// Re-read for the authoritative new total.
		if err := tx.First(&model, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("failed to reload user: %w", err)
		}

		hist := ClaimHistorySchema{
			ID:                  uuid.NewString(),
			UserID:              model.ID,
			UserName:            model.Name,
			Points:              points,
			PreviousTotalPoints: model.TotalPoints - points,
			NewTotalPoints:      model.TotalPoints,
		}
		if err := tx.Create(&hist).Error; err != nil {
			return fmt.Errorf("failed to create claim history: %w", err)
		}

		updated = toDomainUser(&model)
		entry = toDomainHistory(&hist)
		return nil
	})
	if err != nil {
		var nf *errs.NotFoundError
		if !errors.As(err, &nf) {
			r.log.Error("claim transaction failed", zap.Error(err), zap.String("user_id", userID))
		}
		return nil, nil, err
	}

	r.log.Info("claim applied",
		zap.String("user_id", updated.ID),
		zap.Int64("points", points),
		zap.Int64("new_total", updated.TotalPoints),
	)
	return updated, entry, nil
}

// ListHistory retrieves claim history entries ordered by recency descending.
// A non-positive limit returns the full history.
func (r *LeaderboardRepoPG) ListHistory(ctx context.Context, limit int) ([]leaderboard.ClaimHistoryEntry, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []ClaimHistorySchema
	if err := q.Find(&models).Error; err != nil {
		r.log.Error("failed to list claim history from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list claim history: %w", err)
	}

	entries := make([]leaderboard.ClaimHistoryEntry, len(models))
	for i := range models {
		entries[i] = *toDomainHistory(&models[i])
	}
	return entries, nil
}

func toDomainUser(m *UserSchema) *leaderboard.User {
	return &leaderboard.User{
		ID:          m.ID,
		Name:        m.Name,
		TotalPoints: m.TotalPoints,
		Rank:        m.Rank,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainHistory(m *ClaimHistorySchema) *leaderboard.ClaimHistoryEntry {
	return &leaderboard.ClaimHistoryEntry{
		ID:                  m.ID,
		UserID:              m.UserID,
		UserName:            m.UserName,
		Points:              m.Points,
		PreviousTotalPoints: m.PreviousTotalPoints,
		NewTotalPoints:      m.NewTotalPoints,
		CreatedAt:           m.CreatedAt,
	}
}
