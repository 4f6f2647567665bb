package leaderboard

import "time"

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name string `validate:"required,min=1,max=50"`
}

// ClaimRequest represents the request payload for claiming points.
type ClaimRequest struct {
	UserID string
}

// ClaimResponse represents the result of a successful claim.
type ClaimResponse struct {
	Message        string
	Points         int64
	UserName       string
	NewTotalPoints int64
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID          string
	Name        string
	TotalPoints int64
	Rank        int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HistoryEntry represents a claim history DTO for API responses.
type HistoryEntry struct {
	ID                  string
	UserID              string
	UserName            string
	Points              int64
	PreviousTotalPoints int64
	NewTotalPoints      int64
	CreatedAt           time.Time
}
