package leaderboard

import "time"

// User represents a participant on the leaderboard.
type User struct {
	ID          string    // ID is the opaque unique identifier for the user
	Name        string    // Name is the unique display name of the user
	TotalPoints int64     // TotalPoints is the running total of claimed points, never decreases
	Rank        int64     // Rank is reserved for precomputed placement, currently always 0
	CreatedAt   time.Time // CreatedAt is when the user was created
	UpdatedAt   time.Time // UpdatedAt is when the user was last modified
}

// ClaimHistoryEntry is an immutable record of a single claim.
// UserName and the point totals are captured at claim time so the entry
// stays self-contained even if the user record changes later.
type ClaimHistoryEntry struct {
	ID                  string
	UserID              string
	UserName            string
	Points              int64
	PreviousTotalPoints int64
	NewTotalPoints      int64
	CreatedAt           time.Time
}
