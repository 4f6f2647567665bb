package broadcast

import (
	"time"

	domain "realtime-leaderboard/internal/domain/leaderboard"
)

// EventName is the named event carried by the real-time channel.
const EventName = "leaderboard-update"

// UserPayload is the wire shape of a user inside a broadcast.
type UserPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TotalPoints int64     `json:"totalPoints"`
	Rank        int64     `json:"rank"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HistoryPayload is the wire shape of a claim history entry inside a broadcast.
type HistoryPayload struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	UserName            string    `json:"userName"`
	Points              int64     `json:"points"`
	PreviousTotalPoints int64     `json:"previousTotalPoints"`
	NewTotalPoints      int64     `json:"newTotalPoints"`
	CreatedAt           time.Time `json:"createdAt"`
}

// SnapshotPayload is the full state pushed to every connected viewer.
type SnapshotPayload struct {
	Users   []UserPayload    `json:"users"`
	History []HistoryPayload `json:"history"`
}

// NewSnapshotPayload maps a domain snapshot onto the wire shape.
func NewSnapshotPayload(snap *domain.Snapshot) SnapshotPayload {
	users := make([]UserPayload, len(snap.Users))
	for i, u := range snap.Users {
		users[i] = UserPayload{
			ID:          u.ID,
			Name:        u.Name,
			TotalPoints: u.TotalPoints,
			Rank:        u.Rank,
			CreatedAt:   u.CreatedAt,
			UpdatedAt:   u.UpdatedAt,
		}
	}

	history := make([]HistoryPayload, len(snap.History))
	for i, h := range snap.History {
		history[i] = HistoryPayload{
			ID:                  h.ID,
			UserID:              h.UserID,
			UserName:            h.UserName,
			Points:              h.Points,
			PreviousTotalPoints: h.PreviousTotalPoints,
			NewTotalPoints:      h.NewTotalPoints,
			CreatedAt:           h.CreatedAt,
		}
	}

	return SnapshotPayload{Users: users, History: history}
}
