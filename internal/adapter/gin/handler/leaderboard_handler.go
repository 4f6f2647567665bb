package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realtime-leaderboard/internal/adapter/broadcast"
	"realtime-leaderboard/internal/usecase/leaderboard"
	errs "realtime-leaderboard/pkg/errors"
)

// LeaderboardHandler handles HTTP requests for leaderboard operations
type LeaderboardHandler struct {
	uc  leaderboard.Usecase
	hub *broadcast.Hub
	log *zap.Logger
}

// NewLeaderboardHandler creates a new LeaderboardHandler instance
func NewLeaderboardHandler(uc leaderboard.Usecase, hub *broadcast.Hub, log *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		uc:  uc,
		hub: hub,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name string `json:"name"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TotalPoints int64     `json:"totalPoints"`
	Rank        int64     `json:"rank"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HistoryResponse represents the HTTP response for a claim history entry
type HistoryResponse struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	UserName            string    `json:"userName"`
	Points              int64     `json:"points"`
	PreviousTotalPoints int64     `json:"previousTotalPoints"`
	NewTotalPoints      int64     `json:"newTotalPoints"`
	CreatedAt           time.Time `json:"createdAt"`
}

// ClaimResponse represents the HTTP response for a successful claim
type ClaimResponse struct {
	Message        string `json:"message"`
	Points         int64  `json:"points"`
	UserName       string `json:"userName"`
	NewTotalPoints int64  `json:"newTotalPoints"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string `json:"message"`
}

// ListUsers handles GET /api/users and GET /api/leaderboard
func (h *LeaderboardHandler) ListUsers(c *gin.Context) {
	users, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error("ListUsers failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponses(users))
}

// CreateUser handles POST /api/users
func (h *LeaderboardHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}

	user, err := h.uc.CreateUser(c.Request.Context(), leaderboard.CreateUserRequest{Name: req.Name})
	if err != nil {
		h.log.Warn("CreateUser failed", zap.String("name", req.Name), zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Claim handles POST /api/users/:userId/claim
func (h *LeaderboardHandler) Claim(c *gin.Context) {
	userID := c.Param("userId")

	resp, err := h.uc.Claim(c.Request.Context(), leaderboard.ClaimRequest{UserID: userID})
	if err != nil {
		h.log.Warn("Claim failed", zap.String("user_id", userID), zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ClaimResponse{
		Message:        resp.Message,
		Points:         resp.Points,
		UserName:       resp.UserName,
		NewTotalPoints: resp.NewTotalPoints,
	})
}

// ListHistory handles GET /api/history
func (h *LeaderboardHandler) ListHistory(c *gin.Context) {
	entries, err := h.uc.ListHistory(c.Request.Context())
	if err != nil {
		h.log.Error("ListHistory failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	out := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryResponse{
			ID:                  e.ID,
			UserID:              e.UserID,
			UserName:            e.UserName,
			Points:              e.Points,
			PreviousTotalPoints: e.PreviousTotalPoints,
			NewTotalPoints:      e.NewTotalPoints,
			CreatedAt:           e.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, out)
}

// Stream handles GET /api/stream. It registers the caller as a viewer and
// relays every broadcast as a server-sent event until the client goes away.
// Nothing is pushed on connect; clients fetch their initial state from the
// read endpoints.
func (h *LeaderboardHandler) Stream(c *gin.Context) {
	viewer := h.hub.Register()
	defer h.hub.Unregister(viewer)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Keepalive comments stop idle proxies from reaping the connection.
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case msg, ok := <-viewer.C:
			if !ok {
				return false
			}
			c.SSEvent(broadcast.EventName, string(msg))
			return true
		case <-keepalive.C:
			c.SSEvent("keepalive", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// handleError converts usecase errors to HTTP responses. Every error body
// is {message} with the underlying error's description.
func (h *LeaderboardHandler) handleError(c *gin.Context, err error) {
	c.JSON(errs.StatusOf(err), ErrorResponse{Message: err.Error()})
}

func toUserResponse(u *leaderboard.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		TotalPoints: u.TotalPoints,
		Rank:        u.Rank,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toUserResponses(users []leaderboard.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return out
}
