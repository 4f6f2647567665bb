package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	usecase "realtime-leaderboard/internal/usecase/leaderboard"
	errs "realtime-leaderboard/pkg/errors"
)

// MockUsecase is a mock implementation of leaderboard.Usecase
type MockUsecase struct {
	mock.Mock
}

func (m *MockUsecase) CreateUser(ctx context.Context, in usecase.CreateUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUsecase) Claim(ctx context.Context, in usecase.ClaimRequest) (*usecase.ClaimResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ClaimResponse), args.Error(1)
}

func (m *MockUsecase) ListUsers(ctx context.Context) ([]usecase.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.User), args.Error(1)
}

func (m *MockUsecase) ListHistory(ctx context.Context) ([]usecase.HistoryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.HistoryEntry), args.Error(1)
}

func (m *MockUsecase) SeedDefaultUsers(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func setupTest(t *testing.T) (*gin.Engine, *MockUsecase) {
	gin.SetMode(gin.TestMode)
	mockUC := new(MockUsecase)
	h := NewLeaderboardHandler(mockUC, nil, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/api/users", h.ListUsers)
	r.POST("/api/users", h.CreateUser)
	r.POST("/api/users/:userId/claim", h.Claim)
	r.GET("/api/leaderboard", h.ListUsers)
	r.GET("/api/history", h.ListHistory)
	return r, mockUC
}

func TestListUsers(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUC := setupTest(t)

		mockUC.On("ListUsers", mock.Anything).Return([]usecase.User{
			{ID: "u1", Name: "Neha", TotalPoints: 12},
			{ID: "u2", Name: "Rahul", TotalPoints: 4},
		}, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/users", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var users []UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
		require.Len(t, users, 2)
		assert.Equal(t, "Neha", users[0].Name)
		assert.Equal(t, int64(12), users[0].TotalPoints)
	})

	t.Run("InternalError", func(t *testing.T) {
		r, mockUC := setupTest(t)

		mockUC.On("ListUsers", mock.Anything).
			Return(nil, errs.NewInternalError("db down", nil))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/users", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Message)
	})

	t.Run("LeaderboardAlias", func(t *testing.T) {
		r, mockUC := setupTest(t)

		mockUC.On("ListUsers", mock.Anything).Return([]usecase.User{}, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/leaderboard", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUC := setupTest(t)

		created := &usecase.User{
			ID:          "u1",
			Name:        "Zoe",
			TotalPoints: 0,
			CreatedAt:   time.Now().UTC(),
		}
		mockUC.On("CreateUser", mock.Anything, usecase.CreateUserRequest{Name: "Zoe"}).
			Return(created, nil)

		body, _ := json.Marshal(CreateUserRequest{Name: "Zoe"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/users", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Zoe", resp.Name)
		assert.Equal(t, int64(0), resp.TotalPoints)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		r, mockUC := setupTest(t)

		mockUC.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, errs.NewValidationError("name", "name already exists"))

		body, _ := json.Marshal(CreateUserRequest{Name: "Zoe"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/users", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "name already exists")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		r, mockUC := setupTest(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/users", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUC.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}

func TestClaim(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUC := setupTest(t)

		mockUC.On("Claim", mock.Anything, usecase.ClaimRequest{UserID: "u1"}).
			Return(&usecase.ClaimResponse{
				Message:        "Points claimed successfully",
				Points:         7,
				UserName:       "Priya",
				NewTotalPoints: 7,
			}, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/api/users/u1/claim", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp ClaimResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Points claimed successfully", resp.Message)
		assert.Equal(t, int64(7), resp.Points)
		assert.Equal(t, "Priya", resp.UserName)
		assert.Equal(t, int64(7), resp.NewTotalPoints)
	})

	t.Run("NotFound", func(t *testing.T) {
		r, mockUC := setupTest(t)

		mockUC.On("Claim", mock.Anything, mock.Anything).
			Return(nil, errs.NewNotFoundError("user", "User not found"))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/api/users/unknown/claim", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "User not found", resp.Message)
	})

	t.Run("InternalError", func(t *testing.T) {
		r, mockUC := setupTest(t)

		mockUC.On("Claim", mock.Anything, mock.Anything).
			Return(nil, errs.NewInternalError("write failed", nil))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/api/users/u1/claim", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestListHistory(t *testing.T) {
	r, mockUC := setupTest(t)

	mockUC.On("ListHistory", mock.Anything).Return([]usecase.HistoryEntry{
		{ID: "h2", UserID: "u1", UserName: "Neha", Points: 8, PreviousTotalPoints: 4, NewTotalPoints: 12},
		{ID: "h1", UserID: "u1", UserName: "Neha", Points: 4, PreviousTotalPoints: 0, NewTotalPoints: 4},
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/history", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var entries []HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "h2", entries[0].ID)
	assert.Equal(t, entries[0].PreviousTotalPoints+entries[0].Points, entries[0].NewTotalPoints)
}
