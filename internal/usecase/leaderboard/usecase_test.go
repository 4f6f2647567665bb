package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"realtime-leaderboard/internal/adapter/cache"
	domain "realtime-leaderboard/internal/domain/leaderboard"
	errs "realtime-leaderboard/pkg/errors"
)

const testUserID = "5b2a1f50-93b6-4f4a-a7d4-1f2e3c4d5e6f"

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetUserByName(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) ListUsersByPoints(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockRepository) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ApplyClaim(ctx context.Context, userID string, points int64) (*domain.User, *domain.ClaimHistoryEntry, error) {
	args := m.Called(ctx, userID, points)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).(*domain.ClaimHistoryEntry), args.Error(2)
}

func (m *MockRepository) ListHistory(ctx context.Context, limit int) ([]domain.ClaimHistoryEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ClaimHistoryEntry), args.Error(1)
}

// MockBroadcaster is a mock implementation of the Broadcaster interface
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Publish(ctx context.Context, snap *domain.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func setupTestService(t *testing.T) (*Service, *MockRepository, *MockBroadcaster) {
	mockRepo := new(MockRepository)
	mockBroadcaster := new(MockBroadcaster)
	svc := New(mockRepo, nil, mockBroadcaster, zaptest.NewLogger(t))
	return svc, mockRepo, mockBroadcaster
}

// expectSnapshotBuild wires the repository reads a broadcast refresh performs.
func expectSnapshotBuild(repo *MockRepository, users []domain.User, history []domain.ClaimHistoryEntry) {
	repo.On("ListUsersByPoints", mock.Anything).Return(users, nil)
	repo.On("ListHistory", mock.Anything, domain.SnapshotHistoryLimit).Return(history, nil)
}

// ==================== CREATE USER TESTS ====================

func TestCreateUser_Success(t *testing.T) {
	svc, mockRepo, mockBroadcaster := setupTestService(t)
	ctx := context.Background()

	created := &domain.User{ID: testUserID, Name: "Zoe", TotalPoints: 0}

	mockRepo.On("GetUserByName", ctx, "Zoe").Return(nil, nil)
	mockRepo.On("CreateUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == "Zoe" && u.TotalPoints == 0
	})).Return(created, nil)
	expectSnapshotBuild(mockRepo, []domain.User{*created}, nil)
	mockBroadcaster.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Zoe"})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, testUserID, resp.ID)
	assert.Equal(t, "Zoe", resp.Name)
	assert.Equal(t, int64(0), resp.TotalPoints)

	mockRepo.AssertExpectations(t)
	mockBroadcaster.AssertExpectations(t)
}

func TestCreateUser_ValidationError_NameRequired(t *testing.T) {
	svc, _, mockBroadcaster := setupTestService(t)

	resp, err := svc.CreateUser(context.Background(), CreateUserRequest{Name: ""})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "Name is required")
	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)

	mockBroadcaster.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCreateUser_ValidationError_InvalidCharacters(t *testing.T) {
	svc, _, _ := setupTestService(t)

	resp, err := svc.CreateUser(context.Background(), CreateUserRequest{Name: "<script>"})

	require.Error(t, err)
	assert.Nil(t, resp)
	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCreateUser_DuplicateName(t *testing.T) {
	svc, mockRepo, mockBroadcaster := setupTestService(t)
	ctx := context.Background()

	existing := &domain.User{ID: testUserID, Name: "Zoe"}
	mockRepo.On("GetUserByName", ctx, "Zoe").Return(existing, nil)

	resp, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Zoe"})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "name already exists")
	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)

	mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	mockBroadcaster.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

// ==================== CLAIM TESTS ====================

func TestClaim_Success(t *testing.T) {
	svc, mockRepo, mockBroadcaster := setupTestService(t)
	ctx := context.Background()

	origRand := randIntN
	randIntN = func(n int) int { return 6 } // award = 7
	defer func() { randIntN = origRand }()

	user := &domain.User{ID: testUserID, Name: "Priya", TotalPoints: 7}
	entry := &domain.ClaimHistoryEntry{
		ID: "h1", UserID: testUserID, UserName: "Priya",
		Points: 7, PreviousTotalPoints: 0, NewTotalPoints: 7,
	}

	mockRepo.On("ApplyClaim", ctx, testUserID, int64(7)).Return(user, entry, nil)
	expectSnapshotBuild(mockRepo, []domain.User{*user}, []domain.ClaimHistoryEntry{*entry})
	mockBroadcaster.On("Publish", mock.Anything, mock.MatchedBy(func(snap *domain.Snapshot) bool {
		return len(snap.Users) == 1 && len(snap.History) == 1
	})).Return(nil)

	resp, err := svc.Claim(ctx, ClaimRequest{UserID: testUserID})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Points claimed successfully", resp.Message)
	assert.Equal(t, int64(7), resp.Points)
	assert.Equal(t, "Priya", resp.UserName)
	assert.Equal(t, int64(7), resp.NewTotalPoints)

	mockRepo.AssertExpectations(t)
	mockBroadcaster.AssertExpectations(t)
}

func TestClaim_AwardWithinRange(t *testing.T) {
	svc, mockRepo, mockBroadcaster := setupTestService(t)
	ctx := context.Background()

	user := &domain.User{ID: testUserID, Name: "Amit", TotalPoints: 5}
	entry := &domain.ClaimHistoryEntry{UserID: testUserID, UserName: "Amit", Points: 5, NewTotalPoints: 5}

	mockRepo.On("ApplyClaim", ctx, testUserID, mock.MatchedBy(func(points int64) bool {
		return points >= MinClaimPoints && points <= MaxClaimPoints
	})).Return(user, entry, nil)
	expectSnapshotBuild(mockRepo, []domain.User{*user}, []domain.ClaimHistoryEntry{*entry})
	mockBroadcaster.On("Publish", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 50; i++ {
		_, err := svc.Claim(ctx, ClaimRequest{UserID: testUserID})
		require.NoError(t, err)
	}
}

func TestClaim_MalformedID(t *testing.T) {
	svc, mockRepo, mockBroadcaster := setupTestService(t)

	resp, err := svc.Claim(context.Background(), ClaimRequest{UserID: "not-a-uuid"})

	require.Error(t, err)
	assert.Nil(t, resp)
	var nf *errs.NotFoundError
	assert.ErrorAs(t, err, &nf)

	mockRepo.AssertNotCalled(t, "ApplyClaim", mock.Anything, mock.Anything, mock.Anything)
	mockBroadcaster.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestClaim_UnknownUser(t *testing.T) {
	svc, mockRepo, mockBroadcaster := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("ApplyClaim", ctx, testUserID, mock.Anything).
		Return(nil, nil, errs.NewNotFoundError("user", "User not found"))

	resp, err := svc.Claim(ctx, ClaimRequest{UserID: testUserID})

	require.Error(t, err)
	assert.Nil(t, resp)
	var nf *errs.NotFoundError
	assert.ErrorAs(t, err, &nf)

	// A failed claim must not push anything to viewers.
	mockBroadcaster.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestClaim_BroadcastFailureIsSwallowed(t *testing.T) {
	svc, mockRepo, mockBroadcaster := setupTestService(t)
	ctx := context.Background()

	user := &domain.User{ID: testUserID, Name: "Neha", TotalPoints: 3}
	entry := &domain.ClaimHistoryEntry{UserID: testUserID, UserName: "Neha", Points: 3, NewTotalPoints: 3}

	mockRepo.On("ApplyClaim", ctx, testUserID, mock.Anything).Return(user, entry, nil)
	expectSnapshotBuild(mockRepo, []domain.User{*user}, []domain.ClaimHistoryEntry{*entry})
	mockBroadcaster.On("Publish", mock.Anything, mock.Anything).Return(errors.New("transport down"))

	resp, err := svc.Claim(ctx, ClaimRequest{UserID: testUserID})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int64(3), resp.NewTotalPoints)

	mockBroadcaster.AssertExpectations(t)
}

// ==================== LISTING TESTS ====================

func TestListUsers(t *testing.T) {
	svc, mockRepo, _ := setupTestService(t)
	ctx := context.Background()

	expectSnapshotBuild(mockRepo, []domain.User{
		{ID: "u1", Name: "Neha", TotalPoints: 12},
		{ID: "u2", Name: "Rahul", TotalPoints: 4},
	}, nil)

	users, err := svc.ListUsers(ctx)

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Neha", users[0].Name)
	assert.Equal(t, int64(12), users[0].TotalPoints)
	assert.Equal(t, "Rahul", users[1].Name)
}

func TestListUsers_ServedFromSnapshotCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sc := cache.NewRedisSnapshotCache(client, time.Minute, zaptest.NewLogger(t))
	mockRepo := new(MockRepository)
	svc := New(mockRepo, sc, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	// The repository may be read once; the second listing must come from
	// the cached snapshot.
	mockRepo.On("ListUsersByPoints", mock.Anything).Return([]domain.User{
		{ID: "u1", Name: "Neha", TotalPoints: 12},
	}, nil).Once()
	mockRepo.On("ListHistory", mock.Anything, domain.SnapshotHistoryLimit).
		Return([]domain.ClaimHistoryEntry{}, nil).Once()

	first, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	mockRepo.AssertExpectations(t)
}

func TestListHistory(t *testing.T) {
	svc, mockRepo, _ := setupTestService(t)
	ctx := context.Background()

	// Full history is unbounded, unlike the broadcast's cap.
	mockRepo.On("ListHistory", ctx, 0).Return([]domain.ClaimHistoryEntry{
		{ID: "h2", UserID: "u1", UserName: "Neha", Points: 8, PreviousTotalPoints: 4, NewTotalPoints: 12},
		{ID: "h1", UserID: "u1", UserName: "Neha", Points: 4, PreviousTotalPoints: 0, NewTotalPoints: 4},
	}, nil)

	entries, err := svc.ListHistory(ctx)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(8), entries[0].Points)
	assert.Equal(t, entries[0].PreviousTotalPoints+entries[0].Points, entries[0].NewTotalPoints)
}

// ==================== SNAPSHOT TESTS ====================

func TestSnapshot_HistoryCapped(t *testing.T) {
	svc, mockRepo, _ := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("ListUsersByPoints", ctx).Return([]domain.User{}, nil)
	mockRepo.On("ListHistory", ctx, domain.SnapshotHistoryLimit).
		Return([]domain.ClaimHistoryEntry{}, nil)

	snap, err := svc.Snapshot(ctx)

	require.NoError(t, err)
	require.NotNil(t, snap)
	mockRepo.AssertExpectations(t)
}

// ==================== SEEDING TESTS ====================

func TestSeedDefaultUsers_EmptyStore(t *testing.T) {
	svc, mockRepo, _ := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("CountUsers", ctx).Return(int64(0), nil)

	var seeded []string
	mockRepo.On("CreateUser", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			u := args.Get(1).(*domain.User)
			seeded = append(seeded, u.Name)
			assert.Equal(t, int64(0), u.TotalPoints)
		}).
		Return(&domain.User{}, nil).Times(10)

	err := svc.SeedDefaultUsers(ctx)

	require.NoError(t, err)
	assert.Equal(t, defaultUserNames, seeded)
	mockRepo.AssertExpectations(t)
}

func TestSeedDefaultUsers_NonEmptyStoreIsNoop(t *testing.T) {
	svc, mockRepo, _ := setupTestService(t)
	ctx := context.Background()

	// Even a partially seeded store is left alone.
	mockRepo.On("CountUsers", ctx).Return(int64(3), nil)

	err := svc.SeedDefaultUsers(ctx)

	require.NoError(t, err)
	mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}
