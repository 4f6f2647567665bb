package di

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"realtime-leaderboard/cmd/api/infrastructure"
	"realtime-leaderboard/internal/adapter/broadcast"
	"realtime-leaderboard/internal/adapter/cache"
	"realtime-leaderboard/internal/adapter/db/postgres"
	ginhandler "realtime-leaderboard/internal/adapter/gin/handler"
	"realtime-leaderboard/internal/adapter/gin/middleware"
	"realtime-leaderboard/internal/config"
	"realtime-leaderboard/internal/usecase/leaderboard"
	redisclient "realtime-leaderboard/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	DB            *gorm.DB
	RedisClient   *redisclient.Client
	LeaderboardUC leaderboard.Usecase
	Hub           *broadcast.Hub
	RateLimiter   *middleware.RateLimiter
	GinHandler    *ginhandler.LeaderboardHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Initialize database
	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize Redis client
	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Initialize snapshot cache
	snapshotCache := cache.NewRedisSnapshotCache(
		rdb.Client,
		time.Duration(cfg.Redis.SnapshotTTLSecs)*time.Second,
		l,
	)

	// Initialize repository
	repo := postgres.NewLeaderboardRepoPG(db, l)

	// Initialize broadcast layer
	broadcaster := broadcast.NewRedisBroadcaster(rdb.Client, cfg.Broadcast.Channel, l)
	hub := broadcast.NewHub(rdb.Client, cfg.Broadcast.Channel, cfg.Broadcast.ViewerBufferSize, l)

	// Initialize use case
	uc := leaderboard.New(repo, snapshotCache, broadcaster, l)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(
		rdb.Client,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	// Initialize Gin handler
	ginHandler := ginhandler.NewLeaderboardHandler(uc, hub, l)

	return &Container{
		Config:        cfg,
		Logger:        l,
		DB:            db,
		RedisClient:   rdb,
		LeaderboardUC: uc,
		Hub:           hub,
		RateLimiter:   rateLimiter,
		GinHandler:    ginHandler,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
