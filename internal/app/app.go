package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/studentdesk/complaints/internal/config"
	"github.com/studentdesk/complaints/internal/db"
	"github.com/studentdesk/complaints/internal/repository"
	"github.com/studentdesk/complaints/internal/service"
	"github.com/studentdesk/complaints/internal/storage"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	Redis             *redis.Client // nil unless REDIS_URL is set
	Storage           storage.Storage
	IdentityService   *service.IdentityService
	ComplaintService  *service.ComplaintService
	HistoryService    *service.HistoryService
	AttachmentService *service.AttachmentService
	TokenService      *service.TokenService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Storage
	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Role cache
	var (
		redisClient *redis.Client
		roles       service.RoleCache
	)
	if cfg.RedisURL != "" {
		redisClient, err = service.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		roles = service.NewRedisRoleCache(redisClient, cfg.RoleCacheTTL)
		slog.Info("using redis role cache", "ttl", cfg.RoleCacheTTL)
	} else {
		roles = service.NewMemoryRoleCache(cfg.RoleCacheTTL)
	}

	a := Assemble(cfg, database, blobs, roles)
	a.Redis = redisClient
	return a, nil
}

// Assemble wires repositories and services over already opened backends.
func Assemble(cfg *config.Config, database *sqlx.DB, blobs storage.Storage, roles service.RoleCache) *App {
	// Repositories
	profileRepository := repository.NewProfileRepository(database)
	complaintRepository := repository.NewComplaintRepository(database)
	historyRepository := repository.NewHistoryRepository(database)
	attachmentRepository := repository.NewAttachmentRepository(database)

	// Services
	identityService := service.NewIdentityService(profileRepository, roles)
	policy := service.NewPolicy(identityService)
	complaintService := service.NewComplaintService(policy, complaintRepository)
	historyService := service.NewHistoryService(policy, complaintService, historyRepository)
	attachmentService := service.NewAttachmentService(policy, attachmentRepository, blobs)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry, cfg.SecureCookies())

	return &App{
		Cfg:               cfg,
		DB:                database,
		Storage:           blobs,
		IdentityService:   identityService,
		ComplaintService:  complaintService,
		HistoryService:    historyService,
		AttachmentService: attachmentService,
		TokenService:      tokenService,
	}
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
