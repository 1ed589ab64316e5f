package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/media-service/internal/api/http"
	"github.com/spec-kit/media-service/internal/api/http/handlers"
	"github.com/spec-kit/media-service/internal/auth"
	"github.com/spec-kit/media-service/internal/config"
	"github.com/spec-kit/media-service/internal/events"
	"github.com/spec-kit/media-service/internal/observability"
	"github.com/spec-kit/media-service/internal/persistence"
	"github.com/spec-kit/media-service/internal/repository"
	"github.com/spec-kit/media-service/internal/repository/memory"
	"github.com/spec-kit/media-service/internal/service"
	"github.com/spec-kit/media-service/internal/session"
	"github.com/spec-kit/media-service/internal/storage"
	"github.com/spec-kit/media-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	readiness := map[string]handlers.Pinger{}

	var (
		userRepo   repository.UserRepository
		relRepo    repository.RelationshipRepository
		targetRepo repository.TargetRepository
	)
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.Pool)
		relRepo = repository.NewRelationshipRepository(pg.Pool)
		targetRepo = repository.NewTargetRepository(pg.Pool)
		readiness["postgres"] = pg
	} else {
		users := memory.NewUserRepository()
		userRepo = users
		relRepo = memory.NewRelationshipRepository()
		targetRepo = memory.NewTargetRepository(users)
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		redis, err := persistence.NewRedis(ctx, cfg.Redis, true, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
		sessions = session.NewRedisStore(redis.Client, cfg.Session.RedisPrefix, cfg.Auth.RefreshTTL())
		readiness["redis"] = redis
	default:
		sessions = session.NewIdentityStore(userRepo)
	}
	logger.Info("session store selected", zap.String("backend", cfg.Session.Backend))

	tokenMgr, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		AccessTTL:     cfg.Auth.AccessTTL(),
		RefreshTTL:    cfg.Auth.RefreshTTL(),
	}, auth.SystemClock{})
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	var objects storage.ObjectStorage
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3Storage(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("failed to init object storage", zap.Error(err))
		}
		objects = s3Store
	} else {
		logger.Warn("S3 not configured; profile image uploads disabled")
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger.Named("audit")))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     userRepo,
		Sessions:     sessions,
		TokenManager: tokenMgr,
		Dispatcher:   dispatcher,
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	relationshipService := service.NewRelationshipService(service.RelationshipDependencies{
		UserRepo:         userRepo,
		RelationshipRepo: relRepo,
		TargetRepo:       targetRepo,
		Dispatcher:       dispatcher,
	})
	profileService := service.NewProfileService(userRepo, objects)
	authMiddleware := auth.NewAuthMiddleware(authService)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:     logger,
		Metrics:    metrics,
		Timeout:    cfg.App.RequestTimeout(),
		CORSOrigin: cfg.App.CORSOrigin,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness, metrics),
		Users:          handlers.NewUsersHandler(authService, profileService, handlers.CookieConfig{Secure: cfg.Auth.CookieSecure}),
		Relationships:  handlers.NewRelationshipsHandler(relationshipService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
