package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

type repositories struct {
	users       repository.UserRepository
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	dataEntries repository.DataEntryRepository
}

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

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repositories
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pool := pg.PoolHandle()
		repos = repositories{
			users:       repository.NewUserRepository(pool),
			tickets:     repository.NewTicketRepository(pool),
			messages:    repository.NewTicketMessageRepository(pool),
			dataEntries: repository.NewDataEntryRepository(pool),
		}
	} else {
		store := memory.NewStore()
		repos = repositories{
			users:       store.Users(),
			tickets:     store.Tickets(),
			messages:    store.Messages(),
			dataEntries: store.DataEntries(),
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var cache persistence.Cache = persistence.NoopCache{}
	if redis.Enabled() {
		cache = persistence.NewRedisCache(redis.Client, cfg.App.Name+":")
	}

	files, err := storage.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicBaseURL, cfg.Storage.MaxUploadBytes)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}

	var analyzer ai.Analyzer = ai.Disabled{}
	if cfg.AI.Enabled && cfg.AI.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.AI)
		if err != nil {
			logger.Fatal("failed to init gemini", zap.Error(err))
		}
		analyzer = gemini
	} else {
		logger.Info("ai enrichment disabled")
	}

	enricher := worker.NewEnricher(repos.tickets, analyzer, logger, metrics)
	var queue worker.Queue
	switch cfg.Jobs.Backend {
	case config.JobsBackendRiver:
		queue, err = worker.NewRiverQueue(ctx, pg.PoolHandle(), enricher, cfg.Jobs.Workers, logger)
		if err != nil {
			logger.Fatal("failed to init river", zap.Error(err))
		}
	default:
		queue = worker.NewPoolQueue(enricher, logger, cfg.Jobs.Workers, cfg.Jobs.Buffer, cfg.AI.Timeout())
	}
	if err := queue.Start(ctx); err != nil {
		logger.Fatal("failed to start job queue", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:     repos.users,
		TokenManager: tokens,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		MessageRepo: repos.messages,
		UserRepo:    repos.users,
		Storage:     files,
		Analyzer:    analyzer,
		Enrichment:  queue,
		Dispatcher:  dispatcher,
		Cache:       cache,
		Metrics:     metrics,
		Logger:      logger,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		TicketRepo: repos.tickets,
		UserRepo:   repos.users,
		Cache:      cache,
		CacheTTL:   cfg.Dashboard.CacheTTL(),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	dataEntryService := service.NewDataEntryService(repos.dataEntries, files, logger)

	paging := handlers.Paging{DefaultLimit: 10, MaxLimit: cfg.Pagination.MaxLimit}

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth: handlers.NewAuthHandler(authService, handlers.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
		}),
		Users:          handlers.NewUsersHandler(service.NewUserService(repos.users), paging),
		Tickets:        handlers.NewTicketsHandler(ticketService, paging),
		Admin:          handlers.NewAdminHandler(adminService, paging),
		DataEntries:    handlers.NewDataEntriesHandler(dataEntryService, files, paging),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.users, cfg.Auth.CookieName),
		Metrics:        metrics,
		UploadsPath:    cfg.Storage.PublicBaseURL,
		UploadsDir:     files.Root(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		logger.Warn("job queue shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
