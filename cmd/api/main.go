package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/platform-desk/internal/api/http"
	"github.com/spec-kit/platform-desk/internal/api/http/handlers"
	"github.com/spec-kit/platform-desk/internal/auth"
	"github.com/spec-kit/platform-desk/internal/config"
	"github.com/spec-kit/platform-desk/internal/events"
	"github.com/spec-kit/platform-desk/internal/observability"
	"github.com/spec-kit/platform-desk/internal/persistence"
	"github.com/spec-kit/platform-desk/internal/repository"
	"github.com/spec-kit/platform-desk/internal/service"
	"github.com/spec-kit/platform-desk/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	platformRepo := repository.NewPlatformRepository(pool)
	userPlatformRepo := repository.NewUserPlatformRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	editRepo := repository.NewEditRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	transitionStore := repository.NewTransitionStore(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg.Auth, userRepo)
	platformService := service.NewPlatformService(platformRepo, userPlatformRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       ticketRepo,
		EditRepo:         editRepo,
		MessageRepo:      messageRepo,
		PlatformRepo:     platformRepo,
		UserPlatformRepo: userPlatformRepo,
		UserRepo:         userRepo,
		Store:            transitionStore,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
	})
	notificationService := service.NewNotificationService(notificationRepo, redis.ClientHandle(), dispatcher, logger)
	workItemClient := service.NewLoggingWorkItemClient(cfg.Azure, logger)
	syncService := service.NewWorkItemSyncService(workItemClient, dispatcher, logger)

	worker.StartWorkers(notificationService, syncService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Platforms:      handlers.NewPlatformsHandler(platformService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
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
