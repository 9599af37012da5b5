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

	httptransport "github.com/helpdeskhq/helpdesk/internal/api/http"
	"github.com/helpdeskhq/helpdesk/internal/api/http/handlers"
	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/config"
	"github.com/helpdeskhq/helpdesk/internal/events"
	"github.com/helpdeskhq/helpdesk/internal/navigation"
	"github.com/helpdeskhq/helpdesk/internal/observability"
	"github.com/helpdeskhq/helpdesk/internal/persistence"
	"github.com/helpdeskhq/helpdesk/internal/registry"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	"github.com/helpdeskhq/helpdesk/internal/service"
	"github.com/helpdeskhq/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "helpdesk-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer mongo.Close(context.Background())
	if err := mongo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("failed to ensure mongo indexes", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	callRepo := repository.NewCallRepository(pool)
	messageRepo := repository.NewCallMessageRepository(pool)
	historyRepo := repository.NewCallHistoryRepository(pool)
	chatRepo := repository.NewChatRepository(mongo.Database)
	articleRepo := repository.NewKnowledgeRepository(mongo.Database)
	chatQueue := repository.NewChatQueue(redis.Client, cfg.Chat.QueueKey)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	var lookup service.RegistryLookup
	if cfg.Registry.BaseURL != "" {
		lookup = registry.NewClient(registry.Options{
			BaseURL:  cfg.Registry.BaseURL,
			Timeout:  cfg.Registry.Timeout,
			CacheTTL: cfg.Registry.CacheTTL,
			Cache:    registry.NewRedisCache(redis.Client, "registry:"),
			Logger:   logger,
			Metrics:  metrics,
		})
	} else {
		logger.Warn("company registry lookups disabled", zap.String("reason", "REGISTRY_BASE_URL not set"))
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Dispatcher:        dispatcher,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:    userRepo,
		CompanyRepo: companyRepo,
		BcryptCost:  cfg.Auth.BcryptCost,
	})
	companyService := service.NewCompanyService(service.CompanyDependencies{
		CompanyRepo: companyRepo,
		Registry:    lookup,
	})
	callService := service.NewCallService(service.CallDependencies{
		CallRepo:    callRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		ChatRepo:   chatRepo,
		Queue:      chatQueue,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		PageSize:   cfg.Chat.MessagePageSize,
	})
	dashboardService := service.NewDashboardService(callRepo)
	knowledgeService := service.NewKnowledgeService(articleRepo)

	go worker.NewQueueMonitor(chatQueue, metrics, logger, 15*time.Second).Run(ctx)

	menu, err := navigation.Default()
	if err != nil {
		logger.Fatal("failed to load navigation menu", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, logger, metrics)
	validator := handlers.NewValidator()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
			"mongo":    mongo,
		}),
		Auth:           handlers.NewAuthHandler(authService, menu, validator),
		Users:          handlers.NewUsersHandler(userService, validator),
		Companies:      handlers.NewCompaniesHandler(companyService, validator),
		Calls:          handlers.NewCallsHandler(callService, validator),
		Chat:           handlers.NewChatHandler(chatService, validator),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Knowledge:      handlers.NewKnowledgeHandler(knowledgeService, validator),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		logger.Error("api forced to shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
