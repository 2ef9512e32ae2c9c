package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/email"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
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
	stores := repository.NewStores(pool)
	uow := repository.NewUnitOfWork(pool)

	var signer service.StorageSigner
	s3Client, err := storage.NewClient(ctx, cfg.S3)
	if err != nil {
		logger.Warn("object storage disabled", zap.Error(err))
	} else {
		signer = s3Client
	}

	dispatcher := events.NewInMemoryDispatcher()
	mailer := email.NewSMTPMailer(cfg.SMTP)

	notifications := service.NewNotificationService(dispatcher, stores.Dedup, mailer, logger, cfg.Notification)
	notifications.RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, stores.Users)
	ticketService := service.NewTicketService(stores, uow, dispatcher, cfg.Policy)
	commentService := service.NewCommentService(stores, uow, dispatcher)
	attachmentService := service.NewAttachmentService(stores, uow, signer, cfg.Policy)
	uploadService := service.NewUploadService(signer)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), stores.Users)

	autoClose := worker.NewAutoCloseWorker(ticketService, logger, cfg.Policy.AutoCloseInterval())
	autoClose.Start(ctx)
	defer autoClose.Stop()

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, commentService, attachmentService),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService),
		Uploads:        handlers.NewUploadsHandler(uploadService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
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
