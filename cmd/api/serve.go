package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/bsg-enterprise/ticketing/internal/api/http"
	"github.com/bsg-enterprise/ticketing/internal/api/http/handlers"
	"github.com/bsg-enterprise/ticketing/internal/auth"
	"github.com/bsg-enterprise/ticketing/internal/cache"
	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/mail"
	"github.com/bsg-enterprise/ticketing/internal/markdown"
	"github.com/bsg-enterprise/ticketing/internal/observability"
	"github.com/bsg-enterprise/ticketing/internal/persistence"
	"github.com/bsg-enterprise/ticketing/internal/ratelimit"
	"github.com/bsg-enterprise/ticketing/internal/service"
	"github.com/bsg-enterprise/ticketing/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the escalation scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on startup")
	return cmd
}

func serve(ctx context.Context, skipMigrations bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	logger.Info("starting server",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env))

	if cfg.Postgres.RunMigrations && !skipMigrations {
		if err := persistence.RunMigrations(ctx, rt.postgres.PoolHandle(), logger); err != nil {
			return err
		}
	}

	redis, err := persistence.NewRedis(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redis.Close()

	shutdownTracing := observability.SetupTracing(ctx, cfg.Tracing, cfg.App.Name, cfg.App.Version, logger)
	metrics := observability.NewMetrics()

	enforcer, err := auth.NewEnforcer(logger)
	if err != nil {
		return err
	}

	repos := rt.repos
	dispatcher := events.NewInMemoryDispatcher(logger)
	mailer := mail.New(cfg.Email, logger)
	revocations := auth.NewRedisRevocations(redis.Client)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          repos.users,
		PasswordResetRepo: repos.resets,
		Limiter:           ratelimit.NewRedisLimiter(redis.Client, "login"),
		Revocations:       revocations,
		Mailer:            mailer,
		Logger:            logger,
	})
	userService := service.NewUserService(*cfg, service.OrgDependencies{
		UserRepo:       repos.users,
		DepartmentRepo: repos.departments,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     repos.tickets,
		CommentRepo:    repos.comments,
		AttachmentRepo: repos.attachments,
		HistoryRepo:    repos.history,
		ApprovalRepo:   repos.approvals,
		UserRepo:       repos.users,
		DepartmentRepo: repos.departments,
		CatalogRepo:    repos.catalog,
		BSGRepo:        repos.bsg,
		AssetRepo:      repos.assets,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  repos.tickets,
		UserRepo:    repos.users,
		HistoryRepo: repos.history,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		TicketRepo:   repos.tickets,
		ApprovalRepo: repos.approvals,
		HistoryRepo:  repos.history,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	catalogService := service.NewCatalogService(service.CatalogDependencies{
		CatalogRepo: repos.catalog,
		BSGRepo:     repos.bsg,
		Cache:       cache.NewRedisCache(redis.Client),
		TTL:         cfg.Cache.CatalogTTL(),
		Logger:      logger,
	})
	bsgService := service.NewBSGTemplateService(repos.bsg, logger)
	categorizationService := service.NewCategorizationService(repos.tickets, repos.history, dispatcher, logger)
	knowledgeService := service.NewKnowledgeService(repos.knowledge, markdown.NewRenderer(), logger)
	assetService := service.NewAssetService(repos.assets, repos.users, logger)
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  repos.tickets,
		HistoryRepo: repos.history,
		Dispatcher:  dispatcher,
		Logger:      logger,
		BatchSize:   cfg.Escalation.BatchSize,
	})

	worker.StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		UserRepo:    repos.users,
		Mailer:      mailer,
		Logger:      logger,
		FrontendURL: cfg.App.FrontendURL,
	}))

	scheduler, err := worker.NewEscalationScheduler(cfg.Escalation.Schedule, escalationService, metrics, logger)
	if err != nil {
		return err
	}
	if cfg.Escalation.Enabled {
		scheduler.Start()
	}

	logger = logger.With(zap.String("service", cfg.App.Name))
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimitBytes,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.FrontendURL,
		Tracing:        cfg.Tracing.OTLPEndpoint != "",
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{
			"postgres": rt.postgres,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService, approvalService),
		Catalog:        handlers.NewCatalogHandler(catalogService, bsgService),
		Categorization: handlers.NewCategorizationHandler(categorizationService),
		Knowledge:      handlers.NewKnowledgeHandler(knowledgeService),
		Assets:         handlers.NewAssetsHandler(assetService),
		Escalations:    handlers.NewEscalationsHandler(scheduler),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users, revocations, logger),
		Enforcer:       enforcer,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			runErr = err
			logger.Error("fiber listen", zap.Error(err))
		}
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := shutdownTracing(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
	return runErr
}
