package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/config"
	"github.com/bsg-enterprise/ticketing/internal/observability"
	"github.com/bsg-enterprise/ticketing/internal/persistence"
	"github.com/bsg-enterprise/ticketing/internal/repository"
)

// runtime holds the process-wide resources every subcommand needs.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	postgres *persistence.Postgres
	repos    repositories
}

type repositories struct {
	users       repository.UserRepository
	resets      repository.PasswordResetRepository
	tickets     repository.TicketRepository
	comments    repository.TicketCommentRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	approvals   repository.ApprovalRepository
	departments repository.DepartmentRepository
	catalog     repository.CatalogRepository
	bsg         repository.BSGTemplateRepository
	knowledge   repository.KnowledgeRepository
	assets      repository.AssetRepository
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	pool := pg.PoolHandle()
	return &runtime{
		cfg:      cfg,
		logger:   logger,
		postgres: pg,
		repos: repositories{
			users:       repository.NewUserRepository(pool),
			resets:      repository.NewPasswordResetRepository(pool),
			tickets:     repository.NewTicketRepository(pool),
			comments:    repository.NewTicketCommentRepository(pool),
			attachments: repository.NewAttachmentRepository(pool),
			history:     repository.NewTicketHistoryRepository(pool),
			approvals:   repository.NewApprovalRepository(pool),
			departments: repository.NewDepartmentRepository(pool),
			catalog:     repository.NewCatalogRepository(pool),
			bsg:         repository.NewBSGTemplateRepository(pool),
			knowledge:   repository.NewKnowledgeRepository(pool),
			assets:      repository.NewAssetRepository(pool),
		},
	}, nil
}

func (r *runtime) close() {
	r.postgres.Close()
	_ = r.logger.Sync()
}
