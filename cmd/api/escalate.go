package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/events"
	"github.com/bsg-enterprise/ticketing/internal/mail"
	"github.com/bsg-enterprise/ticketing/internal/observability"
	"github.com/bsg-enterprise/ticketing/internal/service"
	"github.com/bsg-enterprise/ticketing/internal/worker"
)

func newEscalateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "escalate",
		Short: "Run one SLA escalation pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			dispatcher := events.NewInMemoryDispatcher(rt.logger)
			worker.StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{
				Dispatcher:  dispatcher,
				UserRepo:    rt.repos.users,
				Mailer:      mail.New(rt.cfg.Email, rt.logger),
				Logger:      rt.logger,
				FrontendURL: rt.cfg.App.FrontendURL,
			}))

			escalations := service.NewEscalationService(service.EscalationDependencies{
				TicketRepo:  rt.repos.tickets,
				HistoryRepo: rt.repos.history,
				Dispatcher:  dispatcher,
				Logger:      rt.logger,
				BatchSize:   rt.cfg.Escalation.BatchSize,
			})
			scheduler, err := worker.NewEscalationScheduler(rt.cfg.Escalation.Schedule, escalations, observability.NewMetrics(), rt.logger)
			if err != nil {
				return err
			}

			result := scheduler.Run(cmd.Context())
			rt.logger.Info("escalation pass finished", zap.Int("escalated", result.Escalated))
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d escalated=%d failed=%d\n", result.Scanned, result.Escalated, result.Failed)
			if result.Failed > 0 {
				return fmt.Errorf("%d tickets failed to escalate", result.Failed)
			}
			return nil
		},
	}
}
