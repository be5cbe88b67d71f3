package sweep

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"traino/internal/application/maintenance/usecases"
	"traino/internal/infrastructure/config"
	"traino/internal/infrastructure/database"
	"traino/internal/infrastructure/repository"
	"traino/internal/shared/biztime"
	"traino/internal/shared/logger"
)

var env string

// NewCommand returns the sweep subcommand: one reconciliation pass and exit.
// This is the entry point for external cron-style scheduling; the server
// process runs the same pass on its own interval when sweep.enabled is set.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one capacity reconciliation pass",
		Long:  `Expire overdue plan assignments and tokens, and deactivate consumers whose bindings have lapsed. Safe to re-run; all mutations are idempotent conditional updates.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.NewLogger()

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	gdb := database.Get()
	assignmentRepo := repository.NewPlanAssignmentRepository(gdb, log)
	tokenRepo := repository.NewCapacityTokenRepository(gdb, log)
	consumerRepo := repository.NewConsumerRepository(gdb, log)
	eventRepo := repository.NewAllocationEventRepository(gdb, log)

	reconcileUC := usecases.NewReconcileUseCase(assignmentRepo, tokenRepo, consumerRepo, eventRepo, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sweep.Timeout())
	defer cancel()

	result, err := reconcileUC.Execute(ctx, biztime.NowUTC())
	if err != nil {
		log.Errorw("reconciliation pass failed", "error", err)
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	log.Infow("reconciliation pass completed",
		"plans_expired", result.PlansExpired,
		"tokens_expired", result.TokensExpired,
		"consumers_deactivated", result.ConsumersDeactivated,
		"failures", len(result.Failures))

	for _, failure := range result.Failures {
		log.Warnw("reconciliation item failed", "detail", failure)
	}

	if len(result.Failures) > 0 {
		return fmt.Errorf("reconciliation completed with %d failures", len(result.Failures))
	}

	return nil
}
