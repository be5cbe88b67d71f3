package usecases

import (
	"context"
	"fmt"
	"time"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/shared/biztime"
	"traino/internal/shared/logger"
)

type ReconcileResult struct {
	PlansExpired         int64
	TokensExpired        int64
	ConsumersDeactivated int64
	Failures             []string
}

// Total returns the number of rows the sweep touched.
func (r *ReconcileResult) Total() int {
	return int(r.PlansExpired + r.TokensExpired + r.ConsumersDeactivated)
}

// ReconcileUseCase is the periodic sweep that converges stored state with the
// clock: plan assignments past their window go inactive, due tokens expire,
// and consumers whose backing resource lapsed are deactivated. Each step is an
// idempotent conditional update, so the sweep is safe to run concurrently with
// request handling and to re-run after a partial failure.
type ReconcileUseCase struct {
	assignmentRepo capacity.PlanAssignmentRepository
	tokenRepo      capacity.TokenRepository
	consumerRepo   consumer.Repository
	eventRepo      capacity.AllocationEventRepository
	logger         logger.Interface
}

func NewReconcileUseCase(
	assignmentRepo capacity.PlanAssignmentRepository,
	tokenRepo capacity.TokenRepository,
	consumerRepo consumer.Repository,
	eventRepo capacity.AllocationEventRepository,
	logger logger.Interface,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		assignmentRepo: assignmentRepo,
		tokenRepo:      tokenRepo,
		consumerRepo:   consumerRepo,
		eventRepo:      eventRepo,
		logger:         logger,
	}
}

func (uc *ReconcileUseCase) Execute(ctx context.Context, now time.Time) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	// Step 1: expire plan assignments past their window.
	plansExpired, err := uc.assignmentRepo.ExpireDue(ctx, now)
	if err != nil {
		uc.logger.Errorw("failed to expire plan assignments", "error", err)
		result.Failures = append(result.Failures, fmt.Sprintf("expire assignments: %v", err))
	} else {
		result.PlansExpired = plansExpired
	}

	// Step 2: expire due tokens and free their bindings.
	tokensExpired, err := uc.tokenRepo.ExpireDue(ctx, now)
	if err != nil {
		uc.logger.Errorw("failed to expire tokens", "error", err)
		result.Failures = append(result.Failures, fmt.Sprintf("expire tokens: %v", err))
	} else {
		result.TokensExpired = tokensExpired
	}

	// Step 3: deactivate consumers whose binding validity has passed. The
	// binding descriptor is kept so the audit trail shows what the consumer
	// used to occupy. One consumer's failure must not abort the rest.
	lapsed, err := uc.consumerRepo.FindActiveWithLapsedBinding(ctx, now)
	if err != nil {
		uc.logger.Errorw("failed to find consumers with lapsed bindings", "error", err)
		result.Failures = append(result.Failures, fmt.Sprintf("find lapsed consumers: %v", err))
		return result, nil
	}

	for _, c := range lapsed {
		if err := uc.lapseConsumer(ctx, c, now); err != nil {
			uc.logger.Errorw("failed to deactivate lapsed consumer",
				"error", err, "consumer_id", c.ID(), "trainer_id", c.TrainerID())
			result.Failures = append(result.Failures, fmt.Sprintf("consumer %d: %v", c.ID(), err))
			continue
		}
		result.ConsumersDeactivated++
	}

	if result.Total() > 0 || len(result.Failures) > 0 {
		uc.logger.Infow("reconciliation pass completed",
			"plans_expired", result.PlansExpired,
			"tokens_expired", result.TokensExpired,
			"consumers_deactivated", result.ConsumersDeactivated,
			"failures", len(result.Failures),
		)
	}

	return result, nil
}

func (uc *ReconcileUseCase) lapseConsumer(ctx context.Context, c *consumer.Consumer, now time.Time) error {
	binding := c.Binding()

	c.Deactivate()
	if err := uc.consumerRepo.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to persist deactivation: %w", err)
	}

	// A token backing a lapsed consumer has structurally expired even if step
	// 2 missed it (clock skew between the binding validity and the token row).
	if binding != nil && binding.Source == capacity.SourceToken && binding.TokenID != nil {
		if err := uc.tokenRepo.DeactivateByID(ctx, *binding.TokenID, now); err != nil {
			return fmt.Errorf("failed to deactivate backing token: %w", err)
		}
	}

	event, err := capacity.NewAllocationEvent(c.TrainerID(), capacity.EventTypeConsumerLapsed)
	if err != nil {
		return fmt.Errorf("failed to build lapse event: %w", err)
	}
	event.WithConsumer(c.ID())
	if binding != nil {
		event.WithSource(binding.Source).WithValidUntil(binding.ValidUntil)
		if binding.PlanAssignmentID != nil {
			event.WithPlanAssignment(*binding.PlanAssignmentID)
		}
		if binding.TokenID != nil {
			event.WithToken(*binding.TokenID)
		}
	}
	if err := uc.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record lapse event: %w", err)
	}

	return nil
}

// SweepRunner adapts ReconcileUseCase to the scheduler's job contract.
type SweepRunner struct {
	uc *ReconcileUseCase
}

func NewSweepRunner(uc *ReconcileUseCase) *SweepRunner {
	return &SweepRunner{uc: uc}
}

func (r *SweepRunner) Execute(ctx context.Context) (int, error) {
	result, err := r.uc.Execute(ctx, biztime.NowUTC())
	if err != nil {
		return 0, err
	}
	if len(result.Failures) > 0 {
		return result.Total(), fmt.Errorf("reconciliation completed with %d failures", len(result.Failures))
	}
	return result.Total(), nil
}
