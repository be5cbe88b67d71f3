package usecases

import (
	"context"
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/cache"
	"traino/internal/shared/biztime"
	"traino/internal/shared/logger"
)

type ResolveEntitlementQuery struct {
	TrainerID uint
}

// EntitlementResult is the capacity snapshot for one trainer. Capacity counts
// the plan's slots plus all purchased token quantity, bound or not; consumed
// counts the consumers occupying a slot, so available is what a trainer can
// still bind.
type EntitlementResult struct {
	TrainerID       uint
	Capacity        int64
	Consumed        int64
	Available       int64
	PlanSlots       int64
	TokensAvailable int64
	TokensConsumed  int64
	PlanSID         string
	IsExpired       bool
}

type ResolveEntitlementUseCase struct {
	assignmentRepo capacity.PlanAssignmentRepository
	tokenRepo      capacity.TokenRepository
	consumerRepo   consumer.Repository
	cache          cache.EntitlementCache // optional
	logger         logger.Interface
}

func NewResolveEntitlementUseCase(
	assignmentRepo capacity.PlanAssignmentRepository,
	tokenRepo capacity.TokenRepository,
	consumerRepo consumer.Repository,
	logger logger.Interface,
) *ResolveEntitlementUseCase {
	return &ResolveEntitlementUseCase{
		assignmentRepo: assignmentRepo,
		tokenRepo:      tokenRepo,
		consumerRepo:   consumerRepo,
		logger:         logger,
	}
}

// SetCache sets the entitlement snapshot cache (optional).
func (uc *ResolveEntitlementUseCase) SetCache(c cache.EntitlementCache) {
	uc.cache = c
}

func (uc *ResolveEntitlementUseCase) Execute(ctx context.Context, query ResolveEntitlementQuery) (*EntitlementResult, error) {
	if query.TrainerID == 0 {
		return nil, fmt.Errorf("trainer ID is required")
	}

	if uc.cache != nil {
		snap, err := uc.cache.Get(ctx, query.TrainerID)
		if err != nil {
			uc.logger.Warnw("entitlement cache read failed, falling back to store",
				"error", err, "trainer_id", query.TrainerID)
		} else if snap != nil {
			return resultFromSnapshot(query.TrainerID, snap), nil
		}
	}

	now := biztime.NowUTC()

	var planSlots int64
	var planSID string
	var isExpired bool

	assignment, err := uc.assignmentRepo.GetCurrentByTrainerID(ctx, query.TrainerID, now)
	if err != nil {
		uc.logger.Errorw("failed to resolve current plan assignment", "error", err, "trainer_id", query.TrainerID)
		return nil, fmt.Errorf("failed to resolve entitlement: %w", err)
	}

	if assignment != nil {
		planSlots = int64(assignment.SlotLimit())
		planSID = assignment.SID()
	} else {
		// Expired plans contribute zero slots but their identity is still
		// surfaced for dashboards and audit.
		latest, err := uc.assignmentRepo.GetLatestActiveByTrainerID(ctx, query.TrainerID)
		if err != nil {
			uc.logger.Errorw("failed to resolve latest plan assignment", "error", err, "trainer_id", query.TrainerID)
			return nil, fmt.Errorf("failed to resolve entitlement: %w", err)
		}
		if latest != nil {
			planSID = latest.SID()
			isExpired = true
		}
	}

	tokensAvailable, err := uc.tokenRepo.SumAvailableQuantity(ctx, query.TrainerID, now)
	if err != nil {
		uc.logger.Errorw("failed to sum available tokens", "error", err, "trainer_id", query.TrainerID)
		return nil, fmt.Errorf("failed to resolve entitlement: %w", err)
	}

	tokensConsumed, err := uc.tokenRepo.SumConsumedQuantity(ctx, query.TrainerID)
	if err != nil {
		uc.logger.Errorw("failed to sum consumed tokens", "error", err, "trainer_id", query.TrainerID)
		return nil, fmt.Errorf("failed to resolve entitlement: %w", err)
	}

	boundConsumers, err := uc.consumerRepo.CountBoundByTrainerID(ctx, query.TrainerID, now)
	if err != nil {
		uc.logger.Errorw("failed to count bound consumers", "error", err, "trainer_id", query.TrainerID)
		return nil, fmt.Errorf("failed to resolve entitlement: %w", err)
	}

	result := buildResult(query.TrainerID, planSlots, tokensAvailable, tokensConsumed, boundConsumers, planSID, isExpired)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, query.TrainerID, &cache.CachedEntitlement{
			PlanSlots:       planSlots,
			TokensAvailable: tokensAvailable,
			TokensConsumed:  tokensConsumed,
			BoundConsumers:  boundConsumers,
			PlanSID:         planSID,
			PlanExpired:     isExpired,
		}); err != nil {
			uc.logger.Warnw("failed to cache entitlement snapshot",
				"error", err, "trainer_id", query.TrainerID)
		}
	}

	return result, nil
}

func buildResult(trainerID uint, planSlots, tokensAvailable, tokensConsumed, boundConsumers int64,
	planSID string, isExpired bool) *EntitlementResult {

	// Bound tokens still count toward total purchased capacity.
	capacityTotal := planSlots + tokensAvailable + tokensConsumed

	return &EntitlementResult{
		TrainerID:       trainerID,
		Capacity:        capacityTotal,
		Consumed:        boundConsumers,
		Available:       capacityTotal - boundConsumers,
		PlanSlots:       planSlots,
		TokensAvailable: tokensAvailable,
		TokensConsumed:  tokensConsumed,
		PlanSID:         planSID,
		IsExpired:       isExpired,
	}
}

func resultFromSnapshot(trainerID uint, snap *cache.CachedEntitlement) *EntitlementResult {
	return buildResult(trainerID, snap.PlanSlots, snap.TokensAvailable, snap.TokensConsumed,
		snap.BoundConsumers, snap.PlanSID, snap.PlanExpired)
}
