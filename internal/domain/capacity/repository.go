package capacity

import (
	"context"
	"time"
)

type PlanAssignmentRepository interface {
	Create(ctx context.Context, assignment *PlanAssignment) error
	GetByID(ctx context.Context, id uint) (*PlanAssignment, error)
	Update(ctx context.Context, assignment *PlanAssignment) error

	// GetCurrentByTrainerID returns the most recent assignment that is
	// active and unexpired at `now`, or nil if the trainer has none.
	GetCurrentByTrainerID(ctx context.Context, trainerID uint, now time.Time) (*PlanAssignment, error)
	// GetLatestActiveByTrainerID returns the most recent active assignment
	// regardless of expiration, or nil. Used to surface expired plan
	// identity in entitlement resolution.
	GetLatestActiveByTrainerID(ctx context.Context, trainerID uint) (*PlanAssignment, error)
	ListByTrainerID(ctx context.Context, trainerID uint) ([]*PlanAssignment, error)

	// DeactivateByTrainerID flips every active assignment of the trainer to
	// inactive in one conditional update. Returns the number of rows
	// changed. This is the supersession primitive for assign-plan.
	DeactivateByTrainerID(ctx context.Context, trainerID uint) (int64, error)
	// ExpireDue deactivates every active assignment with expiration <= now.
	// Idempotent bulk conditional update.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type TokenRepository interface {
	Create(ctx context.Context, token *Token) error
	CreateBatch(ctx context.Context, tokens []*Token) error
	GetByID(ctx context.Context, id uint) (*Token, error)
	GetBySID(ctx context.Context, sid string) (*Token, error)
	Update(ctx context.Context, token *Token) error
	ListByTrainerID(ctx context.Context, trainerID uint) ([]*Token, error)

	// SumAvailableQuantity sums quantity over active, unexpired, unbound tokens.
	SumAvailableQuantity(ctx context.Context, trainerID uint, now time.Time) (int64, error)
	// SumConsumedQuantity sums quantity over active bound tokens.
	SumConsumedQuantity(ctx context.Context, trainerID uint) (int64, error)

	// FindSoonestAvailable returns the available token with the earliest
	// expiration (ties broken by id), or nil if none. Using the
	// soonest-expiring token first avoids stranding long-lived tokens
	// behind short-lived consumers.
	FindSoonestAvailable(ctx context.Context, trainerID uint, now time.Time) (*Token, error)

	// BindIfAvailable conditionally binds the whole token to the consumer:
	// the update only applies while the token is still active, unbound and
	// unexpired. Returns false when the condition no longer holds, which
	// signals a concurrent modification.
	BindIfAvailable(ctx context.Context, tokenID, consumerID uint, now time.Time) (bool, error)
	// DecrementIfAvailable conditionally subtracts `amount` from the token
	// quantity, applying only while the token is available and has more
	// than `amount` remaining. Returns false on condition failure.
	DecrementIfAvailable(ctx context.Context, tokenID uint, amount uint, now time.Time) (bool, error)

	// ExpireDue deactivates and unbinds every active token with
	// expiration <= now. Idempotent bulk conditional update.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	// DeactivateByID marks a single token inactive and clears its binding.
	DeactivateByID(ctx context.Context, tokenID uint, now time.Time) error
}
