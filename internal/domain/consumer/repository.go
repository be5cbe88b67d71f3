package consumer

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, consumer *Consumer) error
	GetByID(ctx context.Context, id uint) (*Consumer, error)
	GetBySID(ctx context.Context, sid string) (*Consumer, error)
	Update(ctx context.Context, consumer *Consumer) error
	Delete(ctx context.Context, id uint) error
	ListByTrainerID(ctx context.Context, trainerID uint) ([]*Consumer, error)

	// CountBoundByTrainerID counts consumers whose binding is still inside
	// its validity window at `now`, regardless of lifecycle status.
	// Deactivated-but-bound consumers still occupy a slot until the window
	// lapses; lapsed bindings are kept for audit but consume nothing.
	CountBoundByTrainerID(ctx context.Context, trainerID uint, now time.Time) (int64, error)
	// CountBoundByAssignmentID counts consumers bound via the given plan
	// assignment. Plan slot usage is always this derived count, never a
	// stored counter.
	CountBoundByAssignmentID(ctx context.Context, assignmentID uint) (int64, error)
	ListBoundByAssignmentID(ctx context.Context, assignmentID uint) ([]*Consumer, error)

	// BindIfUnbound writes the binding descriptor only if the consumer has
	// none yet. Returns false when the conditional update matched no row,
	// which signals a concurrent binding attempt.
	BindIfUnbound(ctx context.Context, consumerID uint, binding ResourceBinding) (bool, error)

	// FindActiveWithLapsedBinding returns active consumers whose binding
	// valid-until has passed at `now`.
	FindActiveWithLapsedBinding(ctx context.Context, now time.Time) ([]*Consumer, error)
}
