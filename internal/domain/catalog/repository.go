package catalog

import "context"

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetBySID(ctx context.Context, sid string) (*Plan, error)
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	Update(ctx context.Context, plan *Plan) error

	ListActive(ctx context.Context) ([]*Plan, error)
	List(ctx context.Context, filter PlanFilter) ([]*Plan, int64, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

type PlanFilter struct {
	Status   *string
	Page     int
	PageSize int
	SortBy   string
}
