package catalog

import (
	"fmt"
	"time"

	"traino/internal/shared/id"
)

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
)

var validCurrencies = map[string]bool{
	"BRL": true,
	"USD": true,
	"EUR": true,
}

// Plan is a catalog tier: it defines how many consumer slots a trainer gets,
// what the tier costs, and how long an assignment of it lasts. Plans are
// never hard-deleted; retiring a tier deactivates it so history stays intact.
type Plan struct {
	id           uint
	sid          string
	name         string
	slug         string
	description  string
	slotLimit    uint
	priceCents   uint64
	currency     string
	durationDays int
	status       PlanStatus
	sortOrder    int
	metadata     map[string]interface{}
	version      int
	baseVersion  int
	createdAt    time.Time
	updatedAt    time.Time
}

func NewPlan(name, slug, description string, slotLimit uint, priceCents uint64,
	currency string, durationDays int) (*Plan, error) {

	if name == "" {
		return nil, fmt.Errorf("plan name is required")
	}
	if slug == "" {
		return nil, fmt.Errorf("plan slug is required")
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("plan name too long (max 100 characters)")
	}
	if len(slug) > 100 {
		return nil, fmt.Errorf("plan slug too long (max 100 characters)")
	}
	if !validCurrencies[currency] {
		return nil, fmt.Errorf("invalid currency code: %s", currency)
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("plan duration must be at least one day")
	}

	now := time.Now().UTC()
	return &Plan{
		sid:          id.NewPlanSID(),
		name:         name,
		slug:         slug,
		description:  description,
		slotLimit:    slotLimit,
		priceCents:   priceCents,
		currency:     currency,
		durationDays: durationDays,
		status:       PlanStatusActive,
		sortOrder:    0,
		metadata:     make(map[string]interface{}),
		version:      1,
		baseVersion:  1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

func ReconstructPlan(planID uint, sid, name, slug, description string,
	slotLimit uint, priceCents uint64, currency string, durationDays int,
	status string, sortOrder int, metadata map[string]interface{}, version int,
	createdAt, updatedAt time.Time) (*Plan, error) {

	if planID == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}

	planStatus := PlanStatus(status)
	if planStatus != PlanStatusActive && planStatus != PlanStatusInactive {
		return nil, fmt.Errorf("invalid plan status: %s", status)
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Plan{
		id:           planID,
		sid:          sid,
		name:         name,
		slug:         slug,
		description:  description,
		slotLimit:    slotLimit,
		priceCents:   priceCents,
		currency:     currency,
		durationDays: durationDays,
		status:       planStatus,
		sortOrder:    sortOrder,
		metadata:     metadata,
		version:      version,
		baseVersion:  version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

func (p *Plan) ID() uint {
	return p.id
}

func (p *Plan) SetID(planID uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	if planID == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.id = planID
	return nil
}

func (p *Plan) SID() string {
	return p.sid
}

func (p *Plan) Name() string {
	return p.name
}

func (p *Plan) Slug() string {
	return p.slug
}

func (p *Plan) Description() string {
	return p.description
}

// SlotLimit is the number of consumers an assignment of this plan can keep
// bound at once.
func (p *Plan) SlotLimit() uint {
	return p.slotLimit
}

func (p *Plan) PriceCents() uint64 {
	return p.priceCents
}

func (p *Plan) Currency() string {
	return p.currency
}

func (p *Plan) DurationDays() int {
	return p.durationDays
}

func (p *Plan) Status() PlanStatus {
	return p.status
}

func (p *Plan) SortOrder() int {
	return p.sortOrder
}

func (p *Plan) Metadata() map[string]interface{} {
	return p.metadata
}

func (p *Plan) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Plan) UpdatedAt() time.Time {
	return p.updatedAt
}

// Version returns the aggregate version for optimistic locking
func (p *Plan) Version() int {
	return p.version
}

// BaseVersion is the version the aggregate was loaded with. Optimistic writes
// compare against it, so any number of in-memory mutations persist as one
// conditional update.
func (p *Plan) BaseVersion() int {
	return p.baseVersion
}

func (p *Plan) IsActive() bool {
	return p.status == PlanStatusActive
}

func (p *Plan) Activate() error {
	if p.status == PlanStatusActive {
		return nil
	}
	p.status = PlanStatusActive
	p.updatedAt = time.Now().UTC()
	p.version++
	return nil
}

func (p *Plan) Deactivate() error {
	if p.status == PlanStatusInactive {
		return nil
	}
	p.status = PlanStatusInactive
	p.updatedAt = time.Now().UTC()
	p.version++
	return nil
}

func (p *Plan) UpdatePrice(priceCents uint64, currency string) error {
	if !validCurrencies[currency] {
		return fmt.Errorf("invalid currency code: %s", currency)
	}
	p.priceCents = priceCents
	p.currency = currency
	p.updatedAt = time.Now().UTC()
	p.version++
	return nil
}

func (p *Plan) UpdateDescription(description string) {
	p.description = description
	p.updatedAt = time.Now().UTC()
	p.version++
}

// UpdateSlotLimit changes the slot limit for future assignments. Assignments
// already issued keep the limit they were created against, so live capacity
// is never shrunk under a bound consumer.
func (p *Plan) UpdateSlotLimit(limit uint) {
	p.slotLimit = limit
	p.updatedAt = time.Now().UTC()
	p.version++
}

func (p *Plan) SetSortOrder(order int) {
	p.sortOrder = order
	p.updatedAt = time.Now().UTC()
	p.version++
}
