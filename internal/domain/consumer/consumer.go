package consumer

import (
	"fmt"
	"time"

	"traino/internal/domain/capacity"
	"traino/internal/shared/id"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ResourceBinding records which pool backs a consumer: a plan assignment or
// a capacity token, never both. A consumer has at most one binding at a time.
type ResourceBinding struct {
	Source           capacity.BindingSource
	PlanAssignmentID *uint
	TokenID          *uint
	ValidUntil       time.Time
}

// Validate checks the binding references exactly the resource its source names.
func (b ResourceBinding) Validate() error {
	if !b.Source.IsValid() {
		return fmt.Errorf("invalid binding source: %s", b.Source)
	}
	switch b.Source {
	case capacity.SourcePlan:
		if b.PlanAssignmentID == nil || b.TokenID != nil {
			return fmt.Errorf("plan binding must reference a plan assignment only")
		}
	case capacity.SourceToken:
		if b.TokenID == nil || b.PlanAssignmentID != nil {
			return fmt.Errorf("token binding must reference a token only")
		}
	}
	if b.ValidUntil.IsZero() {
		return fmt.Errorf("binding valid-until is required")
	}
	return nil
}

// Consumer is a trainer's student. An active consumer occupies one slot of
// the trainer's capacity through its binding.
//
// Deactivation does not release the binding: the backing token or plan slot
// stays consumed until the consumer is deleted or the plan is revoked.
type Consumer struct {
	id          uint
	sid         string
	trainerID   uint
	name        string
	status      Status
	binding     *ResourceBinding
	version     int
	baseVersion int
	createdAt   time.Time
	updatedAt   time.Time
}

func NewConsumer(trainerID uint, name string) (*Consumer, error) {
	if trainerID == 0 {
		return nil, fmt.Errorf("trainer ID is required")
	}
	if name == "" {
		return nil, fmt.Errorf("consumer name is required")
	}
	if len(name) > 150 {
		return nil, fmt.Errorf("consumer name too long (max 150 characters)")
	}

	now := time.Now().UTC()
	return &Consumer{
		sid:         id.NewConsumerSID(),
		trainerID:   trainerID,
		name:        name,
		status:      StatusActive,
		version:     1,
		baseVersion: 1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructConsumer(consumerID uint, sid string, trainerID uint, name string,
	status string, binding *ResourceBinding, version int,
	createdAt, updatedAt time.Time) (*Consumer, error) {

	if consumerID == 0 {
		return nil, fmt.Errorf("consumer ID cannot be zero")
	}
	if trainerID == 0 {
		return nil, fmt.Errorf("trainer ID is required")
	}

	consumerStatus := Status(status)
	if consumerStatus != StatusActive && consumerStatus != StatusInactive {
		return nil, fmt.Errorf("invalid consumer status: %s", status)
	}

	if binding != nil {
		if err := binding.Validate(); err != nil {
			return nil, fmt.Errorf("invalid binding: %w", err)
		}
	}

	return &Consumer{
		id:          consumerID,
		sid:         sid,
		trainerID:   trainerID,
		name:        name,
		status:      consumerStatus,
		binding:     binding,
		version:     version,
		baseVersion: version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (c *Consumer) ID() uint {
	return c.id
}

func (c *Consumer) SetID(consumerID uint) error {
	if c.id != 0 {
		return fmt.Errorf("consumer ID is already set")
	}
	if consumerID == 0 {
		return fmt.Errorf("consumer ID cannot be zero")
	}
	c.id = consumerID
	return nil
}

func (c *Consumer) SID() string {
	return c.sid
}

func (c *Consumer) TrainerID() uint {
	return c.trainerID
}

func (c *Consumer) Name() string {
	return c.name
}

func (c *Consumer) Status() Status {
	return c.status
}

func (c *Consumer) Binding() *ResourceBinding {
	return c.binding
}

func (c *Consumer) IsBound() bool {
	return c.binding != nil
}

func (c *Consumer) IsActive() bool {
	return c.status == StatusActive
}

// Version returns the aggregate version for optimistic locking
func (c *Consumer) Version() int {
	return c.version
}

// BaseVersion is the version the aggregate was loaded with; optimistic
// writes compare against it.
func (c *Consumer) BaseVersion() int {
	return c.baseVersion
}

func (c *Consumer) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Consumer) UpdatedAt() time.Time {
	return c.updatedAt
}

// Bind attaches a resource binding. Fails if the consumer already has one;
// idempotent retries are handled above this aggregate by returning the
// existing binding untouched.
func (c *Consumer) Bind(binding ResourceBinding) error {
	if c.binding != nil {
		return ErrAlreadyBound
	}
	if err := binding.Validate(); err != nil {
		return err
	}

	c.binding = &binding
	c.updatedAt = time.Now().UTC()
	c.version++
	return nil
}

// Deactivate marks the consumer inactive. The binding is intentionally kept:
// deactivation alone never frees the backing token or plan slot.
func (c *Consumer) Deactivate() {
	if c.status == StatusInactive {
		return
	}
	c.status = StatusInactive
	c.updatedAt = time.Now().UTC()
	c.version++
}

func (c *Consumer) Activate() {
	if c.status == StatusActive {
		return
	}
	c.status = StatusActive
	c.updatedAt = time.Now().UTC()
	c.version++
}

// ClearBinding removes the binding descriptor. Only two flows may call this:
// consumer deletion (token returns to the pool) and plan revocation cascade
// (the backing plan itself is being revoked).
func (c *Consumer) ClearBinding() {
	if c.binding == nil {
		return
	}
	c.binding = nil
	c.updatedAt = time.Now().UTC()
	c.version++
}

// Revoke deactivates the consumer and clears its binding in one state
// transition, bumping the version once so the change persists as a single
// optimistic write. Used by the plan revocation cascade.
func (c *Consumer) Revoke() {
	if c.status == StatusInactive && c.binding == nil {
		return
	}
	c.status = StatusInactive
	c.binding = nil
	c.updatedAt = time.Now().UTC()
	c.version++
}
