package capacity

import (
	"context"
	"errors"
	"time"
)

const (
	EventTypeSlotBound      = "slot_bound"
	EventTypeSlotReleased   = "slot_released"
	EventTypePlanAssigned   = "plan_assigned"
	EventTypePlanRevoked    = "plan_revoked"
	EventTypeTokensAdded    = "tokens_added"
	EventTypeTokenExpired   = "token_expired"
	EventTypePlanExpired    = "plan_expired"
	EventTypeConsumerLapsed = "consumer_lapsed"
)

var ValidEventTypes = map[string]bool{
	EventTypeSlotBound:      true,
	EventTypeSlotReleased:   true,
	EventTypePlanAssigned:   true,
	EventTypePlanRevoked:    true,
	EventTypeTokensAdded:    true,
	EventTypeTokenExpired:   true,
	EventTypePlanExpired:    true,
	EventTypeConsumerLapsed: true,
}

var ErrInvalidEventType = errors.New("invalid allocation event type")

// AllocationEvent is the immutable audit record of a capacity mutation:
// which resource was touched, for which consumer and trainer, and when the
// backing capacity runs out. History survives consumer deletion and plan
// supersession.
type AllocationEvent struct {
	id               uint
	trainerID        uint
	eventType        string
	source           *BindingSource
	planAssignmentID *uint
	tokenID          *uint
	consumerID       *uint
	validUntil       *time.Time
	actorID          *uint
	metadata         map[string]interface{}
	createdAt        time.Time
}

func NewAllocationEvent(trainerID uint, eventType string) (*AllocationEvent, error) {
	if trainerID == 0 {
		return nil, errors.New("trainer ID cannot be zero")
	}
	if !ValidEventTypes[eventType] {
		return nil, ErrInvalidEventType
	}

	return &AllocationEvent{
		trainerID: trainerID,
		eventType: eventType,
		metadata:  make(map[string]interface{}),
		createdAt: time.Now().UTC(),
	}, nil
}

func ReconstructAllocationEvent(id, trainerID uint, eventType string,
	source *BindingSource, planAssignmentID, tokenID, consumerID *uint,
	validUntil *time.Time, actorID *uint, metadata map[string]interface{},
	createdAt time.Time) (*AllocationEvent, error) {

	if id == 0 {
		return nil, errors.New("allocation event ID cannot be zero")
	}
	if !ValidEventTypes[eventType] {
		return nil, ErrInvalidEventType
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &AllocationEvent{
		id:               id,
		trainerID:        trainerID,
		eventType:        eventType,
		source:           source,
		planAssignmentID: planAssignmentID,
		tokenID:          tokenID,
		consumerID:       consumerID,
		validUntil:       validUntil,
		actorID:          actorID,
		metadata:         metadata,
		createdAt:        createdAt,
	}, nil
}

func (e *AllocationEvent) ID() uint                  { return e.id }
func (e *AllocationEvent) TrainerID() uint           { return e.trainerID }
func (e *AllocationEvent) EventType() string         { return e.eventType }
func (e *AllocationEvent) Source() *BindingSource    { return e.source }
func (e *AllocationEvent) PlanAssignmentID() *uint   { return e.planAssignmentID }
func (e *AllocationEvent) TokenID() *uint            { return e.tokenID }
func (e *AllocationEvent) ConsumerID() *uint         { return e.consumerID }
func (e *AllocationEvent) ValidUntil() *time.Time    { return e.validUntil }
func (e *AllocationEvent) ActorID() *uint            { return e.actorID }
func (e *AllocationEvent) CreatedAt() time.Time      { return e.createdAt }
func (e *AllocationEvent) SetID(id uint)             { e.id = id }
func (e *AllocationEvent) Metadata() map[string]interface{} {
	return e.metadata
}

// Builder-style setters; events are immutable once persisted.

func (e *AllocationEvent) WithSource(source BindingSource) *AllocationEvent {
	e.source = &source
	return e
}

func (e *AllocationEvent) WithPlanAssignment(assignmentID uint) *AllocationEvent {
	e.planAssignmentID = &assignmentID
	return e
}

func (e *AllocationEvent) WithToken(tokenID uint) *AllocationEvent {
	e.tokenID = &tokenID
	return e
}

func (e *AllocationEvent) WithConsumer(consumerID uint) *AllocationEvent {
	e.consumerID = &consumerID
	return e
}

func (e *AllocationEvent) WithValidUntil(validUntil time.Time) *AllocationEvent {
	v := validUntil.UTC()
	e.validUntil = &v
	return e
}

func (e *AllocationEvent) WithActor(actorID *uint) *AllocationEvent {
	e.actorID = actorID
	return e
}

func (e *AllocationEvent) WithMeta(key string, value interface{}) *AllocationEvent {
	e.metadata[key] = value
	return e
}

type AllocationEventRepository interface {
	Create(ctx context.Context, event *AllocationEvent) error
	ListByTrainerID(ctx context.Context, trainerID uint, limit int) ([]*AllocationEvent, error)
}
