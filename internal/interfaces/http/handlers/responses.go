package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"traino/internal/domain/capacity"
	"traino/internal/domain/catalog"
	"traino/internal/shared/errors"
)

// PlanResponse is the external representation of a catalog plan.
type PlanResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description,omitempty"`
	SlotLimit    uint      `json:"slot_limit"`
	PriceCents   uint64    `json:"price_cents"`
	Currency     string    `json:"currency"`
	DurationDays int       `json:"duration_days"`
	Status       string    `json:"status"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toPlanResponse(p *catalog.Plan) PlanResponse {
	return PlanResponse{
		ID:           p.SID(),
		Name:         p.Name(),
		Slug:         p.Slug(),
		Description:  p.Description(),
		SlotLimit:    p.SlotLimit(),
		PriceCents:   p.PriceCents(),
		Currency:     p.Currency(),
		DurationDays: p.DurationDays(),
		Status:       string(p.Status()),
		SortOrder:    p.SortOrder(),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}
}

func toPlanResponses(plans []*catalog.Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	return out
}

// AssignmentResponse is the external representation of a plan assignment.
type AssignmentResponse struct {
	ID        string    `json:"id"`
	TrainerID uint      `json:"trainer_id"`
	PlanID    uint      `json:"plan_id"`
	SlotLimit uint      `json:"slot_limit"`
	StartAt   time.Time `json:"start_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
}

func toAssignmentResponse(a *capacity.PlanAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        a.SID(),
		TrainerID: a.TrainerID(),
		PlanID:    a.PlanID(),
		SlotLimit: a.SlotLimit(),
		StartAt:   a.StartAt(),
		ExpiresAt: a.ExpiresAt(),
		Active:    a.Active(),
	}
}

// TokenResponse is the external representation of a capacity token.
type TokenResponse struct {
	ID              string     `json:"id"`
	TrainerID       uint       `json:"trainer_id"`
	Quantity        uint       `json:"quantity"`
	ExpiresAt       time.Time  `json:"expires_at"`
	Active          bool       `json:"active"`
	BoundConsumerID *uint      `json:"bound_consumer_id,omitempty"`
	BoundAt         *time.Time `json:"bound_at,omitempty"`
}

func toTokenResponse(t *capacity.Token) TokenResponse {
	return TokenResponse{
		ID:              t.SID(),
		TrainerID:       t.TrainerID(),
		Quantity:        t.Quantity(),
		ExpiresAt:       t.ExpiresAt(),
		Active:          t.Active(),
		BoundConsumerID: t.BoundConsumerID(),
		BoundAt:         t.BoundAt(),
	}
}

func toTokenResponses(tokens []*capacity.Token) []TokenResponse {
	out := make([]TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toTokenResponse(t))
	}
	return out
}

// EventResponse is one entry of a trainer's allocation audit trail.
type EventResponse struct {
	ID               uint                   `json:"id"`
	TrainerID        uint                   `json:"trainer_id"`
	EventType        string                 `json:"event_type"`
	Source           *string                `json:"source,omitempty"`
	PlanAssignmentID *uint                  `json:"plan_assignment_id,omitempty"`
	TokenID          *uint                  `json:"token_id,omitempty"`
	ConsumerID       *uint                  `json:"consumer_id,omitempty"`
	ValidUntil       *time.Time             `json:"valid_until,omitempty"`
	ActorID          *uint                  `json:"actor_id,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

func toEventResponse(e *capacity.AllocationEvent) EventResponse {
	resp := EventResponse{
		ID:               e.ID(),
		TrainerID:        e.TrainerID(),
		EventType:        e.EventType(),
		PlanAssignmentID: e.PlanAssignmentID(),
		TokenID:          e.TokenID(),
		ConsumerID:       e.ConsumerID(),
		ValidUntil:       e.ValidUntil(),
		ActorID:          e.ActorID(),
		Metadata:         e.Metadata(),
		CreatedAt:        e.CreatedAt(),
	}
	if src := e.Source(); src != nil {
		s := string(*src)
		resp.Source = &s
	}
	return resp
}

func toEventResponses(events []*capacity.AllocationEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out
}

func parseTrainerID(c *gin.Context) (uint, error) {
	idStr := c.Param("trainer_id")
	if idStr == "" {
		return 0, errors.NewValidationError("Trainer ID is required")
	}

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.NewValidationError("Invalid trainer ID format")
	}

	return uint(id), nil
}
