package capacity

import (
	"fmt"
	"time"

	"traino/internal/shared/id"
)

// PlanAssignment is one trainer's subscription instance. At most one
// assignment is active per trainer; assigning a new plan supersedes the
// previous one instead of deleting it, so assignment history is retained.
//
// The slot limit is snapshotted from the plan at assignment time: later
// administrative edits to the catalog tier never shrink capacity under a
// trainer's already-bound consumers.
type PlanAssignment struct {
	id          uint
	sid         string
	trainerID   uint
	planID      uint
	slotLimit   uint
	startAt     time.Time
	expiresAt   time.Time
	active      bool
	assignedBy  *uint
	reason      *string
	version     int
	baseVersion int
	createdAt   time.Time
	updatedAt   time.Time
}

func NewPlanAssignment(trainerID, planID uint, slotLimit uint, startAt, expiresAt time.Time,
	assignedBy *uint, reason *string) (*PlanAssignment, error) {

	if trainerID == 0 {
		return nil, fmt.Errorf("trainer ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}
	if !expiresAt.After(startAt) {
		return nil, fmt.Errorf("expiration must be after start")
	}

	now := time.Now().UTC()
	return &PlanAssignment{
		sid:         id.NewPlanAssignmentSID(),
		trainerID:   trainerID,
		planID:      planID,
		slotLimit:   slotLimit,
		startAt:     startAt.UTC(),
		expiresAt:   expiresAt.UTC(),
		active:      true,
		assignedBy:  assignedBy,
		reason:      reason,
		version:     1,
		baseVersion: 1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructPlanAssignment(assignmentID uint, sid string, trainerID, planID uint,
	slotLimit uint, startAt, expiresAt time.Time, active bool, assignedBy *uint,
	reason *string, version int, createdAt, updatedAt time.Time) (*PlanAssignment, error) {

	if assignmentID == 0 {
		return nil, fmt.Errorf("plan assignment ID cannot be zero")
	}
	if trainerID == 0 {
		return nil, fmt.Errorf("trainer ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}

	return &PlanAssignment{
		id:          assignmentID,
		sid:         sid,
		trainerID:   trainerID,
		planID:      planID,
		slotLimit:   slotLimit,
		startAt:     startAt,
		expiresAt:   expiresAt,
		active:      active,
		assignedBy:  assignedBy,
		reason:      reason,
		version:     version,
		baseVersion: version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (a *PlanAssignment) ID() uint {
	return a.id
}

func (a *PlanAssignment) SetID(assignmentID uint) error {
	if a.id != 0 {
		return fmt.Errorf("plan assignment ID is already set")
	}
	if assignmentID == 0 {
		return fmt.Errorf("plan assignment ID cannot be zero")
	}
	a.id = assignmentID
	return nil
}

func (a *PlanAssignment) SID() string {
	return a.sid
}

func (a *PlanAssignment) TrainerID() uint {
	return a.trainerID
}

func (a *PlanAssignment) PlanID() uint {
	return a.planID
}

func (a *PlanAssignment) SlotLimit() uint {
	return a.slotLimit
}

func (a *PlanAssignment) StartAt() time.Time {
	return a.startAt
}

func (a *PlanAssignment) ExpiresAt() time.Time {
	return a.expiresAt
}

func (a *PlanAssignment) Active() bool {
	return a.active
}

func (a *PlanAssignment) AssignedBy() *uint {
	return a.assignedBy
}

func (a *PlanAssignment) Reason() *string {
	return a.reason
}

// Version returns the aggregate version for optimistic locking
func (a *PlanAssignment) Version() int {
	return a.version
}

// BaseVersion is the version the aggregate was loaded with; optimistic
// writes compare against it.
func (a *PlanAssignment) BaseVersion() int {
	return a.baseVersion
}

func (a *PlanAssignment) CreatedAt() time.Time {
	return a.createdAt
}

func (a *PlanAssignment) UpdatedAt() time.Time {
	return a.updatedAt
}

// IsExpired reports whether the assignment window has passed at the given time.
func (a *PlanAssignment) IsExpired(now time.Time) bool {
	return !a.expiresAt.After(now)
}

// IsCurrent reports whether the assignment is active and inside its window.
func (a *PlanAssignment) IsCurrent(now time.Time) bool {
	return a.active && !a.IsExpired(now)
}

// Deactivate marks the assignment inactive. Used both for supersession by a
// newer assignment and for administrative revocation. Idempotent.
func (a *PlanAssignment) Deactivate() {
	if !a.active {
		return
	}
	a.active = false
	a.updatedAt = time.Now().UTC()
	a.version++
}

// MarkExpired deactivates an assignment whose window has passed. Returns an
// error if called before the expiration time.
func (a *PlanAssignment) MarkExpired(now time.Time) error {
	if !a.IsExpired(now) {
		return fmt.Errorf("plan assignment %d has not expired yet", a.id)
	}
	a.Deactivate()
	return nil
}
