package capacity

import (
	"fmt"
	"time"

	"traino/internal/shared/id"
)

// Token is a purchased unit of extra capacity: a quantity of fungible slots
// sharing one expiration. A token with a bound consumer is consumed; an
// active, unexpired, unbound token is available. Quantity is conserved:
// binding a slice of a larger token splits it, never mints or destroys
// quantity.
type Token struct {
	id              uint
	sid             string
	trainerID       uint
	quantity        uint
	expiresAt       time.Time
	active          bool
	boundConsumerID *uint
	boundAt         *time.Time
	createdBy       *uint
	reason          *string
	version         int
	baseVersion     int
	createdAt       time.Time
	updatedAt       time.Time
}

func NewToken(trainerID uint, quantity uint, expiresAt time.Time,
	createdBy *uint, reason *string) (*Token, error) {

	if trainerID == 0 {
		return nil, fmt.Errorf("trainer ID is required")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("token quantity must be at least 1")
	}
	if !expiresAt.After(time.Now().UTC()) {
		return nil, fmt.Errorf("token expiration must be in the future")
	}

	now := time.Now().UTC()
	return &Token{
		sid:         id.NewTokenSID(),
		trainerID:   trainerID,
		quantity:    quantity,
		expiresAt:   expiresAt.UTC(),
		active:      true,
		createdBy:   createdBy,
		reason:      reason,
		version:     1,
		baseVersion: 1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructToken(tokenID uint, sid string, trainerID, quantity uint,
	expiresAt time.Time, active bool, boundConsumerID *uint, boundAt *time.Time,
	createdBy *uint, reason *string, version int,
	createdAt, updatedAt time.Time) (*Token, error) {

	if tokenID == 0 {
		return nil, fmt.Errorf("token ID cannot be zero")
	}
	if trainerID == 0 {
		return nil, fmt.Errorf("trainer ID is required")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("token quantity must be at least 1")
	}

	return &Token{
		id:              tokenID,
		sid:             sid,
		trainerID:       trainerID,
		quantity:        quantity,
		expiresAt:       expiresAt,
		active:          active,
		boundConsumerID: boundConsumerID,
		boundAt:         boundAt,
		createdBy:       createdBy,
		reason:          reason,
		version:         version,
		baseVersion:     version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}, nil
}

func (t *Token) ID() uint {
	return t.id
}

func (t *Token) SetID(tokenID uint) error {
	if t.id != 0 {
		return fmt.Errorf("token ID is already set")
	}
	if tokenID == 0 {
		return fmt.Errorf("token ID cannot be zero")
	}
	t.id = tokenID
	return nil
}

func (t *Token) SID() string {
	return t.sid
}

func (t *Token) TrainerID() uint {
	return t.trainerID
}

func (t *Token) Quantity() uint {
	return t.quantity
}

func (t *Token) ExpiresAt() time.Time {
	return t.expiresAt
}

func (t *Token) Active() bool {
	return t.active
}

func (t *Token) BoundConsumerID() *uint {
	return t.boundConsumerID
}

func (t *Token) BoundAt() *time.Time {
	return t.boundAt
}

func (t *Token) CreatedBy() *uint {
	return t.createdBy
}

func (t *Token) Reason() *string {
	return t.reason
}

// Version returns the aggregate version for optimistic locking
func (t *Token) Version() int {
	return t.version
}

// BaseVersion is the version the aggregate was loaded with; optimistic
// writes compare against it.
func (t *Token) BaseVersion() int {
	return t.baseVersion
}

func (t *Token) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Token) UpdatedAt() time.Time {
	return t.updatedAt
}

// IsExpired reports whether the token window has passed at the given time.
func (t *Token) IsExpired(now time.Time) bool {
	return !t.expiresAt.After(now)
}

// IsConsumed reports whether the token is bound to a consumer.
func (t *Token) IsConsumed() bool {
	return t.boundConsumerID != nil
}

// IsAvailable reports whether the token can back a new binding at the given time.
func (t *Token) IsAvailable(now time.Time) bool {
	return t.active && !t.IsConsumed() && !t.IsExpired(now)
}

// Bind consumes the whole token for one consumer.
func (t *Token) Bind(consumerID uint, now time.Time) error {
	if consumerID == 0 {
		return fmt.Errorf("consumer ID is required")
	}
	if t.IsConsumed() {
		return ErrTokenAlreadyBound
	}
	if !t.active || t.IsExpired(now) {
		return ErrTokenExpired
	}

	boundAt := now.UTC()
	t.boundConsumerID = &consumerID
	t.boundAt = &boundAt
	t.updatedAt = boundAt
	t.version++
	return nil
}

// SplitOff carves `amount` off this token into a new token that is already
// bound to the given consumer. The carved piece keeps the original
// expiration, so quantity and expiry are both conserved. The receiver keeps
// the remainder.
func (t *Token) SplitOff(amount uint, consumerID uint, now time.Time) (*Token, error) {
	if amount < 1 {
		return nil, fmt.Errorf("split amount must be at least 1")
	}
	if amount >= t.quantity {
		return nil, fmt.Errorf("split amount %d must be less than token quantity %d", amount, t.quantity)
	}
	if !t.IsAvailable(now) {
		return nil, ErrTokenExpired
	}

	boundAt := now.UTC()
	piece := &Token{
		sid:             id.NewTokenSID(),
		trainerID:       t.trainerID,
		quantity:        amount,
		expiresAt:       t.expiresAt,
		active:          true,
		boundConsumerID: &consumerID,
		boundAt:         &boundAt,
		createdBy:       t.createdBy,
		reason:          t.reason,
		version:         1,
		createdAt:       boundAt,
		updatedAt:       boundAt,
	}

	t.quantity -= amount
	t.updatedAt = boundAt
	t.version++
	return piece, nil
}

// Release returns a consumed token to the available pool. A token past its
// window cannot be released back as available; it is deactivated instead and
// ErrTokenExpired is returned.
func (t *Token) Release(now time.Time) error {
	if t.IsExpired(now) {
		t.MarkExpired(now)
		return ErrTokenExpired
	}
	if !t.IsConsumed() {
		return nil
	}

	t.boundConsumerID = nil
	t.boundAt = nil
	t.updatedAt = now.UTC()
	t.version++
	return nil
}

// MarkExpired deactivates the token and clears its binding reference.
// Idempotent on already-expired rows.
func (t *Token) MarkExpired(now time.Time) {
	if !t.active && t.boundConsumerID == nil {
		return
	}
	t.active = false
	t.boundConsumerID = nil
	t.boundAt = nil
	t.updatedAt = now.UTC()
	t.version++
}
