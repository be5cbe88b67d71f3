package errors

import (
	"fmt"
	"net/http"
)

// Engine-specific error types layered on top of the base taxonomy.
const (
	ErrorTypeInsufficientCapacity   ErrorType = "insufficient_capacity"
	ErrorTypeConcurrentModification ErrorType = "concurrent_modification"
)

// CapacityDetails carries the trainer's capacity figures so the caller can
// act on an allocation failure (buy a plan upgrade or more tokens).
type CapacityDetails struct {
	Capacity  int64 `json:"capacity"`
	Consumed  int64 `json:"consumed"`
	Available int64 `json:"available"`
}

// NewInsufficientCapacityError creates an allocation failure carrying current
// capacity figures for caller diagnostics.
func NewInsufficientCapacityError(capacity, consumed, available int64) *AppError {
	return &AppError{
		Type:    ErrorTypeInsufficientCapacity,
		Message: "no plan slot or capacity token available; purchase additional capacity to bind more consumers",
		Code:    http.StatusUnprocessableEntity,
		Details: fmt.Sprintf("capacity=%d consumed=%d available=%d", capacity, consumed, available),
	}
}

// NewConcurrentModificationError creates a transient conflict error. The
// whole operation is safe to retry because allocation is idempotent.
func NewConcurrentModificationError(details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    ErrorTypeConcurrentModification,
		Message: "resource was modified concurrently, retry the operation",
		Code:    http.StatusConflict,
		Details: detail,
	}
}

// IsInsufficientCapacityError checks if the error is an insufficient capacity error.
func IsInsufficientCapacityError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeInsufficientCapacity
}

// IsConcurrentModificationError checks if the error is a concurrent modification error.
func IsConcurrentModificationError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeConcurrentModification
}
