package capacity

import "errors"

var (
	ErrAssignmentNotFound   = errors.New("plan assignment not found")
	ErrNoActiveAssignment   = errors.New("no active plan assignment")
	ErrTokenNotFound        = errors.New("capacity token not found")
	ErrTokenExpired         = errors.New("capacity token expired")
	ErrTokenAlreadyBound    = errors.New("capacity token already bound")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrConcurrentUpdate     = errors.New("concurrent update detected")
)
