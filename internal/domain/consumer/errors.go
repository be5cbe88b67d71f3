package consumer

import "errors"

var (
	ErrConsumerNotFound = errors.New("consumer not found")
	ErrAlreadyBound     = errors.New("consumer already has a resource binding")
	ErrNotBound         = errors.New("consumer has no resource binding")
)
