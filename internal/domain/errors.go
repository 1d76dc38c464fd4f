package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("invalid state")
	ErrDuplicateJob     = errors.New("duplicate job")
	ErrGenerationFailed = errors.New("generation failed")
	ErrQueueUnavailable = errors.New("queue unavailable")
)
