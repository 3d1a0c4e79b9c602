package domain

import "errors"

var (
	// Common domain errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyMessage    = errors.New("empty message")
	ErrNoSession       = errors.New("no active session")
	ErrUnsupportedMode = errors.New("unsupported mode")
	ErrNoProvider      = errors.New("no AI provider configured")
)
