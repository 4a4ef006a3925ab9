package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidDescriptor = errors.New("invalid job descriptor")

	// Pipeline errors
	ErrJobAlreadyComplete = errors.New("job already has a completion record")
)
