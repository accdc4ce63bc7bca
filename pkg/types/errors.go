package types

import "errors"

// Repository errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrDuplicate   = errors.New("entity already exists")
	ErrInvalidID   = errors.New("invalid entity ID")
	ErrInvalidData = errors.New("invalid entity data")
)

// Domain validation errors.
var (
	ErrInvalidKind    = errors.New("invalid association kind")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidRatings = errors.New("invalid ratings")
	ErrInvalidConfig  = errors.New("invalid config")
)
