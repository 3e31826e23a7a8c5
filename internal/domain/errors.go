package domain

import "errors"

// Sentinel errors shared by repositories, services and the HTTP edge.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned when a record with the same id is already stored.
	ErrAlreadyExists = errors.New("already exists")
)
