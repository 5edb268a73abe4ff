package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrClosed          = errors.New("store closed")
	ErrInvalidWrite    = errors.New("invalid write")
)
