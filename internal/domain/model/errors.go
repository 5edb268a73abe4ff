package model

import "errors"

// Sentinel kinds for model invariant violations.
var (
	ErrInvalidItem   = errors.New("invalid item")
	ErrDuplicateItem = errors.New("duplicate item id")
)
