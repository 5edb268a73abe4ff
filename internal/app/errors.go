package service

import "errors"

// ErrRetriesExhausted wraps the last version conflict once the retry budget
// is spent.
var ErrRetriesExhausted = errors.New("retries exhausted")
