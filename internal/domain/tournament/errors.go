package tournament

import (
	"errors"
	"fmt"

	"github.com/okian/zeroflops/internal/domain/model"
)

// Sentinel errors returned by the scheduler.
var (
	ErrBracketSize     = errors.New("tournament needs at least one item")
	ErrDuplicateItem   = model.ErrDuplicateItem
	ErrUnknownMatch    = errors.New("unknown match")
	ErrAlreadyResolved = errors.New("match already resolved")
	ErrInvalidWinner   = errors.New("winner is not a participant")
	ErrComplete        = errors.New("tournament complete")
	ErrMissingItem     = errors.New("match participant not in list")
)

// SubmitError carries the rejected submission alongside its cause.
type SubmitError struct {
	MatchID  string
	WinnerID string
	Err      error
}

// Error implements the error interface.
func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit match %s winner %q: %v", e.MatchID, e.WinnerID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SubmitError) Unwrap() error { return e.Err }
