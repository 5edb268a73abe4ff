// Package rating computes pairwise score updates from match outcomes.
package rating

import "math"

// Default rating configuration constants.
const (
	DefaultK     = 32
	DefaultFloor = 0
	eloScale     = 400
)

// Outcome is the result of a rated match from the first player's side.
type Outcome int

// Outcomes. Draws are not supported.
const (
	Loss Outcome = 0
	Win  Outcome = 1
)

// Rater updates two scores given the outcome for the first one.
type Rater interface {
	// Rate returns the new scores of a and b. It is pure and total for finite
	// inputs.
	Rate(ra, rb float64, outcome Outcome) (newRa, newRb float64)
}

// Elo implements Rater with the classic logistic expectation.
type Elo struct {
	k     float64
	floor float64
}

// NewElo creates an Elo rater with configuration options.
func NewElo(opts ...Option) *Elo {
	e := &Elo{
		k:     DefaultK,
		floor: DefaultFloor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// K returns the configured K factor.
func (e *Elo) K() float64 { return e.k }

// Floor returns the configured minimum score.
func (e *Elo) Floor() float64 { return e.floor }

// Expected returns the probability that a beats b.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/eloScale))
}

// Rate implements Rater.
func (e *Elo) Rate(ra, rb float64, outcome Outcome) (float64, float64) {
	s := float64(outcome)
	expectedA := Expected(ra, rb)
	newRa := ra + e.k*(s-expectedA)
	newRb := rb + e.k*((1-s)-(1-expectedA))
	return math.Max(e.floor, newRa), math.Max(e.floor, newRb)
}
