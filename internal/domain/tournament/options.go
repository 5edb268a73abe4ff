package tournament

import (
	"time"

	"github.com/okian/zeroflops/internal/domain/rating"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithRater sets the rater applied to every resolved match.
func WithRater(r rating.Rater) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.rater = r
		}
	}
}

// WithClock sets the time source used to stamp history points.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the tournament id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Scheduler) {
		if gen != nil {
			s.newID = gen
		}
	}
}
