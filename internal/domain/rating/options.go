package rating

// Option applies a configuration option to the Elo rater.
type Option func(*Elo)

// WithK sets the K factor scaling every update.
func WithK(k float64) Option {
	return func(e *Elo) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithFloor sets the lowest score an update may produce.
func WithFloor(floor float64) Option {
	return func(e *Elo) {
		e.floor = floor
	}
}
