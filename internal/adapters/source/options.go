package source

// Option applies a configuration option to the Importer.
type Option func(*Importer)

// WithInitialScore sets the score of newly added items.
func WithInitialScore(score float64) Option {
	return func(im *Importer) {
		im.initialScore = score
	}
}

// WithDedupeSize bounds how many external ids one merge remembers.
func WithDedupeSize(size int) Option {
	return func(im *Importer) {
		im.dedupeSize = size
	}
}
