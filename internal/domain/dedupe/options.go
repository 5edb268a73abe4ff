package dedupe

// Option applies a configuration option to the Deduper.
type Option func(*memoryDeduper)

// WithMaxSize caps how many ids are remembered. Zero or negative disables
// the cap.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryDeduper) {
		d.maxSize = maxSize
	}
}
