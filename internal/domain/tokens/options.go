package tokens

// Option applies a configuration option to the in-memory ledger.
type Option func(*inMemoryLedger)

// WithMaxSize sets the maximum number of claims to remember.
// If maxSize > 0: bounded, the oldest claim is evicted first.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(l *inMemoryLedger) {
		l.maxSize = maxSize
	}
}
