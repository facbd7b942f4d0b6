package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets the number of shards in the store.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithClock substitutes the timestamp source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}
