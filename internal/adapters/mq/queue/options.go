package queue

// settings collects constructor configuration before the channel is sized.
type settings struct {
	capacity int
}

// Option applies a configuration option to the queue.
type Option func(*settings)

// WithCapacity bounds the number of queued run jobs.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.capacity = n
		}
	}
}
