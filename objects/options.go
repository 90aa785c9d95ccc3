package objects

import "time"

type putOptions struct {
	ttl  time.Duration
	lock bool
}

// PutOption configures Put and Save.
type PutOption func(*putOptions)

// WithTTL asks the backend to expire the written entry after d.
func WithTTL(d time.Duration) PutOption {
	return func(o *putOptions) {
		o.ttl = d
	}
}

// WithLock holds the lease on the written path for the duration of the
// write.
func WithLock() PutOption {
	return func(o *putOptions) {
		o.lock = true
	}
}

func applyPutOptions(opts []PutOption) putOptions {
	var o putOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
