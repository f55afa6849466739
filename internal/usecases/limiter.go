package usecases

import "context"

// Limiter is a semaphore bounding the number of concurrent store-bound operations.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a limiter admitting maxConcurrent operations at once.
func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 10
	}
	return &Limiter{slots: make(chan struct{}, maxConcurrent)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.slots <- struct{}{}:
		return nil
	}
}

// Release frees a slot. Releasing more than was acquired is a no-op.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// Capacity is the maximum number of concurrent operations.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// InUse is the number of slots currently held.
func (l *Limiter) InUse() int {
	return len(l.slots)
}
