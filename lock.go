package fxplc

import "context"

// mutex behaves like sync.Mutex, except a pending lock attempt can be
// abandoned via the given context. The chan-based shape makes a
// single-flight critical section cancellable without an extra goroutine.
type mutex chan struct{}

func newMutex() mutex {
	m := make(mutex, 1)
	m <- struct{}{}
	return m
}

func (m mutex) lock(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m:
		return nil
	}
}

func (m mutex) unlock() {
	m <- struct{}{}
}
