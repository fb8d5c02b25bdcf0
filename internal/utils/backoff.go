package utils

import (
	"context"
	"math/rand"
	"time"
)

// Backoff retries a function with exponential delays plus jitter. Used by the
// retry queue worker, never inline in a webhook handler.
type Backoff struct {
	base       time.Duration
	maxRetries int
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries}
}

func (b Backoff) Do(ctx context.Context, fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		err = fn(i)
		if err == nil {
			return nil
		}
		if i == b.maxRetries {
			break
		}
		t := time.Duration(1<<i)*b.base + time.Duration(rand.Int63n(int64(b.base)))
		select {
		case <-time.After(t):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
