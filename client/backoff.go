package client

import (
	"time"
)

// Backoff doubles the wait between failed sync attempts, capped at Max.
// Reset is called after a successful sync.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	current time.Duration
}

func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{
		Base: base,
		Max:  max,
	}
}

func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Base
	} else {
		b.current *= 2
	}

	if b.current > b.Max {
		b.current = b.Max
	}
	return b.current
}

func (b *Backoff) Reset() {
	b.current = 0
}
