package feed

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Pacer is called before each line is processed.
type Pacer interface {
	Pause(ctx context.Context) error
}

// NoPause never waits.
type NoPause struct{}

func (NoPause) Pause(ctx context.Context) error { return ctx.Err() }

// DefaultSlowmo is the upper bound of a slowmo delay.
const DefaultSlowmo = time.Second

// Slowmo waits a random duration in [0, max) to imitate a live feed.
type Slowmo struct {
	mu  sync.Mutex
	rnd *rand.Rand
	max time.Duration
}

// NewSlowmo returns a Slowmo pacer. A nil rnd uses a randomly seeded source;
// a non-positive max uses DefaultSlowmo.
func NewSlowmo(rnd *rand.Rand, max time.Duration) *Slowmo {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if max <= 0 {
		max = DefaultSlowmo
	}
	return &Slowmo{rnd: rnd, max: max}
}

// Delay draws the next pause length.
func (s *Slowmo) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.rnd.Int64N(int64(s.max)))
}

// Pause sleeps for the next delay or until ctx is cancelled.
func (s *Slowmo) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(s.Delay())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
