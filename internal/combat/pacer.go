package combat

import (
	"context"
	"time"
)

// Step identifies one of the two suspension points of an attack.
type Step int

const (
	// AfterMonsterWrite follows the monster's cache write.
	AfterMonsterWrite Step = iota + 1
	// AfterUserWrite follows the user's cache write, right before persisting.
	AfterUserWrite
)

func (s Step) String() string {
	switch s {
	case AfterMonsterWrite:
		return "after-monster-write"
	case AfterUserWrite:
		return "after-user-write"
	default:
		return "unknown"
	}
}

// Pacer suspends an attack at a step. Pause must always return; a suspended
// attack is never abandoned.
type Pacer interface {
	Pause(ctx context.Context, step Step)
}

// PacerFunc adapts a function to Pacer.
type PacerFunc func(ctx context.Context, step Step)

func (f PacerFunc) Pause(ctx context.Context, step Step) { f(ctx, step) }

// DelayPacer sleeps for a fixed interval at every step and ignores
// cancellation.
type DelayPacer struct {
	Delay time.Duration
}

func (p DelayPacer) Pause(_ context.Context, _ Step) {
	if p.Delay > 0 {
		time.Sleep(p.Delay)
	}
}
