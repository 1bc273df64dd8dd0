package telegram

import (
	"time"

	"github.com/keepmind9/tgchannel/pkg/constants"
)

// Backoff is the retry delay between consecutive failed polls. It starts at
// Floor, grows by Multiplier after every failure and never exceeds Ceiling.
// Not safe for concurrent use.
type Backoff struct {
	Floor      time.Duration
	Ceiling    time.Duration
	Multiplier float64

	current time.Duration
}

// NewBackoff returns a Backoff with defaults filled in for zero values.
func NewBackoff(floor, ceiling time.Duration, multiplier float64) *Backoff {
	if floor <= 0 {
		floor = constants.DefaultBackoffFloor
	}
	if ceiling <= 0 {
		ceiling = constants.DefaultBackoffCeiling
	}
	if ceiling < floor {
		ceiling = floor
	}
	if multiplier < 1 {
		multiplier = constants.DefaultBackoffMultiplier
	}
	return &Backoff{Floor: floor, Ceiling: ceiling, Multiplier: multiplier, current: floor}
}

// Current is the delay the next failure will sleep for.
func (b *Backoff) Current() time.Duration {
	if b.current == 0 {
		return b.Floor
	}
	return b.current
}

// Next returns the delay to sleep for this failure and grows the delay for
// the following one.
func (b *Backoff) Next() time.Duration {
	d := b.Current()
	grown := time.Duration(float64(d) * b.Multiplier)
	if grown > b.Ceiling || grown < d {
		grown = b.Ceiling
	}
	b.current = grown
	return d
}

// Reset drops the delay back to Floor.
func (b *Backoff) Reset() {
	b.current = b.Floor
}
