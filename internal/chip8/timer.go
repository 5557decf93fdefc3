package chip8

import "time"

// tickInterval is the fixed 60 Hz timer cadence, independent of however
// often a host calls Step.
const tickInterval = time.Second / 60

// Ticker accumulates wall-clock debt so that 60 Hz timer decrements stay
// accurate even when a host's frame loop runs at a different, possibly
// jittery, rate, in place of driving timers off the step loop's step count.
type Ticker struct {
	debt time.Duration
}

// NewTicker returns a zeroed accumulator.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Advance adds elapsed wall-clock time and returns how many 60 Hz ticks are
// now due, carrying any remainder forward as debt.
func (t *Ticker) Advance(elapsed time.Duration) int {
	t.debt += elapsed
	n := 0
	for t.debt >= tickInterval {
		t.debt -= tickInterval
		n++
	}
	return n
}

// Drive advances the ticker by elapsed wall-clock time and calls vm.Tick()
// once for every 60 Hz interval that has elapsed.
func (t *Ticker) Drive(vm *VM, elapsed time.Duration) {
	n := t.Advance(elapsed)
	for i := 0; i < n; i++ {
		vm.Tick()
	}
}
