package ramp

import (
	"time"

	"picomotor/x/mathx"
)

// Step applies the new value in [lo..hi] of the caller's range.
type Step func(v float32)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// StartLinear runs a synchronous (caller-driven) linear ramp from cur to
// 'to' over durationMs in the given number of steps. Call it from a
// goroutine and provide Tick to handle timing and cancellation.
// steps==0 or durationMs==0 snaps to 'to'.
func StartLinear(cur, to float32, durationMs uint32, steps uint16, tick Tick, set Step) {
	if steps == 0 || durationMs == 0 {
		set(to)
		return
	}
	stepDurMs := durationMs / uint32(steps)
	if stepDurMs == 0 {
		stepDurMs = 1
	}
	stepDur := time.Duration(stepDurMs) * time.Millisecond

	delta := to - cur
	for i := uint16(1); i < steps; i++ {
		if !tick(stepDur) {
			return
		}
		v := cur + delta*float32(i)/float32(steps)
		set(mathx.Clamp(v, mathx.Min(cur, to), mathx.Max(cur, to)))
	}
	if !tick(stepDur) {
		return
	}
	set(to)
}
