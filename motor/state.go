// Package motor drives a dual-channel H-bridge DC motor through PWM.
//
// The package splits into a pure logical model (State: direction, speed
// scaling, deadzone and the authoritative commanded duty) and a hardware
// binding (Motor: frequency/period management and per-decay-mode level
// writes through a PWMSink). All level maths is pure and testable without
// hardware.
package motor

import (
	"math"

	"picomotor/errcode"
	"picomotor/x/mathx"
)

// Direction flips the sign convention between commanded speed/duty values
// and the hardware channel pair.
type Direction uint8

const (
	Normal Direction = iota
	Reversed
)

// DecayMode selects how the idle polarity channel is driven during the PWM
// low phase.
type DecayMode uint8

const (
	SlowDecay DecayMode = iota // braking
	FastDecay                  // coasting
)

// Hardware-supported PWM frequency band, plus construction defaults.
const (
	MinFrequency     float32 = 10.0
	MaxFrequency     float32 = 400000.0
	DefaultFrequency float32 = 25000.0

	DefaultSpeedScale float32 = 1.0
	DefaultDeadzone   float32 = 0.05
)

// State is the logical motor model. It performs no hardware access.
//
// Every command returns the duty the hardware layer should apply plus a
// drive flag. drive=false means "drive no current" (both channels zeroed);
// it is returned for every command issued while output is disabled, so a
// disabled motor never brakes even under SlowDecay. The stored duty always
// reflects the last command and is reapplied verbatim by Enable.
type State struct {
	direction  Direction
	speedScale float32
	deadzone   float32
	duty       float32 // last commanded duty in [-1,1]
	enabled    bool
}

// NewState builds a State, clamping speedScale to a positive value and
// deadzone into [0,1). Out-of-range updates after construction are rejected
// instead (SetSpeedScale, SetDeadzone).
func NewState(direction Direction, speedScale, deadzone float32) *State {
	if speedScale <= 0 {
		speedScale = DefaultSpeedScale
	}
	return &State{
		direction:  direction,
		speedScale: speedScale,
		deadzone:   mathx.Clamp(deadzone, 0, maxDeadzone),
	}
}

// maxDeadzone keeps the compensation denominator away from zero.
const maxDeadzone float32 = 0.99

// compensateDeadzone maps magnitudes below z to exactly 0 and rescales the
// remainder linearly so full duty still reaches the rails. This avoids
// commanding a near-zero PWM duty below the motor's breakaway torque.
func compensateDeadzone(d, z float32) float32 {
	mag := mathx.Abs(d)
	if mag < z {
		return 0
	}
	out := (mag - z) / (1 - z)
	if d < 0 {
		return -out
	}
	return out
}

// DutyToLevel converts a signed duty in [-1,1] into a signed PWM compare
// count, clamped to [-period, period]. It is monotonic in duty and maps 0
// to exactly 0.
func DutyToLevel(duty float32, period uint16) int32 {
	level := int32(math.Round(float64(duty) * float64(period)))
	return mathx.Clamp(level, -int32(period), int32(period))
}

// store records a duty command (hardware sign convention applied) and
// reports what the hardware should now do.
func (s *State) store(duty float32) (float32, bool) {
	if s.direction == Reversed {
		duty = -duty
	}
	s.duty = mathx.Clamp(duty, -1, 1)
	return s.Drive()
}

// Drive returns the deadzone-compensated duty the hardware should apply
// for the current command, without mutating anything.
func (s *State) Drive() (duty float32, drive bool) {
	if !s.enabled {
		return 0, false
	}
	return compensateDeadzone(s.duty, s.deadzone), true
}

// SetSpeed commands speed/speedScale as the new duty.
func (s *State) SetSpeed(speed float32) (float32, bool) {
	return s.store(speed / s.speedScale)
}

// SetDuty commands the duty directly (no speed scaling).
func (s *State) SetDuty(duty float32) (float32, bool) {
	return s.store(duty)
}

// ToPercent maps in from [inMin,inMax] onto the full speed range and
// behaves as SetSpeed.
func (s *State) ToPercent(in, inMin, inMax float32) (float32, bool) {
	return s.ToPercentRange(in, inMin, inMax, -1, 1)
}

// ToPercentRange maps in from [inMin,inMax] onto [speedMin,speedMax] and
// behaves as SetSpeed.
func (s *State) ToPercentRange(in, inMin, inMax, speedMin, speedMax float32) (float32, bool) {
	return s.SetSpeed(mathx.MapF32(in, inMin, inMax, speedMin, speedMax))
}

func (s *State) FullPositive() (float32, bool) { return s.store(1) }
func (s *State) FullNegative() (float32, bool) { return s.store(-1) }

// Stop commands zero duty while staying enabled. Under SlowDecay this
// actively brakes; use Disable (or Motor.Coast) to let the motor float.
func (s *State) Stop() (float32, bool) { return s.store(0) }

// Enable turns output on and returns the stored duty for re-application.
func (s *State) Enable() (float32, bool) {
	s.enabled = true
	return s.Drive()
}

// Disable turns output off. The stored duty is retained.
func (s *State) Disable() (float32, bool) {
	s.enabled = false
	return 0, false
}

// SetDirection changes the sign convention for future commands. The sign of
// an already-commanded duty is deliberately left alone.
func (s *State) SetDirection(d Direction) { s.direction = d }

// SetSpeedScale updates the speed divisor, taking effect on the next
// command. scale <= 0 is rejected and the prior value retained.
func (s *State) SetSpeedScale(scale float32) error {
	if !(scale > 0) {
		return errcode.InvalidParams
	}
	s.speedScale = scale
	return nil
}

// SetDeadzone updates the deadzone fraction and returns the recompensated
// duty for immediate re-application. Values outside [0,1) are rejected and
// the prior value retained.
func (s *State) SetDeadzone(pct float32) (float32, bool, error) {
	if !(pct >= 0 && pct < 1) {
		d, ok := s.Drive()
		return d, ok, errcode.InvalidParams
	}
	s.deadzone = mathx.Min(pct, maxDeadzone)
	d, ok := s.Drive()
	return d, ok, nil
}

func (s *State) Duty() float32        { return s.duty }
func (s *State) Enabled() bool        { return s.enabled }
func (s *State) Direction() Direction { return s.direction }
func (s *State) SpeedScale() float32  { return s.speedScale }
func (s *State) Deadzone() float32    { return s.deadzone }

// Speed returns the commanded speed in the caller's frame: the stored duty
// with the direction sign unapplied, multiplied back up by the speed scale.
func (s *State) Speed() float32 {
	d := s.duty
	if s.direction == Reversed {
		d = -d
	}
	return d * s.speedScale
}
