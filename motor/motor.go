package motor

import (
	"picomotor/errcode"
	"picomotor/x/mathx"
	"picomotor/x/pwmx"
)

// Config carries the construction parameters for a Motor. Zero values for
// SpeedScale and Frequency select the defaults; a zero Deadzone really
// means no deadzone.
type Config struct {
	Direction  Direction
	SpeedScale float32
	Deadzone   float32
	Frequency  float32
	DecayMode  DecayMode
}

// Motor binds a logical State to a PWMSink: it keeps both outputs at a
// shared frequency/period and, for every duty change, emits the level pair
// for the active decay mode.
//
// Operations are direct state/register writes that complete before
// returning. There is no internal locking; the frequency-change and
// duty-apply sequences span multiple non-atomic writes, so concurrent use
// needs external serialisation (motorctl runs one goroutine per motor).
type Motor struct {
	sink  PWMSink
	state *State

	frequency float32
	period    uint16
	div16     uint16
	decay     DecayMode
	ready     bool
}

// New builds a Motor around a sink. Init must succeed before any motion
// command has an effect on the hardware.
func New(sink PWMSink, cfg Config) *Motor {
	freq := cfg.Frequency
	if freq == 0 {
		freq = DefaultFrequency
	}
	return &Motor{
		sink:      sink,
		state:     NewState(cfg.Direction, cfg.SpeedScale, cfg.Deadzone),
		frequency: freq,
		decay:     cfg.DecayMode,
	}
}

// Init derives the wrap period and clock divider for the configured
// frequency, programs the sink and zeroes both outputs. It fails without
// touching the sink if the frequency is unrepresentable.
func (m *Motor) Init() error {
	if !mathx.Between(m.frequency, MinFrequency, MaxFrequency) {
		return errcode.InvalidFrequency
	}
	period, div16, err := pwmx.Factors(m.frequency)
	if err != nil {
		return err
	}
	// Wrap is one less than the period so a compare of period reaches 100%.
	if err := m.sink.Configure(period-1, div16); err != nil {
		return err
	}
	m.period = period
	m.div16 = div16
	m.ready = true
	m.sink.SetLevel(Positive, 0)
	m.sink.SetLevel(Negative, 0)
	return nil
}

// Close zeroes both outputs and releases the sink's pins to an inert state.
func (m *Motor) Close() error {
	if m.ready {
		m.sink.SetLevel(Positive, 0)
		m.sink.SetLevel(Negative, 0)
		m.ready = false
	}
	return m.sink.Close()
}

// applyDuty writes the level pair for one hardware duty. drive=false means
// "drive no current": both channels are zeroed regardless of decay mode.
func (m *Motor) applyDuty(duty float32, drive bool) {
	if !m.ready {
		return
	}
	if !drive {
		m.sink.SetLevel(Positive, 0)
		m.sink.SetLevel(Negative, 0)
		return
	}
	pos, neg := Levels(DutyToLevel(duty, m.period), m.period, m.decay)
	m.sink.SetLevel(Positive, pos)
	m.sink.SetLevel(Negative, neg)
}

func (m *Motor) Enable()  { m.applyDuty(m.state.Enable()) }
func (m *Motor) Disable() { m.applyDuty(m.state.Disable()) }

func (m *Motor) IsEnabled() bool { return m.state.Enabled() }

func (m *Motor) Duty() float32 { return m.state.Duty() }
func (m *Motor) SetDuty(duty float32) {
	m.applyDuty(m.state.SetDuty(duty))
}

func (m *Motor) Speed() float32 { return m.state.Speed() }
func (m *Motor) SetSpeed(speed float32) {
	m.applyDuty(m.state.SetSpeed(speed))
}

func (m *Motor) ToPercent(in, inMin, inMax float32) {
	m.applyDuty(m.state.ToPercent(in, inMin, inMax))
}

func (m *Motor) ToPercentRange(in, inMin, inMax, speedMin, speedMax float32) {
	m.applyDuty(m.state.ToPercentRange(in, inMin, inMax, speedMin, speedMax))
}

func (m *Motor) FullPositive() { m.applyDuty(m.state.FullPositive()) }
func (m *Motor) FullNegative() { m.applyDuty(m.state.FullNegative()) }

// Stop commands zero duty while staying enabled: under SlowDecay the motor
// actively brakes.
func (m *Motor) Stop() { m.applyDuty(m.state.Stop()) }

// Coast zeroes the commanded duty and disables output, so the motor floats
// regardless of decay mode.
func (m *Motor) Coast() {
	m.state.SetDuty(0)
	m.Disable()
}

func (m *Motor) Frequency() float32 { return m.frequency }

// SetFrequency changes the PWM frequency live. It fails, leaving the prior
// configuration untouched, if the frequency is outside the supported band
// or unrepresentable by the divider search.
//
// The wrap and the compare levels cannot be updated atomically, so the two
// writes are ordered to keep every level at or below the wrap in force:
// when the period grows the new wrap is installed first and the duty then
// rescaled up; when it shrinks the duty is rescaled down first and the
// wrap installed after.
func (m *Motor) SetFrequency(freq float32) error {
	if !mathx.Between(freq, MinFrequency, MaxFrequency) {
		return errcode.InvalidFrequency
	}
	period, div16, err := pwmx.Factors(freq)
	if err != nil {
		return err
	}
	if !m.ready {
		// Not yet initialised: record only, Init programs the slice.
		m.frequency = freq
		return nil
	}
	if err := m.reconfigure(period, div16); err != nil {
		return err
	}
	m.frequency = freq
	return nil
}

// reconfigure installs a new wrap/divider pair and re-applies the current
// duty in the glitch-free order described on SetFrequency.
func (m *Motor) reconfigure(period, div16 uint16) error {
	old := m.period
	if period > old {
		if err := m.sink.Configure(period-1, div16); err != nil {
			return err
		}
		m.period, m.div16 = period, div16
		m.applyDuty(m.state.Drive())
		return nil
	}

	// Shrinking: rescale the duty to the new, smaller period while the old
	// (larger) wrap is still in force, then shrink the wrap.
	m.period = period
	m.applyDuty(m.state.Drive())
	if err := m.sink.Configure(period-1, div16); err != nil {
		// Roll back to the old scale; levels never exceeded either wrap.
		m.period = old
		m.applyDuty(m.state.Drive())
		return err
	}
	m.div16 = div16
	return nil
}

func (m *Motor) DecayMode() DecayMode { return m.decay }

// SetDecayMode switches the channel pattern and re-applies the current duty
// immediately so the change takes effect without waiting for a command.
func (m *Motor) SetDecayMode(mode DecayMode) {
	m.decay = mode
	m.applyDuty(m.state.Drive())
}

func (m *Motor) Direction() Direction { return m.state.Direction() }

// SetDirection changes the sign convention for future commands; the duty
// already in force keeps its sign (see State.SetDirection).
func (m *Motor) SetDirection(d Direction) { m.state.SetDirection(d) }

func (m *Motor) SpeedScale() float32 { return m.state.SpeedScale() }
func (m *Motor) SetSpeedScale(scale float32) error {
	return m.state.SetSpeedScale(scale)
}

func (m *Motor) Deadzone() float32 { return m.state.Deadzone() }

// SetDeadzone updates the deadzone fraction and re-applies the stored duty
// with the new compensation.
func (m *Motor) SetDeadzone(pct float32) error {
	duty, drive, err := m.state.SetDeadzone(pct)
	if err != nil {
		return err
	}
	m.applyDuty(duty, drive)
	return nil
}
