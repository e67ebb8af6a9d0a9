package motor

// Channel selects one side of the H-bridge pin pair.
type Channel uint8

const (
	Positive Channel = iota
	Negative
)

// PWMSink is the hardware write surface for one motor: two PWM outputs
// sharing one wrap/divider configuration. Implementations own the
// underlying pins for the sink's lifetime.
//
// Level writes are plain register writes with no internal locking; callers
// serialise access (see Motor).
type PWMSink interface {
	// Configure programs the shared wrap and 8.4 fixed-point clock divider
	// on both outputs. Prior settings must remain in force on failure.
	Configure(wrap uint16, div16 uint16) error

	// SetLevel writes one channel's compare level. A level above the
	// configured wrap saturates to a constant-high output.
	SetLevel(ch Channel, level uint16)

	// Close releases both outputs to an inert, non-driving state.
	Close() error
}
