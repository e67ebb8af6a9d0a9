package motor

// Levels converts a signed compare level into the per-channel level pair
// for the given decay mode. The sign of signedLevel selects which channel
// carries the drive pulse.
//
// FastDecay drives one channel and holds the other at 0, so the motor
// coasts between pulses. SlowDecay holds one channel fully on at the wrap
// period and drives the other with the complement, so both conduct every
// cycle and the motor brakes; at zero level both sit fully on (active
// brake).
func Levels(signedLevel int32, period uint16, mode DecayMode) (positive, negative uint16) {
	mag := uint16(signedLevel)
	if signedLevel < 0 {
		mag = uint16(-signedLevel)
	}

	switch mode {
	case SlowDecay:
		if signedLevel >= 0 {
			return period, period - mag
		}
		return period - mag, period

	default: // FastDecay
		if signedLevel >= 0 {
			return mag, 0
		}
		return 0, mag
	}
}
