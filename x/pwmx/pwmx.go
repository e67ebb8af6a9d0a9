// Package pwmx holds the RP2040 PWM timing maths shared by drivers that
// program slice wrap and clock-divider registers directly.
package pwmx

import "picomotor/errcode"

// SourceHz is the RP2040 system clock the PWM slices are fed from.
const SourceHz uint32 = 125_000_000

// maxTop is the largest usable wrap value. One less than the counter
// maximum so a compare of top+1 can express a 100% duty.
const maxTop = 65534

// Factors calculates a wrap period and a fixed-point (8.4) clock divider
// for the requested slice frequency. The period is kept as large as the
// divider range allows for the best duty resolution; the search peels small
// prime factors off the combined divider, mirroring the RP2040 firmware
// convention.
//
// It fails with errcode.InvalidFrequency if no divider in [1.0, 255.9375]
// can represent the frequency.
func Factors(freq float32) (top uint16, div16 uint16, err error) {
	if !(freq >= 1.0 && freq <= float32(SourceHz>>1)) {
		return 0, 0, errcode.InvalidFrequency
	}

	div16Top := uint64(float32(SourceHz) * 16.0 / freq)
	period := uint64(1)
	for {
		if div16Top >= 16*5 && div16Top%5 == 0 && period*5 <= maxTop {
			div16Top /= 5
			period *= 5
		} else if div16Top >= 16*3 && div16Top%3 == 0 && period*3 <= maxTop {
			div16Top /= 3
			period *= 3
		} else if div16Top >= 16*2 && period*2 <= maxTop {
			div16Top /= 2
			period *= 2
		} else {
			break
		}
	}
	// Only achievable dividers: 16 => 1.0, 4095 => 255.9375.
	if div16Top < 16 || div16Top > 4095 {
		return 0, 0, errcode.InvalidFrequency
	}
	return uint16(period), uint16(div16Top), nil
}
