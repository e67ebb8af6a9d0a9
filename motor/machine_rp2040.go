//go:build rp2040

package motor

import (
	"machine"

	"picomotor/errcode"
	"picomotor/x/pwmx"
)

// pwmCtrl matches the exported surface of machine.PWM0..PWM7 without
// naming the unexported concrete type.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// PinPair is the positive/negative GPIO pair driving one H-bridge.
type PinPair struct {
	Positive machine.Pin
	Negative machine.Pin
}

// machineSink drives a pin pair through the RP2040 PWM slices. Logical
// levels in [0..period] are rescaled onto the hardware top the machine
// package picked for the requested period, so a level at the period is
// constant-high on the pin.
type machineSink struct {
	pins  [2]machine.Pin
	ctrl  [2]pwmCtrl
	chIdx [2]uint8
	top   uint32 // logical full-scale level (wrap+1)
	hwTop [2]uint32
}

// NewMachineSink resolves the PWM slice and channel for each pin of the
// pair. The pins are exclusively owned by the sink until Close.
func NewMachineSink(pins PinPair) (PWMSink, error) {
	s := &machineSink{pins: [2]machine.Pin{pins.Positive, pins.Negative}}
	for i, pin := range s.pins {
		slice, err := machine.PWMPeripheral(pin)
		if err != nil {
			return nil, errcode.UnknownPin
		}
		s.ctrl[i] = pwmGroupBySlice(slice)
		// Channel within the slice: even pin => A(0), odd pin => B(1).
		s.chIdx[i] = uint8(pin) & 1
	}
	return s, nil
}

func (s *machineSink) Configure(wrap uint16, div16 uint16) error {
	// (wrap+1) ticks of the 8.4 fixed-point divided source clock, in ns.
	periodNs := (uint64(wrap) + 1) * uint64(div16) * 1_000_000_000 / (16 * uint64(pwmx.SourceHz))
	for i := range s.ctrl {
		if err := s.ctrl[i].Configure(machine.PWMConfig{Period: periodNs}); err != nil {
			return err
		}
		s.hwTop[i] = s.ctrl[i].Top()
	}
	for _, p := range s.pins {
		p.Configure(machine.PinConfig{Mode: machine.PinPWM})
	}
	s.top = uint32(wrap) + 1
	return nil
}

func (s *machineSink) SetLevel(ch Channel, level uint16) {
	if s.top == 0 {
		return
	}
	l := uint32(level)
	if l > s.top {
		l = s.top
	}
	hw := uint32(uint64(l) * uint64(s.hwTop[ch]) / uint64(s.top))
	s.ctrl[ch].Set(s.chIdx[ch], hw)
}

func (s *machineSink) Close() error {
	for i := range s.ctrl {
		s.ctrl[i].Set(s.chIdx[i], 0)
	}
	for _, p := range s.pins {
		p.Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	return nil
}
