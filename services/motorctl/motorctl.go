// Package motorctl exposes one motor.Motor on the in-process bus.
//
// Control messages arrive on motor/<id>/control/<op>; after every motion
// command the service publishes the commanded duty/speed on
// motor/<id>/value (retained) and configuration changes on motor/<id>/state
// (retained). An optional INA219 monitor feeds motor/<id>/current and
// forces a coast when the configured current limit is exceeded.
//
// A single goroutine owns the Motor, which gives the unlocked driver the
// external serialisation it requires. Speed ramps run in a helper goroutine
// that feeds target speeds back into the owning loop.
package motorctl

import (
	"context"
	"sync"
	"time"

	"picomotor/bus"
	"picomotor/drivers/ina219"
	"picomotor/errcode"
	"picomotor/motor"
	"picomotor/types"
	"picomotor/x/mathx"
	"picomotor/x/ramp"
)

type Config struct {
	ID string // topic segment, e.g. "m0"

	// Optional current monitor.
	Monitor            *ina219.Device
	SampleEvery        time.Duration // default 250ms when Monitor is set
	OverlimitMilliAmps int32         // 0 disables the overcurrent coast
}

type Service struct {
	conn *bus.Connection
	m    *motor.Motor
	cfg  Config
	ctrl *bus.Subscription

	rampCh chan float32

	rampMu     sync.Mutex
	rampCancel chan struct{}
	rampAlive  bool
}

// New registers the control subscription immediately, so commands published
// any time after construction queue for Run instead of being lost.
func New(conn *bus.Connection, m *motor.Motor, cfg Config) *Service {
	if cfg.ID == "" {
		cfg.ID = "m0"
	}
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = 250 * time.Millisecond
	}
	s := &Service{
		conn:   conn,
		m:      m,
		cfg:    cfg,
		rampCh: make(chan float32, 4),
	}
	s.ctrl = conn.Subscribe(s.topic("control", "+"))
	return s
}

func (s *Service) topic(rest ...string) bus.Topic {
	return bus.T(append([]string{"motor", s.cfg.ID}, rest...)...)
}

// Run services control messages until ctx is cancelled. The motor must
// already be initialised.
func (s *Service) Run(ctx context.Context) {
	defer s.conn.Unsubscribe(s.ctrl)

	var tickC <-chan time.Time
	if s.cfg.Monitor != nil {
		t := time.NewTicker(s.cfg.SampleEvery)
		defer t.Stop()
		tickC = t.C
	}

	s.publishValue()
	s.publishState()

	for {
		select {
		case <-ctx.Done():
			s.stopRamp()
			s.m.Coast()
			s.publishValue()
			return
		case msg := <-s.ctrl.Channel():
			s.handle(msg)
		case v := <-s.rampCh:
			s.m.SetSpeed(v)
			s.publishValue()
		case <-tickC:
			s.sampleCurrent()
		}
	}
}

func (s *Service) handle(msg *bus.Message) {
	op := msg.Topic.Last()
	var err error

	switch op {
	case "set_speed":
		if p, ok := msg.Payload.(types.MotorSpeedSet); ok {
			s.stopRamp()
			s.m.SetSpeed(p.Speed)
		} else {
			err = errcode.InvalidPayload
		}
	case "set_duty":
		if p, ok := msg.Payload.(types.MotorDutySet); ok {
			s.stopRamp()
			s.m.SetDuty(p.Duty)
		} else {
			err = errcode.InvalidPayload
		}
	case "to_percent":
		if p, ok := msg.Payload.(types.MotorPercentSet); ok {
			s.stopRamp()
			if p.Ranged {
				s.m.ToPercentRange(p.Value, p.InMin, p.InMax, p.SpeedMin, p.SpeedMax)
			} else {
				s.m.ToPercent(p.Value, p.InMin, p.InMax)
			}
		} else {
			err = errcode.InvalidPayload
		}
	case "full_positive":
		s.stopRamp()
		s.m.FullPositive()
	case "full_negative":
		s.stopRamp()
		s.m.FullNegative()
	case "stop":
		s.stopRamp()
		s.m.Stop()
	case "coast":
		s.stopRamp()
		s.m.Coast()
	case "enable":
		s.m.Enable()
	case "disable":
		s.stopRamp()
		s.m.Disable()
	case "ramp":
		if p, ok := msg.Payload.(types.MotorRampSet); ok {
			err = s.startRamp(p)
		} else {
			err = errcode.InvalidPayload
		}
	case "stop_ramp":
		s.stopRamp()
	case "set_frequency":
		if p, ok := msg.Payload.(types.MotorFrequencySet); ok {
			err = s.m.SetFrequency(p.Hz)
		} else {
			err = errcode.InvalidPayload
		}
	case "set_decay_mode":
		switch p, ok := msg.Payload.(types.MotorDecaySet); {
		case !ok:
			err = errcode.InvalidPayload
		case p.Mode == types.DecaySlow:
			s.m.SetDecayMode(motor.SlowDecay)
		case p.Mode == types.DecayFast:
			s.m.SetDecayMode(motor.FastDecay)
		default:
			err = errcode.InvalidParams
		}
	case "set_direction":
		if p, ok := msg.Payload.(types.MotorDirectionSet); ok {
			d := motor.Normal
			if p.Reversed {
				d = motor.Reversed
			}
			s.m.SetDirection(d)
		} else {
			err = errcode.InvalidPayload
		}
	case "set_speed_scale":
		if p, ok := msg.Payload.(types.MotorScaleSet); ok {
			err = s.m.SetSpeedScale(p.Scale)
		} else {
			err = errcode.InvalidPayload
		}
	case "set_deadzone":
		if p, ok := msg.Payload.(types.MotorDeadzoneSet); ok {
			err = s.m.SetDeadzone(p.Percent)
		} else {
			err = errcode.InvalidPayload
		}
	default:
		err = errcode.Unsupported
	}

	if err != nil {
		s.publishError(op, err)
		return
	}
	s.publishValue()
	s.publishState()
}

func (s *Service) startRamp(p types.MotorRampSet) error {
	s.rampMu.Lock()
	defer s.rampMu.Unlock()
	if s.rampAlive {
		return errcode.Busy
	}
	cancel := make(chan struct{})
	s.rampCancel, s.rampAlive = cancel, true
	from := s.m.Speed()

	go func() {
		tick := func(d time.Duration) bool {
			select {
			case <-cancel:
				return false
			case <-time.After(d):
				return true
			}
		}
		ramp.StartLinear(from, p.To, p.DurationMs, p.Steps, tick, func(v float32) {
			select {
			case s.rampCh <- v:
			case <-cancel:
			}
		})
		s.rampMu.Lock()
		if s.rampCancel == cancel {
			s.rampAlive = false
		}
		s.rampMu.Unlock()
	}()
	return nil
}

func (s *Service) stopRamp() {
	s.rampMu.Lock()
	if s.rampAlive {
		close(s.rampCancel)
		s.rampAlive = false
	}
	s.rampMu.Unlock()
}

func (s *Service) sampleCurrent() {
	ma, err := s.cfg.Monitor.CurrentMilliAmps()
	if err != nil {
		s.publishError("current_sample", err)
		return
	}
	mv, err := s.cfg.Monitor.BusMilliVolts()
	if err != nil {
		s.publishError("current_sample", err)
		return
	}

	over := s.cfg.OverlimitMilliAmps > 0 && mathx.Abs(ma) > s.cfg.OverlimitMilliAmps
	s.conn.Publish(&bus.Message{
		Topic:    s.topic("current"),
		Payload:  types.MotorCurrent{MilliAmps: ma, BusMilliV: mv, Overlimit: over},
		Retained: true,
	})
	if over {
		s.stopRamp()
		s.m.Coast()
		s.publishValue()
		s.publishError("overcurrent", errcode.Overcurrent)
	}
}

func (s *Service) publishValue() {
	s.conn.Publish(&bus.Message{
		Topic: s.topic("value"),
		Payload: types.MotorValue{
			Duty:    s.m.Duty(),
			Speed:   s.m.Speed(),
			Enabled: s.m.IsEnabled(),
		},
		Retained: true,
	})
}

func (s *Service) publishState() {
	mode := types.DecaySlow
	if s.m.DecayMode() == motor.FastDecay {
		mode = types.DecayFast
	}
	s.conn.Publish(&bus.Message{
		Topic: s.topic("state"),
		Payload: types.MotorState{
			FrequencyHz: s.m.Frequency(),
			DecayMode:   mode,
			Reversed:    s.m.Direction() == motor.Reversed,
			SpeedScale:  s.m.SpeedScale(),
			Deadzone:    s.m.Deadzone(),
		},
		Retained: true,
	})
}

func (s *Service) publishError(op string, err error) {
	s.conn.Publish(&bus.Message{
		Topic:   s.topic("event", "error"),
		Payload: types.MotorError{Op: op, Code: string(errcode.Of(err))},
	})
}
