package motor

import (
	"testing"

	"picomotor/errcode"
)

func near(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-4
}

func TestDeadzoneCompensation(t *testing.T) {
	s := NewState(Normal, 1, 0.1)
	s.Enable()

	cases := []struct {
		speed float32
		want  float32
	}{
		{0, 0},
		{0.05, 0},  // inside the deadzone
		{-0.05, 0}, // symmetric
		{0.1, 0},   // boundary is inside (strict compare)
		{0.5, 0.4444444},
		{-0.5, -0.4444444},
		{1, 1},   // full duty still reaches the rail
		{-1, -1}, // both rails
	}
	for _, c := range cases {
		got, drive := s.SetSpeed(c.speed)
		if !drive {
			t.Fatalf("SetSpeed(%v): drive=false while enabled", c.speed)
		}
		if !near(got, c.want) {
			t.Fatalf("SetSpeed(%v) = %v, want %v", c.speed, got, c.want)
		}
	}
}

func TestSpeedScaleDivision(t *testing.T) {
	s := NewState(Normal, 2, 0)
	s.Enable()
	if got, _ := s.SetSpeed(1); !near(got, 0.5) {
		t.Fatalf("SetSpeed(1) with scale 2 = %v, want 0.5", got)
	}
	if got, _ := s.SetSpeed(4); !near(got, 1) {
		t.Fatalf("SetSpeed(4) with scale 2 = %v, want clamp to 1", got)
	}
	if !near(s.Speed(), 2) {
		t.Fatalf("Speed() = %v, want clamp to 2", s.Speed())
	}
}

func TestDirectionRoundTrip(t *testing.T) {
	for _, speed := range []float32{-1, -0.6, -0.2, 0, 0.2, 0.6, 1} {
		n := NewState(Normal, 1, 0)
		n.Enable()
		fwd, _ := n.SetSpeed(speed)

		r := NewState(Reversed, 1, 0)
		r.Enable()
		rev, _ := r.SetSpeed(speed)

		if !near(fwd, -rev) {
			t.Fatalf("speed %v: normal %v, reversed %v, want negation", speed, fwd, rev)
		}
	}
}

func TestDirectionDoesNotRenegotiateStoredDuty(t *testing.T) {
	s := NewState(Normal, 1, 0)
	s.Enable()
	s.SetSpeed(0.5)
	s.SetDirection(Reversed)
	// The stored duty keeps its sign until the next command.
	if got := s.Duty(); !near(got, 0.5) {
		t.Fatalf("Duty after direction change = %v, want 0.5", got)
	}
	if got, _ := s.SetSpeed(0.5); !near(got, -0.5) {
		t.Fatalf("next SetSpeed = %v, want -0.5", got)
	}
}

func TestDisableIdempotentEnableReapplies(t *testing.T) {
	s := NewState(Normal, 1, 0.1)
	s.Enable()
	want, _ := s.SetSpeed(0.5)

	for i := 0; i < 2; i++ {
		d, drive := s.Disable()
		if drive || d != 0 {
			t.Fatalf("Disable #%d = (%v,%v), want (0,false)", i+1, d, drive)
		}
		if s.Enabled() {
			t.Fatalf("Disable #%d left state enabled", i+1)
		}
		if !near(s.Duty(), 0.5) {
			t.Fatalf("Disable #%d changed stored duty to %v", i+1, s.Duty())
		}
	}

	got, drive := s.Enable()
	if !drive || !near(got, want) {
		t.Fatalf("Enable = (%v,%v), want (%v,true)", got, drive, want)
	}
}

func TestCommandsWhileDisabledStoreButDoNotDrive(t *testing.T) {
	s := NewState(Normal, 1, 0)
	if d, drive := s.SetSpeed(0.7); drive || d != 0 {
		t.Fatalf("disabled SetSpeed = (%v,%v), want (0,false)", d, drive)
	}
	if !near(s.Duty(), 0.7) {
		t.Fatalf("stored duty = %v, want 0.7", s.Duty())
	}
	if got, _ := s.Enable(); !near(got, 0.7) {
		t.Fatalf("Enable = %v, want 0.7", got)
	}
}

func TestParameterRejection(t *testing.T) {
	s := NewState(Normal, 2, 0.1)

	if err := s.SetSpeedScale(0); err != errcode.InvalidParams {
		t.Fatalf("SetSpeedScale(0) err = %v, want invalid_params", err)
	}
	if err := s.SetSpeedScale(-1); err != errcode.InvalidParams {
		t.Fatalf("SetSpeedScale(-1) err = %v, want invalid_params", err)
	}
	if s.SpeedScale() != 2 {
		t.Fatalf("speed scale changed to %v on rejected update", s.SpeedScale())
	}

	for _, bad := range []float32{-0.1, 1, 1.5} {
		if _, _, err := s.SetDeadzone(bad); err != errcode.InvalidParams {
			t.Fatalf("SetDeadzone(%v) err = %v, want invalid_params", bad, err)
		}
	}
	if !near(s.Deadzone(), 0.1) {
		t.Fatalf("deadzone changed to %v on rejected update", s.Deadzone())
	}
}

func TestToPercent(t *testing.T) {
	s := NewState(Normal, 1, 0)
	s.Enable()

	if got, _ := s.ToPercent(50, 0, 100); !near(got, 0) {
		t.Fatalf("ToPercent(50,0,100) = %v, want 0", got)
	}
	if got, _ := s.ToPercent(100, 0, 100); !near(got, 1) {
		t.Fatalf("ToPercent(100,0,100) = %v, want 1", got)
	}
	if got, _ := s.ToPercent(0, 0, 100); !near(got, -1) {
		t.Fatalf("ToPercent(0,0,100) = %v, want -1", got)
	}
	if got, _ := s.ToPercentRange(75, 0, 100, 0, 1); !near(got, 0.75) {
		t.Fatalf("ToPercentRange(75,0,100,0,1) = %v, want 0.75", got)
	}
}

func TestFullAndStop(t *testing.T) {
	s := NewState(Normal, 1, 0)
	s.Enable()
	if got, _ := s.FullPositive(); got != 1 {
		t.Fatalf("FullPositive = %v", got)
	}
	if got, _ := s.FullNegative(); got != -1 {
		t.Fatalf("FullNegative = %v", got)
	}
	if got, _ := s.Stop(); got != 0 {
		t.Fatalf("Stop = %v", got)
	}
}

func TestDutyToLevel(t *testing.T) {
	const period = 1000
	if got := DutyToLevel(0, period); got != 0 {
		t.Fatalf("DutyToLevel(0) = %d", got)
	}
	if got := DutyToLevel(1, period); got != period {
		t.Fatalf("DutyToLevel(1) = %d", got)
	}
	if got := DutyToLevel(-1, period); got != -period {
		t.Fatalf("DutyToLevel(-1) = %d", got)
	}
	// Out-of-range duties clamp at the rails.
	if got := DutyToLevel(1.5, period); got != period {
		t.Fatalf("DutyToLevel(1.5) = %d", got)
	}

	prev := DutyToLevel(-1, period)
	for d := float32(-1); d <= 1; d += 0.01 {
		l := DutyToLevel(d, period)
		if l < prev {
			t.Fatalf("DutyToLevel not monotonic at duty %v: %d < %d", d, l, prev)
		}
		prev = l
	}
}
