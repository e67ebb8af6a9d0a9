package types

// ------------------------
// Motor control payloads (motor/<id>/control/<op>)
// ------------------------

type MotorSpeedSet struct {
	Speed float32 `json:"speed"`
}

type MotorDutySet struct {
	Duty float32 `json:"duty"`
}

// MotorPercentSet maps Value from [InMin,InMax] onto a speed range. When
// Ranged is false the full [-1,1] range is used.
type MotorPercentSet struct {
	Value    float32 `json:"value"`
	InMin    float32 `json:"in_min"`
	InMax    float32 `json:"in_max"`
	SpeedMin float32 `json:"speed_min,omitempty"`
	SpeedMax float32 `json:"speed_max,omitempty"`
	Ranged   bool    `json:"ranged,omitempty"`
}

type MotorFrequencySet struct {
	Hz float32 `json:"hz"`
}

// Decay mode names used on the wire.
const (
	DecaySlow = "slow" // braking
	DecayFast = "fast" // coasting
)

type MotorDecaySet struct {
	Mode string `json:"mode"` // "slow" | "fast"
}

type MotorDirectionSet struct {
	Reversed bool `json:"reversed"`
}

type MotorScaleSet struct {
	Scale float32 `json:"scale"`
}

type MotorDeadzoneSet struct {
	Percent float32 `json:"percent"`
}

// MotorRampSet ramps the commanded speed linearly to To over DurationMs in
// Steps steps.
type MotorRampSet struct {
	To         float32 `json:"to"`
	DurationMs uint32  `json:"duration_ms"`
	Steps      uint16  `json:"steps"`
}

// ------------------------
// Motor telemetry (retained)
// ------------------------

// MotorValue is published on motor/<id>/value after every command.
type MotorValue struct {
	Duty    float32 `json:"duty"`
	Speed   float32 `json:"speed"`
	Enabled bool    `json:"enabled"`
}

// MotorState is published on motor/<id>/state when configuration changes.
type MotorState struct {
	FrequencyHz float32 `json:"frequency_hz"`
	DecayMode   string  `json:"decay_mode"`
	Reversed    bool    `json:"reversed"`
	SpeedScale  float32 `json:"speed_scale"`
	Deadzone    float32 `json:"deadzone"`
}

// MotorCurrent is published on motor/<id>/current by the monitor poller.
type MotorCurrent struct {
	MilliAmps int32 `json:"milliamps"`
	BusMilliV int32 `json:"bus_millivolts"`
	Overlimit bool  `json:"overlimit,omitempty"`
}

// MotorError is published on motor/<id>/event/error for rejected commands.
type MotorError struct {
	Op   string `json:"op"`
	Code string `json:"code"`
}
