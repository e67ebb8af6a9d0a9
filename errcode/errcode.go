package errcode

// Code is a stable error identifier used across the driver and the motorctl
// service. It is a string newtype, comparable, allocation-free, and
// implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK               Code = "ok"
	Busy             Code = "busy"
	Unsupported      Code = "unsupported"
	InvalidParams    Code = "invalid_params"
	InvalidPayload   Code = "invalid_payload"
	InvalidFrequency Code = "invalid_frequency"
	NotReady         Code = "not_ready"
	UnknownDevice    Code = "unknown_device"
	UnknownPin       Code = "unknown_pin"
	PinInUse         Code = "pin_in_use"
	Overcurrent      Code = "overcurrent"
	Timeout          Code = "timeout"

	Error Code = "error" // generic fallback
)

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
