package codec

import "fmt"

// LengthError reports a payload shorter than the message's declared
// length.
type LengthError struct {
	Message  string
	Expected int
	Actual   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("message %q expects a %d byte payload, got %d", e.Message, e.Expected, e.Actual)
}

// RangeError reports a value whose raw form does not fit the signal's
// bit length and signedness.
type RangeError struct {
	Signal string
	Value  any
	Length uint8
	Signed bool
}

func (e *RangeError) Error() string {
	sign := "unsigned"
	if e.Signed {
		sign = "signed"
	}
	return fmt.Sprintf("value %v out of range for %d bit %s signal %q", e.Value, e.Length, sign, e.Signal)
}

// MissingSignalError reports an encode call whose value map lacks a
// required signal.
type MissingSignalError struct {
	Message string
	Signal  string
}

func (e *MissingSignalError) Error() string {
	return fmt.Sprintf("missing value for signal %q of message %q", e.Signal, e.Message)
}

// UnknownChoiceError reports a label that is not in the signal's value
// table.
type UnknownChoiceError struct {
	Signal string
	Label  string
}

func (e *UnknownChoiceError) Error() string {
	return fmt.Sprintf("unknown choice %q for signal %q", e.Label, e.Signal)
}
