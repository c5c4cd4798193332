package codec

import (
	"fmt"
	"math"

	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// DecodeOptions controls value conversion during decoding.
type DecodeOptions struct {
	// DecodeChoices substitutes a signal's choice label for its raw
	// value when the value table has an exact match.
	DecodeChoices bool

	// ApplyScaling converts raw values to physical float64 values via
	// raw*scale+offset. When false, raw integers are returned: uint64
	// for unsigned signals, int64 for signed ones.
	ApplyScaling bool
}

// DefaultDecodeOptions enables choice decoding and scaling.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{DecodeChoices: true, ApplyScaling: true}
}

// Decode extracts the message's signal values from a payload.
//
// The payload must be at least the message's declared length; a longer
// payload is accepted and its tail ignored. For multiplexed messages
// the multiplexor is resolved from its raw unscaled value first, and
// signals selected by a different multiplex ID are omitted from the
// result.
//
// Result values are float64 when scaling is applied, choice label
// strings when a table matches, and raw uint64/int64 otherwise.
func Decode(m *descriptor.Message, payload []byte, opts DecodeOptions) (map[string]any, error) {
	if len(payload) < int(m.Length) {
		return nil, &LengthError{Message: m.Name, Expected: int(m.Length), Actual: len(payload)}
	}

	selected, err := selectedMuxID(m, payload)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(m.Signals))
	for _, s := range m.Signals {
		if s.MuxRole == descriptor.MuxCase && (selected == nil || uint64(s.MuxID) != *selected) {
			continue
		}
		if !fitsPayload(s, len(payload)) {
			return nil, &descriptor.SemanticError{
				Message: fmt.Sprintf("signal %q exceeds the payload of message %q", s.Name, m.Name),
			}
		}
		values[s.Name] = decodeValue(s, extractRaw(payload, s), opts)
	}
	return values, nil
}

// selectedMuxID returns the multiplexor's raw value, or nil when the
// message has no multiplexor.
func selectedMuxID(m *descriptor.Message, payload []byte) (*uint64, error) {
	sel := m.Multiplexor()
	if sel == nil {
		return nil, nil
	}
	if !fitsPayload(sel, len(payload)) {
		return nil, &descriptor.SemanticError{
			Message: fmt.Sprintf("signal %q exceeds the payload of message %q", sel.Name, m.Name),
		}
	}
	raw := extractRaw(payload, sel)
	return &raw, nil
}

// decodeValue converts a raw field to the caller-facing value.
func decodeValue(s *descriptor.Signal, raw uint64, opts DecodeOptions) any {
	var signed int64
	if s.Signed {
		signed = signExtend(raw, s.Length)
	}

	if opts.DecodeChoices && s.Choices != nil {
		var label string
		var ok bool
		if s.Signed {
			label, ok = s.Choices.Label(signed)
		} else if raw <= math.MaxInt64 {
			label, ok = s.Choices.Label(int64(raw))
		}
		if ok {
			return label
		}
	}

	if opts.ApplyScaling {
		if s.Signed {
			return float64(signed)*s.Scale + s.Offset
		}
		return float64(raw)*s.Scale + s.Offset
	}

	if s.Signed {
		return signed
	}
	return raw
}
