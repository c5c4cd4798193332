package codec

import (
	"fmt"
	"math"

	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// EncodeOptions controls value conversion during encoding.
type EncodeOptions struct {
	// ApplyScaling inverts the physical transform: the raw field is
	// round((value-offset)/scale), rounding half away from zero. When
	// false, values are taken as raw integers.
	ApplyScaling bool

	// PadUnusedBits sets every bit not covered by an encoded signal to
	// 1 instead of 0.
	PadUnusedBits bool
}

// DefaultEncodeOptions enables scaling and leaves unused bits zero.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{ApplyScaling: true}
}

// Exact float64 powers of two bounding the 64 bit integer ranges.
const (
	twoPow63 = float64(1 << 63)
	twoPow64 = twoPow63 * 2
)

// Encode packs a value map into a payload of exactly the message's
// declared length.
//
// Every non-multiplexed signal is required, as are the multiplexor and
// the signals its supplied value selects; the first required signal
// missing from values fails with *MissingSignalError, in the message's
// signal order. Choice labels are accepted anywhere a raw value is and
// reverse-resolved through the signal's table. Extra keys in values
// are ignored. On any error no payload is returned.
func Encode(m *descriptor.Message, values map[string]any, opts EncodeOptions) ([]byte, error) {
	payload := make([]byte, m.Length)
	mask := make([]byte, m.Length)

	// Resolve the multiplexor up front; which signals the frame carries
	// depends on it. A missing selector is reported at its position in
	// the signal walk below, like any other required signal.
	var selected *uint64
	if sel := m.Multiplexor(); sel != nil {
		if value, ok := values[sel.Name]; ok {
			raw, err := rawFromValue(sel, value, opts)
			if err != nil {
				return nil, err
			}
			selected = &raw
		}
	}

	for _, s := range m.Signals {
		if s.MuxRole == descriptor.MuxCase && (selected == nil || uint64(s.MuxID) != *selected) {
			continue
		}
		if !fitsPayload(s, int(m.Length)) {
			return nil, &descriptor.SemanticError{
				Message: fmt.Sprintf("signal %q exceeds the payload of message %q", s.Name, m.Name),
			}
		}
		value, ok := values[s.Name]
		if !ok {
			return nil, &MissingSignalError{Message: m.Name, Signal: s.Name}
		}
		raw, err := rawFromValue(s, value, opts)
		if err != nil {
			return nil, err
		}
		insertRaw(payload, mask, s, raw)
	}

	if opts.PadUnusedBits {
		for i := range payload {
			payload[i] |= ^mask[i]
		}
	}
	return payload, nil
}

// rawFromValue converts a caller value to the signal's raw field bits.
func rawFromValue(s *descriptor.Signal, value any, opts EncodeOptions) (uint64, error) {
	switch v := value.(type) {
	case string:
		if s.Choices != nil {
			if c, ok := s.Choices.Value(v); ok {
				return rawFromInt64(s, value, c)
			}
		}
		return 0, &UnknownChoiceError{Signal: s.Name, Label: v}

	case float64:
		return rawFromFloat(s, value, v, opts)
	case float32:
		return rawFromFloat(s, value, float64(v), opts)

	case int:
		return rawFromSignedInt(s, value, int64(v), opts)
	case int8:
		return rawFromSignedInt(s, value, int64(v), opts)
	case int16:
		return rawFromSignedInt(s, value, int64(v), opts)
	case int32:
		return rawFromSignedInt(s, value, int64(v), opts)
	case int64:
		return rawFromSignedInt(s, value, v, opts)

	case uint:
		return rawFromUnsignedInt(s, value, uint64(v), opts)
	case uint8:
		return rawFromUnsignedInt(s, value, uint64(v), opts)
	case uint16:
		return rawFromUnsignedInt(s, value, uint64(v), opts)
	case uint32:
		return rawFromUnsignedInt(s, value, uint64(v), opts)
	case uint64:
		return rawFromUnsignedInt(s, value, v, opts)

	default:
		return 0, fmt.Errorf("unsupported value type %T for signal %q", value, s.Name)
	}
}

// identityScaling reports whether the physical transform is a no-op,
// letting integer inputs skip the float64 round trip.
func identityScaling(s *descriptor.Signal) bool {
	return s.Scale == 1 && s.Offset == 0
}

func rawFromSignedInt(s *descriptor.Signal, value any, i int64, opts EncodeOptions) (uint64, error) {
	if opts.ApplyScaling && !identityScaling(s) {
		return rawFromFloat(s, value, float64(i), opts)
	}
	return rawFromInt64(s, value, i)
}

func rawFromUnsignedInt(s *descriptor.Signal, value any, u uint64, opts EncodeOptions) (uint64, error) {
	if opts.ApplyScaling && !identityScaling(s) {
		return rawFromFloat(s, value, float64(u), opts)
	}
	return rawFromUint64(s, value, u)
}

// rawFromFloat applies the inverse transform and range-checks in the
// float domain before converting, since out of range float to integer
// conversions are not defined.
func rawFromFloat(s *descriptor.Signal, value any, f float64, opts EncodeOptions) (uint64, error) {
	if opts.ApplyScaling {
		f = (f - s.Offset) / s.Scale
	}
	f = math.Round(f)

	if s.Signed {
		if math.IsNaN(f) || f < -twoPow63 || f >= twoPow63 {
			return 0, rangeError(s, value)
		}
		return rawFromInt64(s, value, int64(f))
	}
	if math.IsNaN(f) || f < 0 || f >= twoPow64 {
		return 0, rangeError(s, value)
	}
	return rawFromUint64(s, value, uint64(f))
}

// rawFromInt64 range-checks a signed candidate and truncates it to the
// signal's bit length.
func rawFromInt64(s *descriptor.Signal, value any, i int64) (uint64, error) {
	if s.Signed {
		min, max := signedBounds(s.Length)
		if i < min || i > max {
			return 0, rangeError(s, value)
		}
		return uint64(i) & lengthMask(s.Length), nil
	}
	if i < 0 {
		return 0, rangeError(s, value)
	}
	return rawFromUint64(s, value, uint64(i))
}

// rawFromUint64 range-checks an unsigned candidate.
func rawFromUint64(s *descriptor.Signal, value any, u uint64) (uint64, error) {
	if s.Signed {
		_, max := signedBounds(s.Length)
		if u > uint64(max) {
			return 0, rangeError(s, value)
		}
		return u, nil
	}
	if u > lengthMask(s.Length) {
		return 0, rangeError(s, value)
	}
	return u, nil
}

func signedBounds(length uint8) (int64, int64) {
	if length == 64 {
		return math.MinInt64, math.MaxInt64
	}
	max := int64(1)<<(length-1) - 1
	return -max - 1, max
}

func lengthMask(length uint8) uint64 {
	if length == 64 {
		return ^uint64(0)
	}
	return 1<<length - 1
}

func rangeError(s *descriptor.Signal, value any) *RangeError {
	return &RangeError{Signal: s.Name, Value: value, Length: s.Length, Signed: s.Signed}
}
