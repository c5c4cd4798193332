package descriptor

// ByteOrder is the bit numbering convention a signal uses to map its
// start bit and length onto payload bytes.
type ByteOrder uint8

const (
	// LittleEndian ("Intel") numbers bits from the least-significant bit
	// of byte 0 upward, crossing into the low bits of the next byte.
	LittleEndian ByteOrder = iota

	// BigEndian ("Motorola") starts at the field's most-significant bit
	// and runs toward less-significant bits, continuing at the
	// most-significant bit of the following byte on a boundary.
	BigEndian
)

// String returns the byte order name.
func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little_endian"
	case BigEndian:
		return "big_endian"
	default:
		return "unknown"
	}
}

// MuxRole describes a signal's part in message multiplexing.
type MuxRole uint8

const (
	// MuxNone marks an ordinary signal, present in every frame.
	MuxNone MuxRole = iota

	// MuxSelector marks the multiplexor signal whose raw value selects
	// which MuxCase signals the frame carries.
	MuxSelector

	// MuxCase marks a signal present only when the selector's raw value
	// equals the signal's MuxID.
	MuxCase
)

// String returns the multiplex role name.
func (r MuxRole) String() string {
	switch r {
	case MuxNone:
		return "none"
	case MuxSelector:
		return "multiplexor"
	case MuxCase:
		return "multiplexed"
	default:
		return "unknown"
	}
}

// Signal is a named bit field within a message payload.
//
// Start follows the DBC convention for the signal's byte order: for
// little-endian signals it is the position of the field's least
// significant bit counted from the least-significant bit of byte 0; for
// big-endian signals it is the position of the field's most significant
// bit in the per-byte numbering where bit 7 is the most significant bit
// of each byte.
type Signal struct {
	// Name is unique within the owning message.
	Name string

	// Start is the start bit position (see type comment).
	Start uint16

	// Length is the field width in bits, 1 through 64.
	Length uint8

	// ByteOrder selects the bit numbering convention.
	ByteOrder ByteOrder

	// Signed selects two's-complement interpretation of the raw field.
	Signed bool

	// Scale and Offset define the linear raw-to-physical transform
	// physical = raw*Scale + Offset. Scale is never zero.
	Scale  float64
	Offset float64

	// Min and Max are advisory physical bounds; both zero when the
	// source format did not declare them. The codec does not enforce
	// them.
	Min float64
	Max float64

	// Unit is the physical unit, or empty.
	Unit string

	// Choices maps raw values to labels, or nil.
	Choices *Choices

	// MuxRole and MuxID describe multiplexing. MuxID is meaningful only
	// for MuxCase signals.
	MuxRole MuxRole
	MuxID   uint32

	// Receivers lists the node names that consume the signal.
	Receivers []string

	// Comment is the signal comment, or empty.
	Comment string

	// Attributes holds uninterpreted attribute values keyed by
	// attribute definition name.
	Attributes map[string]string
}

// MSBAlignedStart returns the field's most-significant bit position in
// MSB-first linear numbering (bit 0 is the most significant bit of byte
// 0). For big-endian signals this converts the DBC per-byte start; for
// little-endian signals the notion does not apply and Start is returned
// unchanged.
func (s *Signal) MSBAlignedStart() uint16 {
	if s.ByteOrder != BigEndian {
		return s.Start
	}
	return 8*(s.Start/8) + (7 - s.Start%8)
}

// FitsIn reports whether the signal's bit span lies within a payload of
// the given byte length.
func (s *Signal) FitsIn(byteLength uint8) bool {
	if s.Length == 0 {
		return false
	}
	bits := 8 * uint16(byteLength)
	switch s.ByteOrder {
	case BigEndian:
		return s.MSBAlignedStart()+uint16(s.Length) <= bits
	default:
		return s.Start+uint16(s.Length) <= bits
	}
}

// coverage returns the linear LSB-first bit positions the signal
// occupies. Used for overlap validation.
func (s *Signal) coverage() []uint16 {
	positions := make([]uint16, 0, s.Length)
	if s.ByteOrder == BigEndian {
		pos := s.Start
		for i := uint8(0); i < s.Length; i++ {
			positions = append(positions, pos)
			if pos%8 == 0 {
				pos += 15
			} else {
				pos--
			}
		}
		return positions
	}
	for i := uint16(0); i < uint16(s.Length); i++ {
		positions = append(positions, s.Start+i)
	}
	return positions
}

// Choice is one raw-value-to-label assignment.
type Choice struct {
	// Value is the raw integer the label names, interpreted with the
	// signal's signedness.
	Value int64

	// Label is the human-readable name.
	Label string
}

// Choices is a signal's bidirectional value table. Order is preserved
// from the source text so serialization is deterministic. The zero value
// is unusable; construct with NewChoices.
type Choices struct {
	ordered []Choice
	byValue map[int64]string
	byLabel map[string]int64
}

// NewChoices builds a value table from assignments in source order. A
// repeated raw value or label keeps the first assignment.
func NewChoices(choices []Choice) *Choices {
	c := &Choices{
		ordered: make([]Choice, 0, len(choices)),
		byValue: make(map[int64]string, len(choices)),
		byLabel: make(map[string]int64, len(choices)),
	}
	for _, choice := range choices {
		if _, dup := c.byValue[choice.Value]; dup {
			continue
		}
		if _, dup := c.byLabel[choice.Label]; dup {
			continue
		}
		c.ordered = append(c.ordered, choice)
		c.byValue[choice.Value] = choice.Label
		c.byLabel[choice.Label] = choice.Value
	}
	return c
}

// Label returns the label for a raw value. Exact match only; there is no
// range or default fallback.
func (c *Choices) Label(value int64) (string, bool) {
	label, ok := c.byValue[value]
	return label, ok
}

// Value returns the raw value for a label.
func (c *Choices) Value(label string) (int64, bool) {
	value, ok := c.byLabel[label]
	return value, ok
}

// All returns the assignments in source order. The caller must not
// modify the returned slice.
func (c *Choices) All() []Choice {
	return c.ordered
}

// Len returns the number of assignments.
func (c *Choices) Len() int {
	return len(c.ordered)
}
