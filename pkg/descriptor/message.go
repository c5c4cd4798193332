package descriptor

import "fmt"

// Message is a CAN frame definition: a frame ID, a payload length and an
// ordered list of signals laid out within that payload.
type Message struct {
	// FrameID is the CAN arbitration ID without flag bits.
	FrameID uint32

	// IsExtended marks a 29-bit identifier.
	IsExtended bool

	// Name is unique within a Database.
	Name string

	// Length is the payload size in bytes.
	Length uint8

	// SenderNode is the producing node's name, or empty.
	SenderNode string

	// Signals in source order.
	Signals []*Signal

	// Comment is the message comment, or empty.
	Comment string

	// Attributes holds uninterpreted attribute values keyed by
	// attribute definition name.
	Attributes map[string]string
}

// SignalByName returns the named signal, or nil.
func (m *Message) SignalByName(name string) *Signal {
	for _, s := range m.Signals {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Multiplexor returns the selector signal, or nil when the message is
// not multiplexed.
func (m *Message) Multiplexor() *Signal {
	for _, s := range m.Signals {
		if s.MuxRole == MuxSelector {
			return s
		}
	}
	return nil
}

// IsMultiplexed reports whether any signal is selected by a multiplexor.
func (m *Message) IsMultiplexed() bool {
	for _, s := range m.Signals {
		if s.MuxRole == MuxCase {
			return true
		}
	}
	return false
}

// Validate checks the message's structural invariants: every signal fits
// within Length, signal names are unique, a message with multiplexed
// signals has exactly one multiplexor, and signals that can occur in the
// same frame do not overlap. Returns a *SemanticError on the first
// violation.
func (m *Message) Validate() error {
	names := make(map[string]struct{}, len(m.Signals))
	selectors := 0
	cases := 0

	for _, s := range m.Signals {
		if s.Length == 0 || s.Length > 64 {
			return &SemanticError{
				Message: fmt.Sprintf("signal %q in message %q has invalid length %d", s.Name, m.Name, s.Length),
			}
		}
		if !s.FitsIn(m.Length) {
			return &SemanticError{
				Message: fmt.Sprintf("signal %q does not fit in the %d byte payload of message %q", s.Name, m.Length, m.Name),
			}
		}
		if _, dup := names[s.Name]; dup {
			return &SemanticError{
				Message: fmt.Sprintf("duplicate signal name %q in message %q", s.Name, m.Name),
			}
		}
		names[s.Name] = struct{}{}

		switch s.MuxRole {
		case MuxSelector:
			selectors++
		case MuxCase:
			cases++
		}
	}

	if cases > 0 && selectors != 1 {
		return &SemanticError{
			Message: fmt.Sprintf("message %q has %d multiplexors for %d multiplexed signals", m.Name, selectors, cases),
		}
	}
	if selectors > 1 {
		return &SemanticError{
			Message: fmt.Sprintf("message %q has %d multiplexors", m.Name, selectors),
		}
	}

	return m.validateOverlap()
}

// validateOverlap rejects bit overlap between signals that can occur in
// the same frame: the base group (plain signals and the multiplexor)
// must be disjoint from everything, and signals sharing a multiplex ID
// must be disjoint from each other. Signals selected by different IDs
// may share bits.
func (m *Message) validateOverlap() error {
	bits := 8 * int(m.Length)
	base := make([]*Signal, bits)
	byMuxID := make(map[uint32][]*Signal)

	claim := func(owners []*Signal, s *Signal) *Signal {
		for _, pos := range s.coverage() {
			if prev := owners[pos]; prev != nil {
				return prev
			}
			owners[pos] = s
		}
		return nil
	}

	for _, s := range m.Signals {
		if s.MuxRole == MuxCase {
			continue
		}
		if prev := claim(base, s); prev != nil {
			return overlapError(m.Name, prev, s)
		}
	}

	for _, s := range m.Signals {
		if s.MuxRole != MuxCase {
			continue
		}
		// Against the base group.
		for _, pos := range s.coverage() {
			if base[pos] != nil {
				return overlapError(m.Name, base[pos], s)
			}
		}
		// Against its own multiplex group.
		group, ok := byMuxID[s.MuxID]
		if !ok {
			group = make([]*Signal, bits)
			byMuxID[s.MuxID] = group
		}
		if prev := claim(group, s); prev != nil {
			return overlapError(m.Name, prev, s)
		}
	}

	return nil
}

func overlapError(message string, a, b *Signal) *SemanticError {
	return &SemanticError{
		Message: fmt.Sprintf("signals %q and %q overlap in message %q", a.Name, b.Name, message),
	}
}
