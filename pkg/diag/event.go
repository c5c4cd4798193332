package diag

import "time"

// Event is a single diagnostic observation.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID groups the events of one parse or decode run (UUID).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Severity of the observation.
	Severity Severity `cbor:"3,keyasint"`

	// Kind classifies the event type.
	Kind Kind `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Collision *CollisionEvent `cbor:"5,keyasint,omitempty"`
	Skip      *SkipEvent      `cbor:"6,keyasint,omitempty"`
	Frame     *FrameEvent     `cbor:"7,keyasint,omitempty"`
}

// Severity grades an event.
type Severity uint8

const (
	// SeverityInfo marks routine observations such as skipped sections
	// and decoded frame records.
	SeverityInfo Severity = 0
	// SeverityWarning marks observations that changed the database in a
	// way the caller may not expect, such as a merge overwrite.
	SeverityWarning Severity = 1
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// Kind classifies the event type.
type Kind uint8

const (
	// KindCollision indicates a merge collision that overwrote a lookup entry.
	KindCollision Kind = 0
	// KindSkip indicates an input section a parser ignored.
	KindSkip Kind = 1
	// KindFrame indicates a decoded frame record.
	KindFrame Kind = 2
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCollision:
		return "COLLISION"
	case KindSkip:
		return "SKIP"
	case KindFrame:
		return "FRAME"
	default:
		return "UNKNOWN"
	}
}

// CollisionTable identifies which lookup table a merge collision hit.
type CollisionTable uint8

const (
	// CollisionByName indicates two messages shared a name.
	CollisionByName CollisionTable = 0
	// CollisionByFrameID indicates two messages shared a frame ID.
	CollisionByFrameID CollisionTable = 1
)

// String returns the table name.
func (t CollisionTable) String() string {
	switch t {
	case CollisionByName:
		return "NAME"
	case CollisionByFrameID:
		return "FRAME_ID"
	default:
		return "UNKNOWN"
	}
}

// CollisionEvent records a database merge that overwrote a lookup entry.
// The incoming message wins; the previous one stays in the message list
// but is no longer reachable through the affected table.
type CollisionEvent struct {
	// Table that collided.
	Table CollisionTable `cbor:"1,keyasint"`

	// Name is the colliding message name (name-table collisions).
	Name string `cbor:"2,keyasint,omitempty"`

	// FrameID is the colliding frame ID (frame-ID-table collisions).
	FrameID uint32 `cbor:"3,keyasint,omitempty"`

	// Previous is the name of the message that lost its entry.
	Previous string `cbor:"4,keyasint"`

	// Incoming is the name of the message that took the entry.
	Incoming string `cbor:"5,keyasint"`
}

// SkipEvent records an input construct a parser recognized but ignored.
type SkipEvent struct {
	// Keyword is the section keyword, e.g. "SIG_GROUP_".
	Keyword string `cbor:"1,keyasint"`

	// Line is the 1-based line number of the skipped construct.
	Line int `cbor:"2,keyasint"`

	// Text is the skipped line, truncated for very long lines.
	Text string `cbor:"3,keyasint,omitempty"`
}

// FrameEvent records one decoded CAN frame.
type FrameEvent struct {
	// FrameID is the arbitration ID.
	FrameID uint32 `cbor:"1,keyasint"`

	// Data is the raw payload.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Message is the resolved message name, empty when unknown.
	Message string `cbor:"3,keyasint,omitempty"`

	// Values holds the decoded signal values keyed by signal name.
	Values map[string]any `cbor:"4,keyasint,omitempty"`

	// Unknown indicates the frame ID had no message in the database.
	Unknown bool `cbor:"5,keyasint,omitempty"`
}
