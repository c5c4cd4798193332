package descriptor

// AttributeKind identifies which entity kind an attribute definition
// applies to.
type AttributeKind uint8

const (
	AttributeKindDatabase AttributeKind = iota
	AttributeKindNode
	AttributeKindMessage
	AttributeKindSignal
)

// String returns the kind name.
func (k AttributeKind) String() string {
	switch k {
	case AttributeKindDatabase:
		return "database"
	case AttributeKindNode:
		return "node"
	case AttributeKindMessage:
		return "message"
	case AttributeKindSignal:
		return "signal"
	default:
		return "unknown"
	}
}

// AttributeType is the declared value type of an attribute definition.
type AttributeType uint8

const (
	AttributeTypeInt AttributeType = iota
	AttributeTypeHex
	AttributeTypeFloat
	AttributeTypeString
	AttributeTypeEnum
)

// String returns the type name as spelled in DBC files.
func (t AttributeType) String() string {
	switch t {
	case AttributeTypeInt:
		return "INT"
	case AttributeTypeHex:
		return "HEX"
	case AttributeTypeFloat:
		return "FLOAT"
	case AttributeTypeString:
		return "STRING"
	case AttributeTypeEnum:
		return "ENUM"
	default:
		return "unknown"
	}
}

// AttributeDefinition declares a named attribute. The database carries
// definitions, defaults and per-entity values through parse and
// serialize without interpreting them.
type AttributeDefinition struct {
	Name string
	Kind AttributeKind
	Type AttributeType

	// Min and Max bound numeric types; both zero when unbounded.
	Min float64
	Max float64

	// EnumValues lists the allowed values for AttributeTypeEnum.
	EnumValues []string

	// Default is the default value as written in the source, or empty.
	Default string
}
