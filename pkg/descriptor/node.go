package descriptor

// Node is a network participant that sends or receives messages.
type Node struct {
	// Name is unique within a Database.
	Name string

	// Comment is the node comment, or empty.
	Comment string

	// Attributes holds uninterpreted attribute values keyed by
	// attribute definition name.
	Attributes map[string]string
}
