package descriptor

import "fmt"

// NotFoundError reports a lookup for an entity the database does not
// contain.
type NotFoundError struct {
	// Entity names the kind looked up: "message", "node" or "bus".
	Entity string

	// Key is the name or the frame ID used for the lookup.
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// SyntaxError reports malformed input text. Line and Column are
// 1-based; Column is 0 when the position within the line is unknown.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("line %d column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// SemanticError reports syntactically valid input that violates a
// schema invariant, such as a duplicate frame ID or a signal extending
// past its message's payload.
type SemanticError struct {
	Message string
}

func (e *SemanticError) Error() string {
	return e.Message
}
