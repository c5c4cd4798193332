// Package conformance runs YAML-defined cross-dialect cases: the same
// CAN network spelled in several dialects must load into equivalent
// databases and drive the codec to identical results.
package conformance

// Case is a single conformance scenario loaded from YAML.
type Case struct {
	// ID is the unique case identifier (e.g. "CONF-MUX-001").
	ID string `yaml:"id"`

	// Name is a human-readable name for the case.
	Name string `yaml:"name"`

	// Description explains what the case pins down.
	Description string `yaml:"description"`

	// Sources maps a dialect name ("dbc", "kcd", "sym") to database
	// text. Every source must describe the same network.
	Sources map[string]string `yaml:"sources"`

	// Decode vectors replay a payload against every source database.
	Decode []DecodeVector `yaml:"decode,omitempty"`

	// Encode vectors build a payload from values in every source
	// database.
	Encode []EncodeVector `yaml:"encode,omitempty"`
}

// DecodeVector pins the decoded values of one payload.
type DecodeVector struct {
	// Message is the target message name.
	Message string `yaml:"message"`

	// Payload is the frame payload as hex bytes ("10 27 00 ...").
	Payload string `yaml:"payload"`

	// Values are the expected decoded values keyed by signal name.
	Values map[string]any `yaml:"values"`
}

// EncodeVector pins the payload built from one value map.
type EncodeVector struct {
	// Message is the target message name.
	Message string `yaml:"message"`

	// Values are the signal values to encode.
	Values map[string]any `yaml:"values"`

	// Payload is the expected payload as hex bytes.
	Payload string `yaml:"payload"`
}

// LoadError provides details about a case loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return e.File + ": " + e.Message
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
