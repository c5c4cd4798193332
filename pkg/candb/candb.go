package candb

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/candb-tools/candb-go/pkg/codec"
	"github.com/candb-tools/candb-go/pkg/dbc"
	"github.com/candb-tools/candb-go/pkg/descriptor"
	"github.com/candb-tools/candb-go/pkg/diag"
	"github.com/candb-tools/candb-go/pkg/kcd"
	"github.com/candb-tools/candb-go/pkg/sym"
)

// Dialect selects one of the supported database file formats.
type Dialect uint8

const (
	// DialectDBC is the Vector DBC text format.
	DialectDBC Dialect = 0
	// DialectKCD is the Kayak XML format.
	DialectKCD Dialect = 1
	// DialectSYM is the PCAN symbol file format.
	DialectSYM Dialect = 2
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectDBC:
		return "dbc"
	case DialectKCD:
		return "kcd"
	case DialectSYM:
		return "sym"
	default:
		return "UNKNOWN"
	}
}

// ParseDialect maps a dialect name, case-insensitively, to its value.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "dbc":
		return DialectDBC, nil
	case "kcd":
		return DialectKCD, nil
	case "sym":
		return DialectSYM, nil
	}
	return 0, fmt.Errorf("unknown dialect %q", s)
}

// DialectForFile infers the dialect from the path's file extension.
func DialectForFile(path string) (Dialect, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dbc":
		return DialectDBC, nil
	case ".kcd":
		return DialectKCD, nil
	case ".sym":
		return DialectSYM, nil
	}
	return 0, fmt.Errorf("cannot infer dialect from %q", path)
}

// Option configures a load.
type Option func(*config)

type config struct {
	logger diag.Logger
}

// WithDiagnostics forwards parser skip events to the given logger. The
// returned database inherits the logger for merge warnings.
func WithDiagnostics(logger diag.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Load parses text in the given dialect into a database.
func Load(text string, dialect Dialect, opts ...Option) (*descriptor.Database, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	switch dialect {
	case DialectDBC:
		return dbc.Parse(text, dbc.WithDiagnostics(cfg.logger))
	case DialectKCD:
		return kcd.Parse(text, kcd.WithDiagnostics(cfg.logger))
	case DialectSYM:
		return sym.Parse(text, sym.WithDiagnostics(cfg.logger))
	}
	return nil, fmt.Errorf("unknown dialect %d", dialect)
}

// Add parses text in the given dialect and merges the result into db.
// When a message shares a name or frame ID with one already present
// the incoming message takes over the lookup entry, and db's
// diagnostics logger observes the overwrite.
func Add(db *descriptor.Database, text string, dialect Dialect) error {
	other, err := Load(text, dialect)
	if err != nil {
		return err
	}
	db.Merge(other)
	return nil
}

// Marshal renders the database as DBC text, the interchange format
// every dialect round-trips through.
func Marshal(db *descriptor.Database) string {
	return dbc.Dump(db)
}

// DecodeMessage decodes payload with the message named by
// frameIDOrName, which takes a string name or an integer frame ID.
// The lookup fails with a *descriptor.NotFoundError when the database
// has no such message.
func DecodeMessage(db *descriptor.Database, frameIDOrName any, payload []byte, opts codec.DecodeOptions) (map[string]any, error) {
	m, err := messageByKey(db, frameIDOrName)
	if err != nil {
		return nil, err
	}
	return codec.Decode(m, payload, opts)
}

// EncodeMessage encodes values with the message named by
// frameIDOrName. See DecodeMessage for the accepted key forms.
func EncodeMessage(db *descriptor.Database, frameIDOrName any, values map[string]any, opts codec.EncodeOptions) ([]byte, error) {
	m, err := messageByKey(db, frameIDOrName)
	if err != nil {
		return nil, err
	}
	return codec.Encode(m, values, opts)
}

func messageByKey(db *descriptor.Database, key any) (*descriptor.Message, error) {
	switch k := key.(type) {
	case string:
		return db.MessageByName(k)
	case uint32:
		return db.MessageByFrameID(k)
	case uint64:
		return messageByWideID(db, k)
	case uint:
		return messageByWideID(db, uint64(k))
	case int:
		return messageBySignedID(db, int64(k))
	case int32:
		return messageBySignedID(db, int64(k))
	case int64:
		return messageBySignedID(db, k)
	}
	return nil, fmt.Errorf("frame id or name must be a string or an integer, got %T", key)
}

// Keys outside the 29-bit ID space cannot match any message; they fail
// the same way an absent ID does.
func messageBySignedID(db *descriptor.Database, id int64) (*descriptor.Message, error) {
	if id < 0 {
		return nil, &descriptor.NotFoundError{Entity: "message", Key: strconv.FormatInt(id, 10)}
	}
	return messageByWideID(db, uint64(id))
}

func messageByWideID(db *descriptor.Database, id uint64) (*descriptor.Message, error) {
	if id > math.MaxUint32 {
		return nil, &descriptor.NotFoundError{Entity: "message", Key: strconv.FormatUint(id, 10)}
	}
	return db.MessageByFrameID(uint32(id))
}
