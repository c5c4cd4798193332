// Package candb is the format-independent entry point for CAN signal
// databases. It dispatches to the dialect parsers in pkg/dbc, pkg/kcd
// and pkg/sym and pairs the result with the pkg/codec signal codec.
//
// Load parses text in an explicit dialect; DialectForFile picks the
// dialect from a file extension:
//
//	dialect, err := candb.DialectForFile(path)
//	if err != nil {
//		return err
//	}
//	db, err := candb.Load(text, dialect)
//
// Add merges another file into an existing database, later definitions
// winning name and frame ID collisions. EncodeMessage and
// DecodeMessage accept a message name or an integer frame ID and run
// the codec on the matching message. Marshal renders any database as
// DBC text regardless of the dialect it was loaded from.
package candb
