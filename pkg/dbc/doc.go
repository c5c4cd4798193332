// Package dbc reads and writes CAN network descriptions in the DBC
// file format.
//
// Parse turns DBC text into a descriptor.Database:
//
//	db, err := dbc.Parse(text)
//	if err != nil {
//		return err
//	}
//	m, err := db.MessageByName("EngineData")
//
// The grammar covers the sections that carry schema information:
// VERSION, BU_ node lists, BO_ message definitions, SG_ signal
// definitions including multiplex markers, VAL_ value tables, CM_
// comments and the BA_DEF_ / BA_DEF_DEF_ / BA_ attribute sections.
// Everything else, VAL_TABLE_ or SIG_GROUP_ for example, is tolerated
// and skipped; pass WithDiagnostics to observe the skipped constructs
// as events.
//
// Malformed text fails with a *descriptor.SyntaxError naming the line
// and column. Text that parses but violates a schema invariant, a
// duplicate frame ID say, fails with a *descriptor.SemanticError.
//
// Dump is the inverse: it renders a database back to DBC text. The
// output is not a textual copy of the input, but parsing it again
// yields an equal database for every construct the parser preserves.
package dbc
