// Package kcd reads CAN network descriptions in the XML based KCD
// file format.
//
// Parse turns a KCD document into a descriptor.Database:
//
//	db, err := kcd.Parse(text)
//	if err != nil {
//		return err
//	}
//	m, err := db.MessageByName("EngineData")
//
// The mapping follows the KCD schema: Node declarations, Bus elements
// with their Message children, Signal elements with Value scaling and
// LabelSet choices, and Multiplex groups. Big-endian signal offsets
// count bits MSB-first and are converted to the sawtooth start
// positions the rest of the module uses, so a KCD document and its DBC
// equivalent produce the same database. Messages sized length="auto"
// get the smallest byte count that covers their signals.
//
// Malformed XML fails with a *descriptor.SyntaxError naming the line.
// Well-formed documents that violate a schema invariant fail with a
// *descriptor.SemanticError. Label types other than plain values have
// no model counterpart and are skipped; pass WithDiagnostics to
// observe them as events.
package kcd
