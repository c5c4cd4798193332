// Package sym reads CAN network descriptions in the PCAN symbol file
// format, version 5.
//
// Parse turns symbol file text into a descriptor.Database:
//
//	db, err := sym.Parse(text)
//	if err != nil {
//		return err
//	}
//	m, err := db.MessageByName("EngineData")
//
// The grammar covers the FormatVersion header, Title, {ENUMS} value
// tables, {SIGNALS} signal definitions and the {SEND}, {RECEIVE} and
// {SENDRECEIVE} message sections. Signals are defined once and
// instantiated per message at a start bit; a -m marker makes a signal
// big-endian, and big-endian start bits count MSB-first like KCD
// offsets. Repeated [Name] blocks accumulate into one message, which
// is how the format spells multiplexing: each block restates Mux= with
// its own selector value and lists that group's signals. Unknown
// sections, Key=Value lines and /modifiers are tolerated and skipped;
// pass WithDiagnostics to observe them as events.
//
// Malformed lines fail with a *descriptor.SyntaxError naming the line.
// Text that parses but violates a schema invariant fails with a
// *descriptor.SemanticError.
package sym
