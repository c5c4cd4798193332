// Package codec converts CAN frame payloads to and from named signal
// values.
//
// Decode extracts every signal of a message from a raw payload,
// resolving multiplexing, sign, scaling and choice labels. Encode is
// the exact inverse: it packs a value map into a payload of the
// message's declared length. Both are pure functions over descriptor
// types and hold no state between calls, so they are safe for
// concurrent use.
//
// Messages are expected to satisfy descriptor's Message.Validate;
// parsers enforce this. Signal spans outside the payload surface as
// *descriptor.SemanticError rather than a panic.
package codec
