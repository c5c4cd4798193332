// Package descriptor implements the CAN network schema model.
//
// A Database holds the parsed description of a CAN network: buses, the
// nodes (ECUs) attached to them, the messages those nodes exchange, and
// the signals packed into each message's payload. The model is built once
// by a format parser (dbc, kcd or sym) and is read-only afterwards from
// the codec's point of view; only the merge operations on Database mutate
// it, and they maintain the name and frame-id lookup tables.
//
// # Hierarchy
//
//	Database
//	├── Bus                (physical segment, optional baud rate)
//	├── Node               (ECU; message sender/receiver)
//	└── Message            (frame id, byte length, sender)
//	    └── Signal         (bit field with physical interpretation)
//	        └── Choices    (raw value <-> label table, optional)
//
// # Concurrency
//
// A Database is safe for concurrent read-only use. Merge operations
// (AddMessage, Merge) take the write side of an internal lock; callers
// that interleave merges with lookups need no extra synchronization, but
// the usual pattern is to finish loading before decoding starts.
package descriptor
