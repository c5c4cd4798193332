package diag

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// canlogEncMode is the CBOR encoder mode for diagnostic events.
// Configured for nanosecond-precision timestamps and deterministic encoding.
var canlogEncMode cbor.EncMode

// canlogDecMode is the CBOR decoder mode for diagnostic events.
var canlogDecMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for diagnostic events
	// Uses RFC3339Nano for nanosecond-precision timestamps
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano, // Nanosecond precision
	}
	canlogEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create canlog CBOR encoder mode: %v", err))
	}

	// Configure decoder for diagnostic events
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	canlogDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create canlog CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes using integer keys for compactness.
func EncodeEvent(event Event) ([]byte, error) {
	return canlogEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := canlogDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder creates a CBOR encoder for diagnostic events that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return canlogEncMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for diagnostic events that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return canlogDecMode.NewDecoder(r)
}
