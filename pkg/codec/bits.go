package codec

import "github.com/candb-tools/candb-go/pkg/descriptor"

// Bit-level payload access. Little-endian signals use LSB-first linear
// numbering: bit i lives in byte i/8 at in-byte position i%8 and the
// field grows upward. Big-endian signals start at their most
// significant bit in DBC's per-byte numbering (bit 7 is the MSB of
// every byte) and grow toward less significant bits, continuing at the
// MSB of the following byte.

// extractRaw reads the signal's raw field from the payload.
func extractRaw(payload []byte, s *descriptor.Signal) uint64 {
	if s.ByteOrder == descriptor.BigEndian {
		return extractBig(payload, s.Start, s.Length)
	}
	return extractLittle(payload, s.Start, s.Length)
}

func extractLittle(payload []byte, start uint16, length uint8) uint64 {
	var raw uint64
	for i := uint8(0); i < length; i++ {
		pos := start + uint16(i)
		if payload[pos/8]&(1<<(pos%8)) != 0 {
			raw |= 1 << i
		}
	}
	return raw
}

func extractBig(payload []byte, start uint16, length uint8) uint64 {
	pos := start
	var raw uint64
	for i := int(length) - 1; i >= 0; i-- {
		if payload[pos/8]&(1<<(pos%8)) != 0 {
			raw |= 1 << uint(i)
		}
		if pos%8 == 0 {
			pos += 15
		} else {
			pos--
		}
	}
	return raw
}

// insertRaw writes the signal's raw field into the payload and marks
// the written bits in mask.
func insertRaw(payload, mask []byte, s *descriptor.Signal, raw uint64) {
	if s.ByteOrder == descriptor.BigEndian {
		insertBig(payload, mask, s.Start, s.Length, raw)
		return
	}
	insertLittle(payload, mask, s.Start, s.Length, raw)
}

func insertLittle(payload, mask []byte, start uint16, length uint8, raw uint64) {
	for i := uint8(0); i < length; i++ {
		pos := start + uint16(i)
		bit := byte(1 << (pos % 8))
		if raw&(1<<i) != 0 {
			payload[pos/8] |= bit
		} else {
			payload[pos/8] &^= bit
		}
		mask[pos/8] |= bit
	}
}

func insertBig(payload, mask []byte, start uint16, length uint8, raw uint64) {
	pos := start
	for i := int(length) - 1; i >= 0; i-- {
		bit := byte(1 << (pos % 8))
		if raw&(1<<uint(i)) != 0 {
			payload[pos/8] |= bit
		} else {
			payload[pos/8] &^= bit
		}
		mask[pos/8] |= bit
		if pos%8 == 0 {
			pos += 15
		} else {
			pos--
		}
	}
}

// signExtend interprets raw as a two's-complement value of the given
// bit length.
func signExtend(raw uint64, length uint8) int64 {
	if length == 64 || raw&(1<<(length-1)) == 0 {
		return int64(raw)
	}
	return int64(raw | ^uint64(0)<<length)
}

// fitsPayload reports whether the signal's span lies within a payload
// of n bytes. Mirrors descriptor's validation but takes the actual
// payload size, so unvalidated messages surface as errors instead of
// out-of-range indexing.
func fitsPayload(s *descriptor.Signal, n int) bool {
	if s.Length == 0 {
		return false
	}
	bits := 8 * n
	if s.ByteOrder == descriptor.BigEndian {
		return int(s.MSBAlignedStart())+int(s.Length) <= bits
	}
	return int(s.Start)+int(s.Length) <= bits
}
