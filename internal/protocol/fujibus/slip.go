// Package fujibus implements the FujiBus on-the-wire packet format: SLIP
// byte-stuffed framing wrapped around a length-prefixed, descriptor-encoded
// parameter list.
//
// Grounded byte-for-byte on
// _examples/original_source/src/lib/fuji_bus_packet.cpp and
// _examples/original_source/include/fujinet/io/protocol/fuji_bus_packet.h.
package fujibus

// SLIP framing constants (spec.md §6 "SLIP constants").
const (
	SlipEnd    byte = 0xC0
	SlipEsc    byte = 0xDB
	SlipEscEnd byte = 0xDC
	SlipEscEsc byte = 0xDD
)

// EncodeSLIP wraps input in SLIP framing: a leading END, every END/ESC byte
// escaped, and a trailing END.
func EncodeSLIP(input []byte) []byte {
	out := make([]byte, 0, len(input)*2+2)
	out = append(out, SlipEnd)

	for _, b := range input {
		switch b {
		case SlipEnd:
			out = append(out, SlipEsc, SlipEscEnd)
		case SlipEsc:
			out = append(out, SlipEsc, SlipEscEsc)
		default:
			out = append(out, b)
		}
	}

	out = append(out, SlipEnd)
	return out
}

// DecodeSLIP reverses EncodeSLIP. It scans for the first END, decodes up to
// the next END, and returns the unescaped payload. A malformed escape
// (ESC followed by anything other than ESC_END/ESC_ESC) is silently
// dropped; a truncated escape ends decoding early. Returns nil if no frame
// start (END byte) is present at all.
func DecodeSLIP(input []byte) []byte {
	n := len(input)
	idx := 0

	for idx < n && input[idx] != SlipEnd {
		idx++
	}
	if idx == n {
		return nil
	}

	out := make([]byte, 0, n)

	for idx++; idx < n; idx++ {
		val := input[idx]
		if val == SlipEnd {
			break
		}

		if val == SlipEsc {
			idx++
			if idx >= n {
				break // truncated escape
			}
			switch input[idx] {
			case SlipEscEnd:
				out = append(out, SlipEnd)
			case SlipEscEsc:
				out = append(out, SlipEsc)
			default:
				// malformed escape: silently dropped
			}
			continue
		}

		out = append(out, val)
	}

	return out
}

// checksum computes the folded 16->8 checksum over buf (spec.md §4.1).
func checksum(buf []byte) uint8 {
	var c uint16
	for _, b := range buf {
		c += uint16(b)
		c = (c >> 8) + (c & 0xFF)
	}
	return uint8(c)
}
