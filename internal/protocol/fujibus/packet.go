package fujibus

import (
	"encoding/binary"
	"errors"
)

// headerSize is the fixed 6-byte FujiBus header: device, command,
// length(u16 LE), checksum, descr.
const headerSize = 6

// Descriptor bit masks and field tables (spec.md §3 "Descriptor nibble").
const (
	descrCountMask  = 0x07
	descrExceedsU8  = 0x04
	descrExceedsU16 = 0x02
	descrAddtlMask  = 0x80
	maxBytesPerDescr = 4
)

var fieldSizeTable = [8]uint8{0, 1, 1, 1, 1, 2, 2, 4}
var fieldCountTable = [8]uint8{0, 1, 2, 3, 4, 1, 2, 1}

// Errors returned by Parse. All of them are non-fatal to the caller: the
// transport using this codec discards the frame and continues (spec.md
// §4.1 "Error conditions").
var (
	ErrNoFrame           = errors.New("fujibus: no complete frame")
	ErrTruncated         = errors.New("fujibus: truncated frame")
	ErrBadLength         = errors.New("fujibus: length field mismatch")
	ErrBadChecksum       = errors.New("fujibus: checksum mismatch")
	ErrMalformedDescriptor = errors.New("fujibus: malformed descriptor")
)

// Param is one parameter value carried in a packet's descriptor chain.
// Size is 1, 2, or 4 bytes.
type Param struct {
	Value uint32
	Size  uint8
}

// Packet is a decoded/to-be-encoded FujiBus frame.
type Packet struct {
	Device  uint8
	Command uint8
	Params  []Param
	Payload []byte
}

// ParamU8/ParamU16/ParamU32 append a parameter of the given width.
func (p *Packet) ParamU8(v uint8)   { p.Params = append(p.Params, Param{uint32(v), 1}) }
func (p *Packet) ParamU16(v uint16) { p.Params = append(p.Params, Param{uint32(v), 2}) }
func (p *Packet) ParamU32(v uint32) { p.Params = append(p.Params, Param{v, 4}) }

// ParamAt returns the value of the parameter at index, or 0 if out of range.
func (p *Packet) ParamAt(index int) uint32 {
	if index < 0 || index >= len(p.Params) {
		return 0
	}
	return p.Params[index].Value
}

// Serialize encodes p into a SLIP-framed FujiBus wire packet, per spec.md
// §4.1 "Serialize".
func (p *Packet) Serialize() []byte {
	buf := make([]byte, headerSize)

	var descrBytes []byte
	idx := 0
	for idx < len(p.Params) {
		var fieldSize uint8
		var bytesWritten uint8
		var count int

		for idx+count < len(p.Params) {
			param := p.Params[idx+count]
			if (fieldSize != 0 && fieldSize != param.Size) || bytesWritten == maxBytesPerDescr {
				break
			}
			fieldSize = param.Size
			buf = appendLE(buf, param.Value, int(param.Size))
			bytesWritten += param.Size
			count++
		}

		descr := uint8(count)
		if fieldSize > 1 {
			descr |= descrExceedsU8
			if fieldSize > 2 {
				descr |= descrExceedsU16
			}
		}
		descrBytes = append(descrBytes, descr|descrAddtlMask)
		idx += count
	}

	var firstDescr uint8
	if len(descrBytes) > 0 {
		descrBytes[len(descrBytes)-1] &^= descrAddtlMask
		firstDescr = descrBytes[0]
		if len(descrBytes) > 1 {
			tail := append([]byte{}, buf[headerSize:]...)
			buf = append(buf[:headerSize], descrBytes[1:]...)
			buf = append(buf, tail...)
		}
	}

	buf = append(buf, p.Payload...)

	buf[0] = p.Device
	buf[1] = p.Command
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(buf)))
	buf[4] = 0 // checksum placeholder while computing
	buf[5] = firstDescr

	buf[4] = checksum(buf)

	return EncodeSLIP(buf)
}

// Parse decodes a single SLIP-framed FujiBus wire packet out of input,
// which may contain leading noise before the first END and/or trailing
// bytes after the frame's closing END. Per spec.md §4.1 "Parse".
func Parse(input []byte) (*Packet, error) {
	start := -1
	for i, b := range input {
		if b == SlipEnd {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, ErrNoFrame
	}

	end := -1
	for i := start + 1; i < len(input); i++ {
		if input[i] == SlipEnd {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, ErrNoFrame
	}

	framed := input[start : end+1]
	if len(framed) < headerSize+2 {
		return nil, ErrTruncated
	}

	decoded := DecodeSLIP(framed)
	if len(decoded) < headerSize {
		return nil, ErrTruncated
	}

	length := binary.LittleEndian.Uint16(decoded[2:4])
	if int(length) != len(decoded) {
		return nil, ErrBadLength
	}

	recvChecksum := decoded[4]
	tmp := append([]byte(nil), decoded...)
	tmp[4] = 0
	if checksum(tmp) != recvChecksum {
		return nil, ErrBadChecksum
	}

	pkt := &Packet{
		Device:  decoded[0],
		Command: decoded[1],
	}

	offset := headerSize
	descrBytes := []byte{decoded[5]}
	dsc := decoded[5]
	for dsc&descrAddtlMask != 0 {
		if offset >= len(decoded) {
			return nil, ErrMalformedDescriptor
		}
		dsc = decoded[offset]
		descrBytes = append(descrBytes, dsc)
		offset++
	}

	for _, dbyte := range descrBytes {
		fieldDesc := dbyte & descrCountMask
		fieldCount := fieldCountTable[fieldDesc]
		if fieldCount == 0 {
			continue
		}
		fieldSize := fieldSizeTable[fieldDesc]

		for i := uint8(0); i < fieldCount; i++ {
			if offset+int(fieldSize) > len(decoded) {
				return nil, ErrMalformedDescriptor
			}
			val := readLE(decoded, offset, int(fieldSize))
			pkt.Params = append(pkt.Params, Param{Value: val, Size: fieldSize})
			offset += int(fieldSize)
		}
	}

	if offset < len(decoded) {
		pkt.Payload = append([]byte(nil), decoded[offset:]...)
	}

	return pkt, nil
}

func appendLE(buf []byte, value uint32, size int) []byte {
	for i := 0; i < size; i++ {
		buf = append(buf, byte(value>>(8*uint(i))))
	}
	return buf
}

func readLE(buf []byte, offset, size int) uint32 {
	var v uint32
	for i := 0; i < size; i++ {
		v |= uint32(buf[offset+i]) << (8 * uint(i))
	}
	return v
}
