package legacy

import "time"

// ResponseStyle is the closed set of legacy response protocol shapes
// (spec.md §9 "Variant codings").
type ResponseStyle uint8

const (
	// AckNakThenData is the Atari SIO-style response: ACK/NAK on the
	// command, then COMPLETE/ERROR + payload + checksum.
	AckNakThenData ResponseStyle = iota
	// ImmediateData sends the payload with no status byte at all (the IEC
	// family, per spec.md §9).
	ImmediateData
)

// ChecksumFunc computes a bus-specific checksum over data.
type ChecksumFunc func(data []byte) uint8

// DeviceIDMapper maps a bus-level wire device id onto the internal
// DeviceID space. Most buses are the identity function; it exists so a
// transport can remap without every caller knowing about it.
type DeviceIDMapper func(wireID uint8) uint8

// BusTraits captures the bus-specific knobs a ByteTransport needs: the
// checksum algorithm, inter-byte delays, response style and device-id
// mapping. Grounded on
// include/fujinet/platform/legacy/bus_traits.h.
type BusTraits struct {
	Checksum       ChecksumFunc
	AckDelay       time.Duration
	CompleteDelay  time.Duration
	ErrorDelay     time.Duration
	ResponseStyle  ResponseStyle
	MapDeviceID    DeviceIDMapper
	CommandNeedsData func(comnd uint8) bool
}

// ValidateChecksum reports whether received matches the trait's checksum
// of data.
func (t BusTraits) ValidateChecksum(data []byte, received uint8) bool {
	return t.Checksum(data) == received
}

// identityMapper is the default DeviceIDMapper: wire id == internal id.
func identityMapper(wireID uint8) uint8 { return wireID }

// defaultCommandNeedsData implements spec.md §4.3's default policy: 'W',
// 'P', 'S', '!' carry a host->peripheral data phase.
func defaultCommandNeedsData(comnd uint8) bool {
	switch comnd {
	case 'W', 'P', 'S', '!':
		return true
	default:
		return false
	}
}

// foldChecksum is the same folded 16->8 sum used by the FujiBus packet
// codec (spec.md §4.1), reused here for the Atari SIO family per spec.md
// §4.3: "the Atari family uses the same fold as §4.1".
func foldChecksum(data []byte) uint8 {
	var c uint16
	for _, b := range data {
		c += uint16(b)
		c = (c >> 8) + (c & 0xFF)
	}
	return uint8(c)
}

// xorChecksum is the simple XOR-fold used by "other families" (spec.md
// §4.3).
func xorChecksum(data []byte) uint8 {
	var c uint8
	for _, b := range data {
		c ^= b
	}
	return c
}

// AtariSIOTraits returns BusTraits for the Atari SIO family: folded-sum
// checksum, ACK/NAK-then-data response style, ~250us COMPLETE/ERROR
// delays (spec.md §4.3 "commonly ~250us").
func AtariSIOTraits() BusTraits {
	return BusTraits{
		Checksum:         foldChecksum,
		AckDelay:         0,
		CompleteDelay:    250 * time.Microsecond,
		ErrorDelay:       250 * time.Microsecond,
		ResponseStyle:    AckNakThenData,
		MapDeviceID:      identityMapper,
		CommandNeedsData: defaultCommandNeedsData,
	}
}

// XORFamilyTraits returns BusTraits for a generic XOR-checksum legacy bus
// (spec.md §4.3 "other families use XOR").
func XORFamilyTraits() BusTraits {
	return BusTraits{
		Checksum:         xorChecksum,
		ResponseStyle:    AckNakThenData,
		MapDeviceID:      identityMapper,
		CommandNeedsData: defaultCommandNeedsData,
	}
}
