package fujibus

import (
	"bytes"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{
			name: "no params no payload",
			pkt:  Packet{Device: 0x31, Command: 'S'},
		},
		{
			name: "single u8 param",
			pkt: Packet{
				Device:  0x31,
				Command: 'O',
				Params:  []Param{{Value: 3, Size: 1}},
			},
		},
		{
			name: "mixed width params and payload",
			pkt: Packet{
				Device:  0xFD,
				Command: 'W',
				Params:  []Param{{Value: 7, Size: 2}, {Value: 0, Size: 2}, {Value: 0x12345678, Size: 4}, {Value: 3, Size: 1}},
				Payload: []byte("hello world"),
			},
		},
		{
			name: "payload containing SLIP-special bytes",
			pkt: Packet{
				Device:  0x71,
				Command: 'R',
				Payload: []byte{SlipEnd, SlipEsc, SlipEscEnd, 0x00, 0xFF},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := tt.pkt.Serialize()

			got, err := Parse(wire)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got.Device != tt.pkt.Device || got.Command != tt.pkt.Command {
				t.Fatalf("device/command mismatch: got %+v want %+v", got, tt.pkt)
			}
			if len(got.Params) != len(tt.pkt.Params) {
				t.Fatalf("param count mismatch: got %d want %d", len(got.Params), len(tt.pkt.Params))
			}
			for i, p := range tt.pkt.Params {
				if got.Params[i].Value != p.Value || got.Params[i].Size != p.Size {
					t.Fatalf("param %d mismatch: got %+v want %+v", i, got.Params[i], p)
				}
			}
			if !bytes.Equal(got.Payload, tt.pkt.Payload) {
				t.Fatalf("payload mismatch: got %q want %q", got.Payload, tt.pkt.Payload)
			}
		})
	}
}

func TestParseRejectsBadChecksum(t *testing.T) {
	pkt := Packet{Device: 0x31, Command: 'S', Payload: []byte("x")}
	wire := pkt.Serialize()

	decoded := DecodeSLIP(wire)
	decoded[4] ^= 0xFF // corrupt the checksum byte
	corrupted := EncodeSLIP(decoded)

	if _, err := Parse(corrupted); err != ErrBadChecksum {
		t.Fatalf("expected ErrBadChecksum, got %v", err)
	}
}

func TestParseNoFrame(t *testing.T) {
	if _, err := Parse([]byte{0x01, 0x02, 0x03}); err != ErrNoFrame {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestParseIgnoresLeadingNoise(t *testing.T) {
	pkt := Packet{Device: 0x31, Command: 'S'}
	wire := append([]byte{0xAA, 0xBB, 0xCC}, pkt.Serialize()...)

	got, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Device != pkt.Device || got.Command != pkt.Command {
		t.Fatalf("got %+v", got)
	}
}
