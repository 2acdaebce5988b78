package openassets

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestMarkerPayloadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    MarkerPayload
	}{
		{
			name: "empty",
			m:    MarkerPayload{Quantities: nil, Metadata: nil},
		},
		{
			name: "single quantity no metadata",
			m:    MarkerPayload{Quantities: []uint64{1}, Metadata: nil},
		},
		{
			name: "two quantities with metadata",
			m:    MarkerPayload{Quantities: []uint64{1, 300}, Metadata: []byte("abcdef")},
		},
		{
			name: "large quantity",
			m:    MarkerPayload{Quantities: []uint64{624485, 0, MaxMarkerQuantity}, Metadata: []byte("x")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serialized := tt.m.Bytes()

			parsed, ok := ParseMarkerPayload(serialized)
			if !ok {
				t.Fatalf("Failed to parse serialized marker")
			}

			if len(parsed.Quantities) != len(tt.m.Quantities) {
				t.Fatalf("Wrong quantity count : got %d, want %d", len(parsed.Quantities),
					len(tt.m.Quantities))
			}
			for i, qty := range tt.m.Quantities {
				if parsed.Quantities[i] != qty {
					t.Errorf("Wrong quantity %d : got %d, want %d", i, parsed.Quantities[i], qty)
				}
			}

			if !bytes.Equal(parsed.Metadata, tt.m.Metadata) {
				t.Errorf("Wrong metadata : got %x, want %x", parsed.Metadata, tt.m.Metadata)
			}
		})
	}
}

func TestMarkerPayloadLiteralVector(t *testing.T) {
	// OA 01 00 02 01 AC 02 06 "abcdef" -> quantities [1, 300], metadata "abcdef"
	raw, err := hex.DecodeString("4f41010002" + "01" + "ac02" + "06" + hex.EncodeToString([]byte("abcdef")))
	if err != nil {
		t.Fatal(err)
	}

	parsed, ok := ParseMarkerPayload(raw)
	if !ok {
		t.Fatalf("Failed to parse valid marker payload")
	}

	if len(parsed.Quantities) != 2 || parsed.Quantities[0] != 1 || parsed.Quantities[1] != 300 {
		t.Errorf("Wrong quantities : got %v, want [1 300]", parsed.Quantities)
	}

	if string(parsed.Metadata) != "abcdef" {
		t.Errorf("Wrong metadata : got %q, want %q", parsed.Metadata, "abcdef")
	}

	// Round trip to the same bytes.
	if !bytes.Equal(parsed.Bytes(), raw) {
		t.Errorf("Wrong re-serialization : got %x, want %x", parsed.Bytes(), raw)
	}
}

func TestMarkerPayloadWrongTag(t *testing.T) {
	tests := []string{
		"4f42010002" + "01" + "ac02" + "00", // "OB" instead of "OA"
		"4f41020002" + "01" + "ac02" + "00", // major version 2
		"4f41",                              // truncated tag
	}

	for _, hexPayload := range tests {
		raw, err := hex.DecodeString(hexPayload)
		if err != nil {
			t.Fatal(err)
		}

		if _, ok := ParseMarkerPayload(raw); ok {
			t.Errorf("Expected invalid marker for %s", hexPayload)
		}
	}
}

func TestMarkerPayloadTrailingByte(t *testing.T) {
	raw, err := hex.DecodeString("4f41010001" + "01" + "00" + "ff")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := ParseMarkerPayload(raw); ok {
		t.Errorf("Expected invalid marker with trailing byte")
	}
}

func TestMarkerPayloadOversizedQuantity(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(markerTag[:])
	buf.WriteByte(1) // count = 1

	// math.MaxInt64 + 1, encoded as LEB128, exceeds MaxMarkerQuantity.
	oversized := MaxMarkerQuantity + 1
	var value = oversized
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if value == 0 {
			break
		}
	}
	buf.WriteByte(0) // metadata length = 0

	if _, ok := ParseMarkerPayload(buf.Bytes()); ok {
		t.Errorf("Expected invalid marker for oversized quantity")
	}
}

func TestMarkerPayloadHugeCountTruncated(t *testing.T) {
	// count is a 0xff-prefixed 8 byte var-int claiming 2^64-1 quantities, with no quantity bytes
	// following it. This must be reported as an invalid marker, not panic trying to preallocate.
	var buf bytes.Buffer
	buf.Write(markerTag[:])
	buf.WriteByte(0xff)
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	if _, ok := ParseMarkerPayload(buf.Bytes()); ok {
		t.Errorf("Expected invalid marker for huge truncated count")
	}
}
