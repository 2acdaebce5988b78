package openassets

import (
	"bytes"
	"io"
	"math"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/wire"
)

// markerTag is the four byte prefix of every marker payload: ASCII "OA", protocol major version 1,
// minor version 0.
var markerTag = [4]byte{'O', 'A', 0x01, 0x00}

// MaxMarkerQuantity is the largest asset quantity a marker payload may carry. Larger LEB128 values
// decode without error but are rejected as an invalid marker.
const MaxMarkerQuantity = uint64(math.MaxInt64)

// MarkerPayload is the data carried by a marker output: one asset quantity per colored output
// position, plus opaque metadata.
type MarkerPayload struct {
	Quantities []uint64
	Metadata   []byte
}

// Serialize writes the bit-exact Open Assets marker payload encoding: tag, var-int quantity count,
// each quantity LEB128, var-int metadata length, metadata bytes.
func (m MarkerPayload) Serialize(w io.Writer) error {
	if _, err := w.Write(markerTag[:]); err != nil {
		return err
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(m.Quantities))); err != nil {
		return err
	}

	for _, qty := range m.Quantities {
		if err := bitcoin.WriteBase128VarInt(w, qty); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(m.Metadata))); err != nil {
		return err
	}

	if len(m.Metadata) > 0 {
		if _, err := w.Write(m.Metadata); err != nil {
			return err
		}
	}

	return nil
}

// Bytes returns the serialized marker payload.
func (m MarkerPayload) Bytes() []byte {
	var buf bytes.Buffer
	m.Serialize(&buf) // bytes.Buffer never returns a write error
	return buf.Bytes()
}

// ParseMarkerPayload parses a marker payload. It returns ok = false, never an error, for any
// malformed input: wrong tag, a quantity entry above MaxMarkerQuantity, a truncated count or
// metadata length or body, or trailing bytes left over after the metadata. A malformed marker
// payload is not an engine error -- it means the transaction carrying it is uncolored.
func ParseMarkerPayload(payload []byte) (MarkerPayload, bool) {
	r := bytes.NewReader(payload)

	var tag [4]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return MarkerPayload{}, false
	}
	if tag != markerTag {
		return MarkerPayload{}, false
	}

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return MarkerPayload{}, false
	}

	// count comes straight from the payload and is not bounded against the remaining data, so it
	// must not be used as a preallocation capacity -- append incrementally and let a truncated
	// stream fail ReadBase128VarInt instead of panicking make().
	var quantities []uint64
	for i := uint64(0); i < count; i++ {
		qty, err := bitcoin.ReadBase128VarInt(r)
		if err != nil {
			return MarkerPayload{}, false
		}
		if qty > MaxMarkerQuantity {
			return MarkerPayload{}, false
		}
		quantities = append(quantities, qty)
	}

	metadataSize, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return MarkerPayload{}, false
	}

	metadata := make([]byte, metadataSize)
	if metadataSize > 0 {
		if _, err := io.ReadFull(r, metadata); err != nil {
			return MarkerPayload{}, false
		}
	}

	if r.Len() != 0 {
		return MarkerPayload{}, false // trailing bytes
	}

	return MarkerPayload{Quantities: quantities, Metadata: metadata}, true
}
