package openassets

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestAssetIDDerivation(t *testing.T) {
	script := []byte{0x76, 0xa9, 0x14, 0x01, 0x02, 0x03}

	id1 := NewAssetID(script)
	id2 := NewAssetID(script)

	if !id1.Equal(id2) {
		t.Errorf("Same script should derive equal asset ids")
	}

	other := NewAssetID(append([]byte{}, append(script, 0xff)...))
	if id1.Equal(other) {
		t.Errorf("Different scripts should derive different asset ids")
	}

	if len(id1.Bytes()) != AssetIDSize {
		t.Errorf("Wrong asset id size : got %d, want %d", len(id1.Bytes()), AssetIDSize)
	}
}

func TestAssetIDDerivationFixture(t *testing.T) {
	script, err := hex.DecodeString("76A914010966776006953D5567439E5E39F86A0D273BEE88AC")
	if err != nil {
		t.Fatalf("Failed to decode fixture script : %s", err)
	}

	id := NewAssetID(script)
	want := "36e0ea8e93eaa0285d641305f4c81e563aa570a2"

	if id.String() != want {
		t.Errorf("Wrong asset id : got %s, want %s", id.String(), want)
	}
}

func TestAssetIDHexRoundTrip(t *testing.T) {
	script := []byte("issuing script")
	id := NewAssetID(script)

	parsed, err := AssetIDFromHex(id.String())
	if err != nil {
		t.Fatalf("Failed to parse asset id hex : %s", err)
	}

	if !parsed.Equal(id) {
		t.Errorf("Round tripped asset id doesn't match")
	}
}

func TestAssetIDFromHexWrongSize(t *testing.T) {
	if _, err := AssetIDFromHex("aabbcc"); err == nil {
		t.Errorf("Expected error for wrong sized hex")
	}
}

func TestAssetIDJSON(t *testing.T) {
	id := NewAssetID([]byte("another script"))

	data, err := id.MarshalJSON()
	if err != nil {
		t.Fatalf("Failed to marshal : %s", err)
	}

	var parsed AssetID
	if err := parsed.UnmarshalJSON(data); err != nil {
		t.Fatalf("Failed to unmarshal : %s", err)
	}

	if !parsed.Equal(id) {
		t.Errorf("Unmarshaled asset id doesn't match")
	}
}

func TestAssetIDBytes(t *testing.T) {
	id := NewAssetID([]byte("script"))
	if !bytes.Equal(id.Bytes(), id[:]) {
		t.Errorf("Bytes() should return the underlying array slice")
	}
}
