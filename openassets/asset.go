package openassets

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"

	"github.com/tokenized/openassets/bitcoin"
)

// AssetIDSize is the number of bytes in an asset identifier.
const AssetIDSize = 20

// AssetID is the opaque identifier of a colored asset, derived as
// RIPEMD160(SHA256(script)) of the first input's locking script of the issuing transaction. This
// is exactly the pay-to-script-hash derivation applied to that script.
type AssetID [AssetIDSize]byte

// NewAssetID derives the asset identifier that an issuance naming issuingScript as the first
// input's locking script would produce.
func NewAssetID(issuingScript []byte) AssetID {
	var id AssetID
	copy(id[:], bitcoin.Hash160(issuingScript))
	return id
}

// AssetIDFromHex parses a hex encoded asset identifier, big endian, with no byte reversal.
func AssetIDFromHex(s string) (AssetID, error) {
	var id AssetID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != AssetIDSize {
		return id, bitcoin.ErrWrongSize
	}
	copy(id[:], b)
	return id, nil
}

func (id AssetID) String() string {
	return hex.EncodeToString(id[:])
}

func (id AssetID) Bytes() []byte {
	return id[:]
}

func (id AssetID) Equal(other AssetID) bool {
	return bytes.Equal(id[:], other[:])
}

func (id AssetID) MarshalJSON() ([]byte, error) {
	return bitcoin.ConvertBytesToJSONHex(id[:])
}

func (id *AssetID) UnmarshalJSON(data []byte) error {
	b, err := bitcoin.ConvertJSONHexToBytes(data)
	if err != nil {
		return err
	}
	if len(b) != AssetIDSize {
		return bitcoin.ErrWrongSize
	}
	copy(id[:], b)
	return nil
}

// Value returns a value that can be handled by a database driver to put the asset ID in storage.
func (id AssetID) Value() (driver.Value, error) {
	return id.Bytes(), nil
}

// Scan converts from a database column.
func (id *AssetID) Scan(data interface{}) error {
	b, ok := data.([]byte)
	if !ok || len(b) != AssetIDSize {
		return bitcoin.ErrWrongSize
	}
	copy(id[:], b)
	return nil
}
