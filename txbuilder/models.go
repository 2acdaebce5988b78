package txbuilder

import "github.com/tokenized/openassets/openassets"

// IssuanceSpec describes an Issue operation: mint Amount units of a new asset to ToScript, with
// the issuer's change going to ChangeScript.
type IssuanceSpec struct {
	ToScript     []byte
	ChangeScript []byte
	Amount       uint64
}

// AssetTransferSpec describes one asset leg of a Transfer: move Amount units of AssetID to
// ToScript, with any over-selected quantity going to ChangeScript.
type AssetTransferSpec struct {
	AssetID      openassets.AssetID
	ToScript     []byte
	ChangeScript []byte
	Amount       uint64
}

// BitcoinTransferSpec describes the bitcoin leg of a Transfer: move Amount satoshis to ToScript,
// with any excess going to ChangeScript. A zero Amount means no bitcoin payment output is added.
type BitcoinTransferSpec struct {
	ToScript     []byte
	ChangeScript []byte
	Amount       uint64
}

// markerOutput pairs an output with the asset quantity it should record in the marker payload.
type markerOutput struct {
	script   []byte
	value    uint64
	quantity uint64
}
