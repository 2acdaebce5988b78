package txbuilder

import (
	"testing"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/openassets"
	"github.com/tokenized/openassets/wire"
)

func scriptFor(label string) []byte {
	return []byte("script:" + label)
}

func hashFor(b byte) bitcoin.Hash32 {
	var h bitcoin.Hash32
	h[0] = b
	return h
}

func uncoloredOutput(index int, hash bitcoin.Hash32, value uint64) openassets.SpendableOutput {
	return openassets.SpendableOutput{
		Outpoint: wire.OutPoint{Hash: hash, Index: uint32(index)},
		Output: openassets.ColoredOutput{
			Value:      int64(value),
			Script:     scriptFor("funding"),
			OutputType: openassets.Uncolored,
		},
	}
}

func coloredOutput(index int, hash bitcoin.Hash32, value uint64, assetID openassets.AssetID,
	quantity uint64) openassets.SpendableOutput {

	return openassets.SpendableOutput{
		Outpoint: wire.OutPoint{Hash: hash, Index: uint32(index)},
		Output: openassets.ColoredOutput{
			Value:      int64(value),
			Script:     scriptFor("colored"),
			AssetID:    &assetID,
			Quantity:   quantity,
			OutputType: openassets.Transfer,
		},
	}
}

func TestIssue(t *testing.T) {
	hash := hashFor(0x01)
	inputs := []openassets.SpendableOutput{
		uncoloredOutput(0, hash, 20),
		uncoloredOutput(1, hash, 15),
		uncoloredOutput(2, hash, 10),
	}

	spec := IssuanceSpec{
		ToScript:     scriptFor("issue-to"),
		ChangeScript: scriptFor("change"),
		Amount:       1000,
	}

	tx, err := Issue(inputs, spec, nil, 10, 5)
	if err != nil {
		t.Fatalf("Issue failed : %s", err)
	}

	// 2*dustThreshold + fees = 25, so the first two inputs (20+15=35) cover it.
	if len(tx.TxIn) != 2 {
		t.Fatalf("Wrong input count : got %d, want 2", len(tx.TxIn))
	}

	// issued output, marker, change output
	if len(tx.TxOut) != 3 {
		t.Fatalf("Wrong output count : got %d, want 3", len(tx.TxOut))
	}

	if tx.TxOut[0].Value != 10 {
		t.Errorf("Wrong issued output value : got %d, want 10", tx.TxOut[0].Value)
	}

	payload, ok := openassets.MatchMarkerScript(tx.TxOut[1].LockingScript)
	if !ok {
		t.Fatalf("Expected marker at output 1")
	}
	marker, ok := openassets.ParseMarkerPayload(payload)
	if !ok {
		t.Fatalf("Failed to parse marker payload")
	}
	if len(marker.Quantities) != 1 || marker.Quantities[0] != 1000 {
		t.Errorf("Wrong marker quantities : %v", marker.Quantities)
	}

	// change = 35 - 10 - 5 = 20
	if tx.TxOut[2].Value != 20 {
		t.Errorf("Wrong change value : got %d, want 20", tx.TxOut[2].Value)
	}
}

func TestIssueInsufficientFunds(t *testing.T) {
	hash := hashFor(0x01)
	inputs := []openassets.SpendableOutput{
		uncoloredOutput(0, hash, 5),
	}

	spec := IssuanceSpec{ToScript: scriptFor("to"), ChangeScript: scriptFor("change"), Amount: 1}

	_, err := Issue(inputs, spec, nil, 10, 5)
	if err == nil {
		t.Fatalf("Expected insufficient funds error")
	}
	if !IsErrorCode(err, ErrorCodeInsufficientFunds) {
		t.Errorf("Wrong error code : %s", err)
	}
}

func TestTransferBitcoin(t *testing.T) {
	hash := hashFor(0x02)
	inputs := []openassets.SpendableOutput{
		uncoloredOutput(0, hash, 150),
		uncoloredOutput(1, hash, 60),
	}

	btcSpec := BitcoinTransferSpec{
		ToScript:     scriptFor("to"),
		ChangeScript: scriptFor("change"),
		Amount:       200,
	}

	tx, err := TransferBitcoin(inputs, btcSpec, 10, 10)
	if err != nil {
		t.Fatalf("TransferBitcoin failed : %s", err)
	}

	// 150 alone doesn't cover 200+10 fees, needs the second input too.
	if len(tx.TxIn) != 2 {
		t.Fatalf("Wrong input count : got %d, want 2", len(tx.TxIn))
	}

	// No asset legs, so no marker. Selected inputs total exactly 210 (200 payment + 10 fees), so
	// there is no bitcoin excess and no change output -- just the payment.
	if len(tx.TxOut) != 1 {
		t.Fatalf("Wrong output count : got %d, want 1", len(tx.TxOut))
	}

	if tx.TxOut[0].Value != 200 {
		t.Errorf("Wrong payment value : got %d, want 200", tx.TxOut[0].Value)
	}
}

func TestTransferAssets(t *testing.T) {
	assetID := openassets.NewAssetID([]byte("asset-a1"))
	hash := hashFor(0x03)

	inputs := []openassets.SpendableOutput{
		coloredOutput(0, hash, 546, assetID, 50),
		coloredOutput(1, hash, 546, assetID, 100),
		uncoloredOutput(2, hash, 200),
	}

	assetSpecs := []AssetTransferSpec{
		{AssetID: assetID, ToScript: scriptFor("to"), ChangeScript: scriptFor("asset-change"), Amount: 120},
	}
	btcSpec := BitcoinTransferSpec{ToScript: scriptFor("btc-to"), ChangeScript: scriptFor("btc-change"), Amount: 80}

	tx, err := Transfer(inputs, assetSpecs, btcSpec, 40, 10)
	if err != nil {
		t.Fatalf("Transfer failed : %s", err)
	}

	payload, ok := openassets.MatchMarkerScript(tx.TxOut[0].LockingScript)
	if !ok {
		t.Fatalf("Expected marker at output 0")
	}
	marker, ok := openassets.ParseMarkerPayload(payload)
	if !ok {
		t.Fatalf("Failed to parse marker payload")
	}
	// quantities: [to=120, change=30]
	if len(marker.Quantities) != 2 || marker.Quantities[0] != 120 || marker.Quantities[1] != 30 {
		t.Errorf("Wrong marker quantities : %v", marker.Quantities)
	}
}

func TestTransferInsufficientAsset(t *testing.T) {
	assetID := openassets.NewAssetID([]byte("asset-a1"))
	hash := hashFor(0x04)

	inputs := []openassets.SpendableOutput{
		coloredOutput(0, hash, 546, assetID, 10),
	}

	assetSpecs := []AssetTransferSpec{
		{AssetID: assetID, ToScript: scriptFor("to"), ChangeScript: scriptFor("change"), Amount: 100},
	}

	_, err := Transfer(inputs, assetSpecs, BitcoinTransferSpec{}, 10, 10)
	if err == nil {
		t.Fatalf("Expected insufficient asset error")
	}
	if !IsErrorCode(err, ErrorCodeInsufficientAsset) {
		t.Errorf("Wrong error code : %s", err)
	}
}

func TestDustOutput(t *testing.T) {
	hash := hashFor(0x05)
	inputs := []openassets.SpendableOutput{
		uncoloredOutput(0, hash, 1000),
	}

	// A bitcoin payment of 5 satoshis is well funded but falls below the 10 satoshi dust
	// threshold.
	btcSpec := BitcoinTransferSpec{ToScript: scriptFor("to"), ChangeScript: scriptFor("change"), Amount: 5}

	_, err := TransferBitcoin(inputs, btcSpec, 1, 10)
	if err == nil {
		t.Fatalf("Expected dust output error")
	}
	if !IsErrorCode(err, ErrorCodeDustOutput) {
		t.Errorf("Wrong error code : %s", err)
	}
}
