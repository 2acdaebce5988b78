package openassets

import (
	"testing"

	"github.com/tokenized/openassets/wire"
)

func scriptFor(label string) []byte {
	return []byte("script:" + label)
}

func TestResolveMarkerIssuance(t *testing.T) {
	// One uncolored input funds an issuance of 2 colored outputs plus a marker.
	inputs := []ColoredOutput{
		{Value: 10000, Script: scriptFor("funding"), OutputType: Uncolored},
	}

	outputs := []*wire.TxOut{
		wire.NewTxOut(546, scriptFor("issue-1")),
		wire.NewTxOut(546, scriptFor("issue-2")),
		wire.NewTxOut(0, scriptFor("marker")),
	}

	quantities := []uint64{1, 300}

	results, ok := resolveMarker(inputs, 2, outputs, quantities)
	if !ok {
		t.Fatalf("Expected resolve to succeed")
	}

	issuanceID := NewAssetID(inputs[0].Script)

	if results[0].OutputType != Issuance || results[0].AssetID == nil ||
		!results[0].AssetID.Equal(issuanceID) || results[0].Quantity != 1 {
		t.Errorf("Wrong output 0 : %+v", results[0])
	}
	if results[1].OutputType != Issuance || results[1].AssetID == nil ||
		!results[1].AssetID.Equal(issuanceID) || results[1].Quantity != 300 {
		t.Errorf("Wrong output 1 : %+v", results[1])
	}
	if results[2].OutputType != MarkerOutput {
		t.Errorf("Wrong output 2 : %+v", results[2])
	}
}

func TestResolveMarkerTransferOneToOne(t *testing.T) {
	assetID := NewAssetID([]byte("issuer"))

	inputs := []ColoredOutput{
		{Value: 546, Script: scriptFor("in-0"), AssetID: &assetID, Quantity: 50, OutputType: Transfer},
	}

	outputs := []*wire.TxOut{
		wire.NewTxOut(0, scriptFor("marker")),
		wire.NewTxOut(546, scriptFor("out-1")),
	}

	quantities := []uint64{50}

	results, ok := resolveMarker(inputs, 0, outputs, quantities)
	if !ok {
		t.Fatalf("Expected resolve to succeed")
	}

	if results[0].OutputType != MarkerOutput {
		t.Errorf("Wrong output 0 : %+v", results[0])
	}
	if results[1].OutputType != Transfer || results[1].AssetID == nil ||
		!results[1].AssetID.Equal(assetID) || results[1].Quantity != 50 {
		t.Errorf("Wrong output 1 : %+v", results[1])
	}
}

func TestResolveMarkerTransferSpansInputs(t *testing.T) {
	assetID := NewAssetID([]byte("issuer"))

	inputs := []ColoredOutput{
		{Value: 546, Script: scriptFor("in-0"), AssetID: &assetID, Quantity: 30, OutputType: Transfer},
		{Value: 546, Script: scriptFor("in-1"), AssetID: &assetID, Quantity: 70, OutputType: Transfer},
	}

	outputs := []*wire.TxOut{
		wire.NewTxOut(0, scriptFor("marker")),
		wire.NewTxOut(546, scriptFor("out-1")),
	}

	quantities := []uint64{100}

	results, ok := resolveMarker(inputs, 0, outputs, quantities)
	if !ok {
		t.Fatalf("Expected resolve to succeed")
	}

	if results[1].Quantity != 100 || !results[1].AssetID.Equal(assetID) {
		t.Errorf("Wrong combined output : %+v", results[1])
	}
}

func TestResolveMarkerAssetMixingFails(t *testing.T) {
	assetA := NewAssetID([]byte("issuer-a"))
	assetB := NewAssetID([]byte("issuer-b"))

	inputs := []ColoredOutput{
		{Value: 546, Script: scriptFor("in-0"), AssetID: &assetA, Quantity: 30, OutputType: Transfer},
		{Value: 546, Script: scriptFor("in-1"), AssetID: &assetB, Quantity: 70, OutputType: Transfer},
	}

	outputs := []*wire.TxOut{
		wire.NewTxOut(0, scriptFor("marker")),
		wire.NewTxOut(546, scriptFor("out-1")),
	}

	// Output 1 asks for 100 units, which can only be satisfied by draining both differently
	// colored inputs into a single output -- invalid.
	quantities := []uint64{100}

	if _, ok := resolveMarker(inputs, 0, outputs, quantities); ok {
		t.Errorf("Expected resolve to fail on asset mixing")
	}
}

func TestResolveMarkerQuantityExceedsSlots(t *testing.T) {
	inputs := []ColoredOutput{
		{Value: 546, Script: scriptFor("in-0"), OutputType: Uncolored},
	}

	outputs := []*wire.TxOut{
		wire.NewTxOut(0, scriptFor("marker")),
	}

	// No output slots remain for quantities since marker is the only output.
	quantities := []uint64{1}

	if _, ok := resolveMarker(inputs, 0, outputs, quantities); ok {
		t.Errorf("Expected resolve to fail when quantities exceed available slots")
	}
}

func TestResolveMarkerNoInputs(t *testing.T) {
	outputs := []*wire.TxOut{
		wire.NewTxOut(0, scriptFor("marker")),
	}

	if _, ok := resolveMarker(nil, 0, outputs, nil); ok {
		t.Errorf("Expected resolve to fail with no inputs")
	}
}

func TestResolveMarkerInsufficientUnits(t *testing.T) {
	assetID := NewAssetID([]byte("issuer"))

	inputs := []ColoredOutput{
		{Value: 546, Script: scriptFor("in-0"), AssetID: &assetID, Quantity: 10, OutputType: Transfer},
	}

	outputs := []*wire.TxOut{
		wire.NewTxOut(0, scriptFor("marker")),
		wire.NewTxOut(546, scriptFor("out-1")),
	}

	// Asking for more units than the inputs carry.
	quantities := []uint64{50}

	if _, ok := resolveMarker(inputs, 0, outputs, quantities); ok {
		t.Errorf("Expected resolve to fail when inputs don't cover requested quantity")
	}
}

func TestResolveMarkerIssuanceAndTransferMixed(t *testing.T) {
	// Outputs before the marker are issuance outputs; outputs after are transfers of whatever
	// colored input value came in.
	assetID := NewAssetID([]byte("prior-issuer"))

	inputs := []ColoredOutput{
		{Value: 546, Script: scriptFor("issuing-script"), OutputType: Uncolored},
		{Value: 546, Script: scriptFor("prior-colored"), AssetID: &assetID, Quantity: 20, OutputType: Transfer},
	}

	outputs := []*wire.TxOut{
		wire.NewTxOut(546, scriptFor("new-issue")),
		wire.NewTxOut(0, scriptFor("marker")),
		wire.NewTxOut(546, scriptFor("transferred")),
	}

	quantities := []uint64{500, 20}

	results, ok := resolveMarker(inputs, 1, outputs, quantities)
	if !ok {
		t.Fatalf("Expected resolve to succeed")
	}

	issuanceID := NewAssetID(inputs[0].Script)
	if !results[0].AssetID.Equal(issuanceID) || results[0].Quantity != 500 ||
		results[0].OutputType != Issuance {
		t.Errorf("Wrong issuance output : %+v", results[0])
	}
	if !results[2].AssetID.Equal(assetID) || results[2].Quantity != 20 ||
		results[2].OutputType != Transfer {
		t.Errorf("Wrong transfer output : %+v", results[2])
	}
}
