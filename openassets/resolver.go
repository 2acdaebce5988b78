package openassets

import "github.com/tokenized/openassets/wire"

// resolveMarker implements the Open Assets asset-ID resolution algorithm: given the colored
// previous outputs for each input of a transaction (in input order), the index of the marker
// output, the transaction's outputs, and the quantity list decoded from the marker, it assigns an
// OutputType/AssetID/Quantity to every output.
//
// It never returns an error. A transaction whose marker fails to resolve is reported as invalid
// (ok = false) and the caller treats every output as uncolored.
func resolveMarker(inputs []ColoredOutput, markerIndex int, outputs []*wire.TxOut,
	quantities []uint64) ([]ColoredOutput, bool) {

	if len(quantities) > len(outputs)-1 {
		return nil, false
	}
	if len(inputs) == 0 {
		return nil, false
	}

	results := make([]ColoredOutput, len(outputs))

	issuanceID := NewAssetID(inputs[0].Script)

	for i := 0; i < markerIndex; i++ {
		out := outputs[i]
		if i < len(quantities) && quantities[i] > 0 {
			id := issuanceID
			results[i] = ColoredOutput{
				Value:      int64(out.Value),
				Script:     out.LockingScript,
				AssetID:    &id,
				Quantity:   quantities[i],
				OutputType: Issuance,
			}
		} else {
			results[i] = ColoredOutput{
				Value:      int64(out.Value),
				Script:     out.LockingScript,
				OutputType: Issuance,
			}
		}
	}

	results[markerIndex] = ColoredOutput{
		Value:      int64(outputs[markerIndex].Value),
		Script:     outputs[markerIndex].LockingScript,
		OutputType: MarkerOutput,
	}

	inputIndex := 0
	var inputUnitsLeft uint64
	var inputAssetID *AssetID
	if inputIndex < len(inputs) {
		inputUnitsLeft = inputs[inputIndex].Quantity
		inputAssetID = inputs[inputIndex].AssetID
	}

	advanceInput := func() bool {
		inputIndex++
		if inputIndex >= len(inputs) {
			return false
		}
		inputUnitsLeft = inputs[inputIndex].Quantity
		inputAssetID = inputs[inputIndex].AssetID
		return true
	}

	for i := markerIndex + 1; i < len(outputs); i++ {
		out := outputs[i]

		var outQty uint64
		if i-1 < len(quantities) {
			outQty = quantities[i-1]
		}

		if outQty == 0 {
			results[i] = ColoredOutput{
				Value:      int64(out.Value),
				Script:     out.LockingScript,
				OutputType: Transfer,
			}
			continue
		}

		remaining := outQty
		var assignedID *AssetID

		for remaining > 0 {
			for inputIndex < len(inputs) && inputUnitsLeft == 0 {
				if !advanceInput() {
					break
				}
			}
			if inputIndex >= len(inputs) || inputUnitsLeft == 0 {
				return nil, false // input stream exhausted before out_qty fully covered
			}

			take := remaining
			if inputUnitsLeft < take {
				take = inputUnitsLeft
			}

			if inputAssetID != nil {
				if assignedID == nil {
					id := *inputAssetID
					assignedID = &id
				} else if !assignedID.Equal(*inputAssetID) {
					return nil, false // colored units from conflicting assets
				}
			}

			inputUnitsLeft -= take
			remaining -= take
		}

		results[i] = ColoredOutput{
			Value:      int64(out.Value),
			Script:     out.LockingScript,
			AssetID:    assignedID,
			Quantity:   outQty,
			OutputType: Transfer,
		}
	}

	return results, true
}
