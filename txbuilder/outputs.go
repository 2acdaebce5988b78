package txbuilder

import (
	"github.com/tokenized/openassets/openassets"
	"github.com/tokenized/openassets/wire"
)

// buildOutputs converts the ordered list of marker-tracked outputs into the final transaction
// output list, inserting a marker output at index 0 when any output carries an asset quantity.
// Metadata is only attached to the marker, never to a payment output.
func buildOutputs(outputs []markerOutput, metadata []byte) ([]*wire.TxOut, error) {
	quantities := make([]uint64, 0, len(outputs))
	haveAsset := false
	for _, out := range outputs {
		quantities = append(quantities, out.quantity)
		if out.quantity > 0 {
			haveAsset = true
		}
	}

	txOuts := make([]*wire.TxOut, 0, len(outputs)+1)

	if haveAsset {
		marker := openassets.MarkerPayload{Quantities: quantities, Metadata: metadata}
		script, err := openassets.BuildMarkerScript(marker.Bytes())
		if err != nil {
			return nil, err
		}
		txOuts = append(txOuts, wire.NewTxOut(0, script))
	}

	for _, out := range outputs {
		txOuts = append(txOuts, wire.NewTxOut(out.value, out.script))
	}

	return txOuts, nil
}

// checkDust fails if any non-marker output carries less than the dust threshold. markerIndex is
// the index of the marker output to exempt, or -1 if there is no marker.
func checkDust(txOuts []*wire.TxOut, markerIndex int, dustThreshold uint64) error {
	for i, out := range txOuts {
		if i == markerIndex {
			continue
		}
		if out.Value < dustThreshold {
			return newError(ErrorCodeDustOutput, "")
		}
	}
	return nil
}
