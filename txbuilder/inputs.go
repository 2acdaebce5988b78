package txbuilder

import "github.com/tokenized/openassets/openassets"

// pool tracks which of a caller-supplied list of spendable outputs have already been committed to
// a transaction being built, so the same output is never selected twice.
type pool struct {
	outputs []openassets.SpendableOutput
	used    []bool
}

func newPool(outputs []openassets.SpendableOutput) *pool {
	return &pool{outputs: outputs, used: make([]bool, len(outputs))}
}

// selectUncolored selects uncolored outputs, in pool order, until their cumulative value is at
// least minValue. It returns the selected outputs and their total value. ok is false if the pool
// is exhausted before minValue is reached.
func (p *pool) selectUncolored(minValue uint64) (selected []openassets.SpendableOutput, total uint64, ok bool) {
	for i, output := range p.outputs {
		if total >= minValue {
			break
		}
		if p.used[i] || output.Output.HasAsset() {
			continue
		}

		p.used[i] = true
		selected = append(selected, output)
		total += uint64(output.Output.Value)
	}

	return selected, total, total >= minValue
}

// selectAsset selects outputs colored with assetID, in pool order, until their cumulative asset
// quantity is at least minQuantity.
func (p *pool) selectAsset(assetID openassets.AssetID, minQuantity uint64) (selected []openassets.SpendableOutput, total uint64, ok bool) {
	for i, output := range p.outputs {
		if total >= minQuantity {
			break
		}
		if p.used[i] || output.Output.AssetID == nil || !output.Output.AssetID.Equal(assetID) {
			continue
		}

		p.used[i] = true
		selected = append(selected, output)
		total += output.Output.Quantity
	}

	return selected, total, total >= minQuantity
}
