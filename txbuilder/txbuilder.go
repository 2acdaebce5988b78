package txbuilder

import (
	"github.com/tokenized/openassets/openassets"
	"github.com/tokenized/openassets/wire"
)

// Issue builds a transaction issuing a new asset: it selects uncolored spendable outputs from
// inputs, in order, until their cumulative value covers twice the dust threshold plus fees, then
// emits a colored output at the dust threshold, followed by a marker recording the issuance
// quantity, followed by an uncolored change output with whatever is left over. Issuance outputs
// are positioned before the marker output, so the marker cannot go at index 0 here the way it
// does for Transfer.
func Issue(inputs []openassets.SpendableOutput, spec IssuanceSpec, metadata []byte,
	dustThreshold, fees uint64) (*wire.MsgTx, error) {

	p := newPool(inputs)

	selected, total, ok := p.selectUncolored(2*dustThreshold + fees)
	if !ok {
		return nil, newError(ErrorCodeInsufficientFunds, "")
	}

	marker := openassets.MarkerPayload{Quantities: []uint64{spec.Amount}, Metadata: metadata}
	script, err := openassets.BuildMarkerScript(marker.Bytes())
	if err != nil {
		return nil, err
	}

	change := total - dustThreshold - fees

	txOuts := []*wire.TxOut{
		wire.NewTxOut(dustThreshold, spec.ToScript),
		wire.NewTxOut(0, script),
		wire.NewTxOut(change, spec.ChangeScript),
	}

	if err := checkDust(txOuts, 1, dustThreshold); err != nil {
		return nil, err
	}

	return buildTx(selected, txOuts), nil
}

// Transfer builds a transaction moving zero or more assets and an amount of bitcoin. For each
// asset spec, in order, it selects colored outputs covering spec.Amount, emits a payment output
// for that amount and, if over-selected, a change output for the excess. It then selects any
// additional uncolored outputs needed to cover the bitcoin payment and fees, and emits a bitcoin
// change output and/or payment output as needed. If any asset quantity was recorded, the marker is
// inserted at output index 0.
func Transfer(inputs []openassets.SpendableOutput, assetSpecs []AssetTransferSpec,
	btcSpec BitcoinTransferSpec, fees, dustThreshold uint64) (*wire.MsgTx, error) {

	p := newPool(inputs)

	var selected []openassets.SpendableOutput
	var outputs []markerOutput

	for _, spec := range assetSpecs {
		assetSelected, total, ok := p.selectAsset(spec.AssetID, spec.Amount)
		if !ok {
			return nil, newError(ErrorCodeInsufficientAsset, spec.AssetID.String())
		}
		selected = append(selected, assetSelected...)

		outputs = append(outputs, markerOutput{
			script:   spec.ToScript,
			value:    dustThreshold,
			quantity: spec.Amount,
		})

		if total > spec.Amount {
			outputs = append(outputs, markerOutput{
				script:   spec.ChangeScript,
				value:    dustThreshold,
				quantity: total - spec.Amount,
			})
		}
	}

	var inputValue, outputValue uint64
	for _, output := range selected {
		inputValue += uint64(output.Output.Value)
	}
	for _, output := range outputs {
		outputValue += output.value
	}

	required := btcSpec.Amount + fees
	btcExcess := int64(inputValue) - int64(outputValue)

	if btcExcess < int64(required) {
		gap := int64(required) - btcExcess
		additional, total, ok := p.selectUncolored(uint64(gap))
		if !ok {
			return nil, newError(ErrorCodeInsufficientFunds, "")
		}
		selected = append(selected, additional...)
		btcExcess += int64(total)
	}

	txOuts, err := buildOutputs(outputs, nil)
	if err != nil {
		return nil, err
	}
	markerIndex := -1
	if len(txOuts) > len(outputs) {
		markerIndex = 0
	}

	excess := uint64(btcExcess - int64(required))
	if excess > 0 {
		txOuts = append(txOuts, wire.NewTxOut(excess, btcSpec.ChangeScript))
	}
	if btcSpec.Amount > 0 {
		txOuts = append(txOuts, wire.NewTxOut(btcSpec.Amount, btcSpec.ToScript))
	}

	if err := checkDust(txOuts, markerIndex, dustThreshold); err != nil {
		return nil, err
	}

	return buildTx(selected, txOuts), nil
}

// TransferBitcoin is Transfer with no asset legs: a pure bitcoin payment.
func TransferBitcoin(inputs []openassets.SpendableOutput, btcSpec BitcoinTransferSpec, fees,
	dustThreshold uint64) (*wire.MsgTx, error) {

	return Transfer(inputs, nil, btcSpec, fees, dustThreshold)
}

// TransferAssets is Transfer with no bitcoin payment leg: only asset quantities move, and any
// bitcoin gathered to cover fees returns as change.
func TransferAssets(inputs []openassets.SpendableOutput, assetSpecs []AssetTransferSpec, fees,
	dustThreshold uint64) (*wire.MsgTx, error) {

	return Transfer(inputs, assetSpecs, BitcoinTransferSpec{}, fees, dustThreshold)
}

// BtcAssetSwap is Transfer with exactly one asset leg and a bitcoin leg: one party's asset for
// another's bitcoin.
func BtcAssetSwap(inputs []openassets.SpendableOutput, assetSpec AssetTransferSpec,
	btcSpec BitcoinTransferSpec, fees, dustThreshold uint64) (*wire.MsgTx, error) {

	return Transfer(inputs, []AssetTransferSpec{assetSpec}, btcSpec, fees, dustThreshold)
}

// AssetAssetSwap is Transfer with exactly two asset legs and no bitcoin leg: one party's asset for
// another's.
func AssetAssetSwap(inputs []openassets.SpendableOutput, first, second AssetTransferSpec, fees,
	dustThreshold uint64) (*wire.MsgTx, error) {

	return Transfer(inputs, []AssetTransferSpec{first, second}, BitcoinTransferSpec{}, fees,
		dustThreshold)
}

func buildTx(inputs []openassets.SpendableOutput, outputs []*wire.TxOut) *wire.MsgTx {
	tx := wire.NewMsgTx(1)

	for _, input := range inputs {
		tx.AddTxIn(wire.NewTxIn(&input.Outpoint, nil))
	}
	for _, output := range outputs {
		tx.AddTxOut(output)
	}

	return tx
}
