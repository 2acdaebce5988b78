package openassets

import "github.com/tokenized/openassets/wire"

// SpendableOutput pairs a previously seen transaction output with its outpoint. The transaction
// builder selects its inputs from a caller-supplied list of these.
type SpendableOutput struct {
	Outpoint wire.OutPoint
	Output   ColoredOutput
}

// TransferParameters describes one leg of a transfer or swap: where value should go, where any
// unspent remainder should go, and how much to move. Amount is denominated in satoshis for
// bitcoin transfers and in asset units for asset transfers.
type TransferParameters struct {
	DestinationScript []byte
	ChangeScript      []byte
	Amount            uint64
}
