package openassets

import (
	"context"
	"errors"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/wire"
)

// ErrTxNotFound is returned by a TransactionProvider when it has no record of the requested
// transaction. The coloring engine translates this into ErrorCodeTxUnavailable.
var ErrTxNotFound = errors.New("transaction not found")

// TransactionProvider supplies the raw transactions the coloring engine needs to walk the input
// DAG. It is the only I/O dependency of the engine besides the OutputCache.
type TransactionProvider interface {
	GetTx(ctx context.Context, txHash bitcoin.Hash32) (*wire.MsgTx, error)
}
