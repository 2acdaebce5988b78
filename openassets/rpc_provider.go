package openassets

import (
	"context"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/rpcnode"
	"github.com/tokenized/openassets/wire"

	"github.com/pkg/errors"
)

// rpcTxGetter is the subset of *rpcnode.RPCNode this adapter depends on.
type rpcTxGetter interface {
	GetTx(ctx context.Context, txid bitcoin.Hash32) (*wire.MsgTx, error)
}

// RPCProvider adapts an rpcnode.RPCNode (or rpcnode.MockRpcNode) into a TransactionProvider,
// translating the node's "not seen" error into ErrTxNotFound.
type RPCProvider struct {
	node rpcTxGetter
}

func NewRPCProvider(node rpcTxGetter) *RPCProvider {
	return &RPCProvider{node: node}
}

func (p *RPCProvider) GetTx(ctx context.Context, txHash bitcoin.Hash32) (*wire.MsgTx, error) {
	tx, err := p.node.GetTx(ctx, txHash)
	if err != nil {
		if errors.Cause(err) == rpcnode.ErrNotSeen {
			return nil, ErrTxNotFound
		}
		return nil, err
	}
	return tx, nil
}
