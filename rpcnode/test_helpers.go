package rpcnode

import (
	"context"
	"fmt"
	"sync"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/wire"

	"github.com/pkg/errors"
)

// MockFundingUTXO generates a fake output paying to script, saves its transaction into rpc, and
// returns a UTXO referencing it for use as an input to another tx.
func MockFundingUTXO(ctx context.Context, rpc *MockRpcNode, script []byte,
	value uint64) bitcoin.UTXO {

	tx := wire.NewMsgTx(1)
	tx.AddTxOut(wire.NewTxOut(value, script))

	if err := rpc.SaveTX(ctx, tx); err != nil {
		panic(err)
	}

	return bitcoin.UTXO{
		Hash:          *tx.TxHash(),
		Index:         0,
		Value:         value,
		LockingScript: script,
	}
}

// MockRpcNode is an in-memory TransactionProvider for tests.
type MockRpcNode struct {
	txs  map[bitcoin.Hash32]*wire.MsgTx
	lock sync.Mutex
}

func NewMockRpcNode() *MockRpcNode {
	return &MockRpcNode{txs: make(map[bitcoin.Hash32]*wire.MsgTx)}
}

func (r *MockRpcNode) SaveTX(ctx context.Context, tx *wire.MsgTx) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.txs[*tx.TxHash()] = tx.Copy()
	return nil
}

func (r *MockRpcNode) GetTX(ctx context.Context, txid *bitcoin.Hash32) (*wire.MsgTx, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	tx, ok := r.txs[*txid]
	if ok {
		return tx, nil
	}
	return nil, errors.New("Couldn't find tx in r")
}

// GetTx implements openassets.TransactionProvider.
func (r *MockRpcNode) GetTx(ctx context.Context, txid bitcoin.Hash32) (*wire.MsgTx, error) {
	return r.GetTX(ctx, &txid)
}

func (r *MockRpcNode) GetOutputs(ctx context.Context, outpoints []wire.OutPoint) ([]bitcoin.UTXO, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	results := make([]bitcoin.UTXO, len(outpoints))
	for i, outpoint := range outpoints {
		tx, ok := r.txs[outpoint.Hash]
		if !ok {
			return results, fmt.Errorf("Couldn't find tx in r : %s", outpoint.Hash.String())
		}

		if int(outpoint.Index) >= len(tx.TxOut) {
			return results, fmt.Errorf("Invalid output index for txid %d/%d : %s", outpoint.Index,
				len(tx.TxOut), outpoint.Hash.String())
		}

		results[i] = bitcoin.UTXO{
			Hash:          outpoint.Hash,
			Index:         outpoint.Index,
			Value:         tx.TxOut[outpoint.Index].Value,
			LockingScript: tx.TxOut[outpoint.Index].LockingScript,
		}
	}
	return results, nil
}
