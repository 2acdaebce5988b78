package openassets

import (
	"context"
	"testing"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/rpcnode"
	"github.com/tokenized/openassets/wire"

	"github.com/pkg/errors"
)

type fakeRPCNode struct {
	tx  *wire.MsgTx
	err error
}

func (f *fakeRPCNode) GetTx(ctx context.Context, txid bitcoin.Hash32) (*wire.MsgTx, error) {
	return f.tx, f.err
}

func TestRPCProviderTranslatesNotSeen(t *testing.T) {
	node := &fakeRPCNode{err: errors.Wrap(rpcnode.ErrNotSeen, "get tx")}
	provider := NewRPCProvider(node)

	_, err := provider.GetTx(context.Background(), bitcoin.Hash32{})
	if err != ErrTxNotFound {
		t.Errorf("Expected ErrTxNotFound, got %s", err)
	}
}

func TestRPCProviderPassesThroughOtherErrors(t *testing.T) {
	otherErr := errors.New("some other failure")
	node := &fakeRPCNode{err: otherErr}
	provider := NewRPCProvider(node)

	_, err := provider.GetTx(context.Background(), bitcoin.Hash32{})
	if errors.Cause(err) != otherErr {
		t.Errorf("Expected passthrough error, got %s", err)
	}
}

func TestRPCProviderSuccess(t *testing.T) {
	tx := wire.NewMsgTx(1)
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x76, 0xa9}))

	node := &fakeRPCNode{tx: tx}
	provider := NewRPCProvider(node)

	got, err := provider.GetTx(context.Background(), *tx.TxHash())
	if err != nil {
		t.Fatalf("GetTx failed : %s", err)
	}
	if got != tx {
		t.Errorf("Expected the same transaction back")
	}
}
