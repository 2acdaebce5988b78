package rpcnode

import (
	"context"
	"testing"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/wire"
)

func TestMockRpcNodeSaveAndGet(t *testing.T) {
	ctx := context.Background()
	rpc := NewMockRpcNode()

	utxo := MockFundingUTXO(ctx, rpc, []byte{0x76, 0xa9, 0x14}, 5000)

	tx, err := rpc.GetTX(ctx, &utxo.Hash)
	if err != nil {
		t.Fatalf("GetTX failed : %s", err)
	}

	if len(tx.TxOut) != 1 || tx.TxOut[0].Value != 5000 {
		t.Errorf("Wrong funding output : %+v", tx.TxOut)
	}

	outputs, err := rpc.GetOutputs(ctx, []wire.OutPoint{{Hash: utxo.Hash, Index: 0}})
	if err != nil {
		t.Fatalf("GetOutputs failed : %s", err)
	}
	if len(outputs) != 1 || outputs[0].Value != 5000 {
		t.Errorf("Wrong outputs : %+v", outputs)
	}
}

func TestMockRpcNodeNotFound(t *testing.T) {
	ctx := context.Background()
	rpc := NewMockRpcNode()

	var missing bitcoin.Hash32
	missing[0] = 0xff

	if _, err := rpc.GetTX(ctx, &missing); err == nil {
		t.Errorf("Expected error for missing tx")
	}
}
