package openassets

import (
	"context"
	"testing"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/wire"
)

type countingProvider struct {
	txs   map[bitcoin.Hash32]*wire.MsgTx
	fetch map[bitcoin.Hash32]int
}

func newCountingProvider() *countingProvider {
	return &countingProvider{
		txs:   make(map[bitcoin.Hash32]*wire.MsgTx),
		fetch: make(map[bitcoin.Hash32]int),
	}
}

func (p *countingProvider) add(tx *wire.MsgTx) bitcoin.Hash32 {
	hash := *tx.TxHash()
	p.txs[hash] = tx
	return hash
}

func (p *countingProvider) GetTx(ctx context.Context, txHash bitcoin.Hash32) (*wire.MsgTx, error) {
	p.fetch[txHash]++
	tx, exists := p.txs[txHash]
	if !exists {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

func (p *countingProvider) fetchCount() int {
	total := 0
	for _, c := range p.fetch {
		total += c
	}
	return total
}

func coinbaseTx(value uint64, script []byte) *wire.MsgTx {
	var zero bitcoin.Hash32
	outpoint := wire.NewOutPoint(&zero, coinbaseIndex)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(outpoint, nil))
	tx.AddTxOut(wire.NewTxOut(value, script))
	return tx
}

func spendTx(prevHash bitcoin.Hash32, prevIndex uint32, value uint64, script []byte) *wire.MsgTx {
	outpoint := wire.NewOutPoint(&prevHash, prevIndex)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(outpoint, nil))
	tx.AddTxOut(wire.NewTxOut(value, script))
	return tx
}

func TestEngineCoinbaseAlwaysUncolored(t *testing.T) {
	ctx := context.Background()
	provider := newCountingProvider()
	root := coinbaseTx(5000000000, scriptFor("coinbase"))
	hash := provider.add(root)

	engine := NewEngine(provider, NewMemoryCache())

	output, err := engine.GetOutput(ctx, hash, 0)
	if err != nil {
		t.Fatalf("GetOutput failed : %s", err)
	}
	if output.OutputType != Uncolored {
		t.Errorf("Coinbase output should be uncolored, got %s", output.OutputType)
	}
}

func TestEngineTxNotFound(t *testing.T) {
	ctx := context.Background()
	provider := newCountingProvider()
	engine := NewEngine(provider, NewMemoryCache())

	var missing bitcoin.Hash32
	missing[0] = 0xaa

	_, err := engine.GetOutput(ctx, missing, 0)
	if err == nil {
		t.Fatalf("Expected error for missing transaction")
	}
	if !IsErrorCode(err, ErrorCodeTxUnavailable) {
		t.Errorf("Expected ErrorCodeTxUnavailable, got %s", err)
	}
}

func TestEngineFirstValidMarkerWins(t *testing.T) {
	ctx := context.Background()
	provider := newCountingProvider()

	root := coinbaseTx(100000, scriptFor("funding"))
	rootHash := provider.add(root)

	invalidMarker, err := BuildMarkerScript([]byte{0x4f, 0x42, 0x01, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	validPayload := MarkerPayload{Quantities: []uint64{0, 10}}
	validMarker, err := BuildMarkerScript(validPayload.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	tx := spendTx(rootHash, 0, 0, invalidMarker)
	tx.AddTxOut(wire.NewTxOut(546, scriptFor("issued")))
	tx.AddTxOut(wire.NewTxOut(0, validMarker))
	txHash := provider.add(tx)

	engine := NewEngine(provider, NewMemoryCache())

	output, err := engine.GetOutput(ctx, txHash, 1)
	if err != nil {
		t.Fatalf("GetOutput failed : %s", err)
	}
	issuanceID := NewAssetID(root.TxOut[0].LockingScript)
	if output.OutputType != Issuance || output.Quantity != 10 || output.AssetID == nil ||
		!output.AssetID.Equal(issuanceID) {
		t.Errorf("Expected issuance output before the second marker, got %+v", output)
	}
}

func TestEngineDeepChainAndCaching(t *testing.T) {
	ctx := context.Background()
	provider := newCountingProvider()

	const depth = 1000

	current := coinbaseTx(100000, scriptFor("root"))
	hash := provider.add(current)

	for i := 0; i < depth; i++ {
		current = spendTx(hash, 0, 100000, scriptFor("link"))
		hash = provider.add(current)
	}

	cache := NewMemoryCache()
	engine := NewEngine(provider, cache)

	output, err := engine.GetOutput(ctx, hash, 0)
	if err != nil {
		t.Fatalf("GetOutput failed on deep chain : %s", err)
	}
	if output.OutputType != Uncolored {
		t.Errorf("Expected uncolored output, got %s", output.OutputType)
	}

	coldFetches := provider.fetchCount()
	if coldFetches != depth+1 {
		t.Errorf("Wrong cold fetch count : got %d, want %d", coldFetches, depth+1)
	}

	provider.fetch = make(map[bitcoin.Hash32]int)

	if _, err := engine.GetOutput(ctx, hash, 0); err != nil {
		t.Fatalf("GetOutput failed on warm cache : %s", err)
	}

	warmFetches := provider.fetchCount()
	if warmFetches != 0 {
		t.Errorf("Expected no fetches on warm cache, got %d", warmFetches)
	}
}

func TestEngineSharedAncestorResolvedOnce(t *testing.T) {
	ctx := context.Background()
	provider := newCountingProvider()

	root := coinbaseTx(100000, scriptFor("root"))
	rootHash := provider.add(root)

	// Two transactions both spend output 0 of the root (double-spend in reality, but the engine
	// only cares about coloring, and both need the same ancestor resolved).
	child1 := spendTx(rootHash, 0, 50000, scriptFor("child-1"))
	child1Hash := provider.add(child1)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&child1Hash, 0), nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&rootHash, 0), nil))
	tx.AddTxOut(wire.NewTxOut(10000, scriptFor("out")))
	txHash := provider.add(tx)

	engine := NewEngine(provider, NewMemoryCache())

	if _, err := engine.GetOutput(ctx, txHash, 0); err != nil {
		t.Fatalf("GetOutput failed : %s", err)
	}

	if count := provider.fetch[rootHash]; count != 1 {
		t.Errorf("Root ancestor should be fetched exactly once, got %d", count)
	}
}
