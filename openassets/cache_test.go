package openassets

import (
	"context"
	"testing"

	"github.com/tokenized/openassets/bitcoin"
)

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	cache := &NoopCache{}

	var hash bitcoin.Hash32
	hash[0] = 0x01

	if err := cache.Put(ctx, hash, 0, ColoredOutput{Value: 100, OutputType: Uncolored}); err != nil {
		t.Fatalf("Put failed : %s", err)
	}

	output, err := cache.Get(ctx, hash, 0)
	if err != nil {
		t.Fatalf("Get failed : %s", err)
	}
	if output != nil {
		t.Errorf("Noop cache should always miss")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	var hash1, hash2 bitcoin.Hash32
	hash1[0] = 0x01
	hash2[0] = 0x02

	assetID := NewAssetID([]byte("script"))
	output := ColoredOutput{
		Value:      546,
		Script:     []byte{0x76, 0xa9},
		AssetID:    &assetID,
		Quantity:   100,
		OutputType: Issuance,
	}

	if err := cache.Put(ctx, hash1, 0, output); err != nil {
		t.Fatalf("Put failed : %s", err)
	}

	got, err := cache.Get(ctx, hash1, 0)
	if err != nil {
		t.Fatalf("Get failed : %s", err)
	}
	if got == nil {
		t.Fatalf("Expected cache hit")
	}
	if got.Value != output.Value || got.Quantity != output.Quantity {
		t.Errorf("Wrong cached output : got %+v, want %+v", got, output)
	}
	if !got.AssetID.Equal(*output.AssetID) {
		t.Errorf("Wrong cached asset id")
	}

	// Different index, same hash: miss.
	if got, err := cache.Get(ctx, hash1, 1); err != nil {
		t.Fatalf("Get failed : %s", err)
	} else if got != nil {
		t.Errorf("Expected cache miss for different index")
	}

	// Different hash: miss.
	if got, err := cache.Get(ctx, hash2, 0); err != nil {
		t.Fatalf("Get failed : %s", err)
	} else if got != nil {
		t.Errorf("Expected cache miss for different hash")
	}
}
