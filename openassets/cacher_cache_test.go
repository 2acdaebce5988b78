package openassets

import (
	"bytes"
	"context"
	"testing"

	"github.com/tokenized/openassets/logger"
	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/cacher"
	"github.com/tokenized/openassets/storage"
)

func TestColoredOutputValueSerializeDeserialize(t *testing.T) {
	assetID := NewAssetID([]byte("issuer"))

	tests := []struct {
		name  string
		value ColoredOutput
	}{
		{
			name:  "uncolored",
			value: ColoredOutput{Value: 546, Script: []byte{0x76, 0xa9}, OutputType: Uncolored},
		},
		{
			name: "colored",
			value: ColoredOutput{
				Value: 546, Script: []byte{0x76, 0xa9, 0x14}, AssetID: &assetID, Quantity: 1000,
				OutputType: Issuance,
			},
		},
		{
			name:  "empty script",
			value: ColoredOutput{Value: 0, Script: nil, OutputType: MarkerOutput},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ColoredOutputValue{Output: tt.value}

			var buf bytes.Buffer
			if err := v.Serialize(&buf); err != nil {
				t.Fatalf("Serialize failed : %s", err)
			}

			result := &ColoredOutputValue{}
			if err := result.Deserialize(&buf); err != nil {
				t.Fatalf("Deserialize failed : %s", err)
			}

			if result.Output.Value != tt.value.Value {
				t.Errorf("Wrong value : got %d, want %d", result.Output.Value, tt.value.Value)
			}
			if !bytes.Equal(result.Output.Script, tt.value.Script) {
				t.Errorf("Wrong script : got %x, want %x", result.Output.Script, tt.value.Script)
			}
			if result.Output.Quantity != tt.value.Quantity {
				t.Errorf("Wrong quantity : got %d, want %d", result.Output.Quantity, tt.value.Quantity)
			}
			if result.Output.OutputType != tt.value.OutputType {
				t.Errorf("Wrong output type : got %s, want %s", result.Output.OutputType,
					tt.value.OutputType)
			}

			if tt.value.AssetID == nil {
				if result.Output.AssetID != nil {
					t.Errorf("Expected nil asset id")
				}
			} else {
				if result.Output.AssetID == nil || !result.Output.AssetID.Equal(*tt.value.AssetID) {
					t.Errorf("Wrong asset id")
				}
			}
		})
	}
}

func TestCacherOutputCacheGetPut(t *testing.T) {
	ctx := logger.ContextWithLogger(context.Background(), true, true, "")
	store := storage.NewMockStorage()
	cache := cacher.NewSimpleCache(store)

	outputCache := NewCacherOutputCache(cache)

	var txHash bitcoin.Hash32
	txHash[0] = 0x01

	assetID := NewAssetID([]byte("issuer"))
	output := ColoredOutput{
		Value:      1000,
		Script:     []byte{0x76, 0xa9},
		AssetID:    &assetID,
		Quantity:   50,
		OutputType: Transfer,
	}

	if err := outputCache.Put(ctx, txHash, 0, output); err != nil {
		t.Fatalf("Put failed : %s", err)
	}

	got, err := outputCache.Get(ctx, txHash, 0)
	if err != nil {
		t.Fatalf("Get failed : %s", err)
	}
	if got == nil {
		t.Fatalf("Expected a cache hit")
	}
	if got.Value != output.Value || got.Quantity != output.Quantity {
		t.Errorf("Wrong cached output : got %+v, want %+v", got, output)
	}
	if !got.AssetID.Equal(*output.AssetID) {
		t.Errorf("Wrong cached asset id")
	}
}

func TestCacherOutputCacheMiss(t *testing.T) {
	ctx := logger.ContextWithLogger(context.Background(), true, true, "")
	store := storage.NewMockStorage()
	cache := cacher.NewSimpleCache(store)

	outputCache := NewCacherOutputCache(cache)

	var txHash bitcoin.Hash32
	txHash[0] = 0x02

	got, err := outputCache.Get(ctx, txHash, 0)
	if err != nil {
		t.Fatalf("Get failed : %s", err)
	}
	if got != nil {
		t.Errorf("Expected cache miss, got %+v", got)
	}
}
