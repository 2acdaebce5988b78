package openassets

import (
	"context"

	"github.com/tokenized/openassets/bitcoin"
)

// OutputCache is the capability the coloring engine uses to memoize the colorings it has already
// computed. It has no coherence requirements beyond "a Put followed by an equivalent Get may
// return the stored value" -- implementations may evict arbitrarily and correctness of the engine
// does not depend on cache hits.
type OutputCache interface {
	Get(ctx context.Context, txHash bitcoin.Hash32, index uint32) (*ColoredOutput, error)
	Put(ctx context.Context, txHash bitcoin.Hash32, index uint32, output ColoredOutput) error
}

// NoopCache is the default cache: Get always misses, Put is discarded. It is useful for callers
// that don't need coloring results to persist across calls, or for tests.
type NoopCache struct{}

func (*NoopCache) Get(ctx context.Context, txHash bitcoin.Hash32, index uint32) (*ColoredOutput, error) {
	return nil, nil
}

func (*NoopCache) Put(ctx context.Context, txHash bitcoin.Hash32, index uint32, output ColoredOutput) error {
	return nil
}

type outputKey struct {
	hash  bitcoin.Hash32
	index uint32
}

// MemoryCache is an in-process OutputCache backed by a plain map. It never evicts.
type MemoryCache struct {
	outputs map[outputKey]ColoredOutput
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{outputs: make(map[outputKey]ColoredOutput)}
}

func (c *MemoryCache) Get(ctx context.Context, txHash bitcoin.Hash32,
	index uint32) (*ColoredOutput, error) {

	output, exists := c.outputs[outputKey{hash: txHash, index: index}]
	if !exists {
		return nil, nil
	}
	return &output, nil
}

func (c *MemoryCache) Put(ctx context.Context, txHash bitcoin.Hash32, index uint32,
	output ColoredOutput) error {

	c.outputs[outputKey{hash: txHash, index: index}] = output
	return nil
}
