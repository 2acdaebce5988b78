package openassets

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/cacher"

	"github.com/pkg/errors"
)

// ColoredOutputValue adapts a ColoredOutput to the cacher.Value interface so coloring results can
// be held in a Cacher and persisted to storage between processes instead of recomputed.
type ColoredOutputValue struct {
	Output ColoredOutput

	isModified atomic.Value
	sync.Mutex
}

func ColoredOutputPath(txHash bitcoin.Hash32, index uint32) string {
	return fmt.Sprintf("outputs/%s/%d", txHash, index)
}

func (v *ColoredOutputValue) Initialize() {
	v.isModified.Store(false)
}

func (v *ColoredOutputValue) IsModified() bool {
	return v.isModified.Load().(bool)
}

func (v *ColoredOutputValue) MarkModified() {
	v.isModified.Store(true)
}

func (v *ColoredOutputValue) GetModified() bool {
	return v.isModified.Swap(false).(bool)
}

func (v *ColoredOutputValue) CacheCopy() cacher.Value {
	result := &ColoredOutputValue{
		Output: v.Output,
	}
	result.isModified.Store(true)
	return result
}

func (v *ColoredOutputValue) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, v.Output.Value); err != nil {
		return errors.Wrap(err, "value")
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(v.Output.Script))); err != nil {
		return errors.Wrap(err, "script size")
	}
	if _, err := w.Write(v.Output.Script); err != nil {
		return errors.Wrap(err, "script")
	}

	hasAsset := v.Output.AssetID != nil
	if err := binary.Write(w, binary.LittleEndian, hasAsset); err != nil {
		return errors.Wrap(err, "has asset")
	}
	if hasAsset {
		if _, err := w.Write(v.Output.AssetID.Bytes()); err != nil {
			return errors.Wrap(err, "asset id")
		}
	}

	if err := binary.Write(w, binary.LittleEndian, v.Output.Quantity); err != nil {
		return errors.Wrap(err, "quantity")
	}

	if err := binary.Write(w, binary.LittleEndian, v.Output.OutputType); err != nil {
		return errors.Wrap(err, "output type")
	}

	return nil
}

func (v *ColoredOutputValue) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &v.Output.Value); err != nil {
		return errors.Wrap(err, "value")
	}

	var scriptSize uint32
	if err := binary.Read(r, binary.LittleEndian, &scriptSize); err != nil {
		return errors.Wrap(err, "script size")
	}
	script := make([]byte, scriptSize)
	if _, err := io.ReadFull(r, script); err != nil {
		return errors.Wrap(err, "script")
	}
	v.Output.Script = script

	var hasAsset bool
	if err := binary.Read(r, binary.LittleEndian, &hasAsset); err != nil {
		return errors.Wrap(err, "has asset")
	}
	if hasAsset {
		var id AssetID
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return errors.Wrap(err, "asset id")
		}
		v.Output.AssetID = &id
	} else {
		v.Output.AssetID = nil
	}

	if err := binary.Read(r, binary.LittleEndian, &v.Output.Quantity); err != nil {
		return errors.Wrap(err, "quantity")
	}

	if err := binary.Read(r, binary.LittleEndian, &v.Output.OutputType); err != nil {
		return errors.Wrap(err, "output type")
	}

	return nil
}

// CacherOutputCache implements OutputCache on top of a cacher.Cacher, giving the coloring engine a
// cache that can be backed by S3, a filesystem, or any other cacher/storage.Storage combination the
// caller wires up, and shared across engine instances in the same process.
type CacherOutputCache struct {
	cache cacher.Cacher
}

func NewCacherOutputCache(cache cacher.Cacher) *CacherOutputCache {
	return &CacherOutputCache{cache: cache}
}

func (c *CacherOutputCache) Get(ctx context.Context, txHash bitcoin.Hash32,
	index uint32) (*ColoredOutput, error) {

	typ := reflect.TypeOf(&ColoredOutputValue{})
	path := ColoredOutputPath(txHash, index)

	value, err := c.cache.Get(ctx, typ, path)
	if err != nil {
		return nil, errors.Wrap(err, "get")
	}
	if value == nil {
		return nil, nil
	}

	outputValue, ok := value.(*ColoredOutputValue)
	if !ok {
		return nil, errors.New("wrong cache value type")
	}

	output := outputValue.Output
	c.cache.Release(ctx, path)
	return &output, nil
}

func (c *CacherOutputCache) Put(ctx context.Context, txHash bitcoin.Hash32, index uint32,
	output ColoredOutput) error {

	typ := reflect.TypeOf(&ColoredOutputValue{})
	path := ColoredOutputPath(txHash, index)

	value := &ColoredOutputValue{Output: output}
	value.isModified.Store(true)

	added, err := c.cache.Add(ctx, typ, path, value)
	if err != nil {
		return errors.Wrap(err, "add")
	}

	if addedValue, ok := added.(*ColoredOutputValue); ok && addedValue != value {
		addedValue.Lock()
		addedValue.Output = output
		addedValue.MarkModified()
		addedValue.Unlock()
	}

	c.cache.Release(ctx, path)
	return nil
}
