package openassets

import (
	"context"

	"github.com/tokenized/openassets/bitcoin"
	"github.com/tokenized/openassets/wire"
)

// coinbaseIndex is the previous-output index that marks a coinbase input.
const coinbaseIndex = 0xFFFFFFFF

// Engine colors transaction outputs according to the Open Assets protocol. It is the only
// consumer of a TransactionProvider and an OutputCache; it holds no other mutable state.
type Engine struct {
	Provider TransactionProvider
	Cache    OutputCache
}

// NewEngine creates a coloring engine. If cache is nil, colorings are never memoized.
func NewEngine(provider TransactionProvider, cache OutputCache) *Engine {
	if cache == nil {
		cache = &NoopCache{}
	}
	return &Engine{Provider: provider, Cache: cache}
}

// GetOutput returns the colored output at (txHash, index), fetching and coloring the transaction
// (and, transitively, its ancestors) as needed.
func (e *Engine) GetOutput(ctx context.Context, txHash bitcoin.Hash32,
	index uint32) (*ColoredOutput, error) {

	if cached, err := e.Cache.Get(ctx, txHash, index); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	colored, err := e.colorTransactionByHash(ctx, txHash)
	if err != nil {
		return nil, err
	}

	if int(index) >= len(colored) {
		return nil, newError(ErrorCodeTxUnavailable, "output index out of range")
	}

	result := colored[index]
	return &result, nil
}

// ColorTransaction colors an already-fetched transaction, resolving its inputs' prior colorings
// (fetching and coloring ancestor transactions as needed) along the way.
func (e *Engine) ColorTransaction(ctx context.Context, tx *wire.MsgTx) ([]ColoredOutput, error) {
	return e.colorTransaction(ctx, tx, nil)
}

// colorFrame is one entry of the explicit work stack colorTransactionByHash walks. Using a
// heap-allocated stack instead of Go call recursion lets coloring a transaction with a deep
// ancestor chain (thousands of levels) proceed without growing the goroutine stack unboundedly.
type colorFrame struct {
	txHash    bitcoin.Hash32
	tx        *wire.MsgTx
	inputs    []ColoredOutput
	nextInput int
}

func (e *Engine) colorTransactionByHash(ctx context.Context,
	txHash bitcoin.Hash32) ([]ColoredOutput, error) {

	resolved := map[bitcoin.Hash32][]ColoredOutput{}
	stack := []*colorFrame{{txHash: txHash}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := stack[len(stack)-1]

		if frame.tx == nil {
			if _, exists := resolved[frame.txHash]; exists {
				// Already colored earlier in this walk (shared ancestor).
				stack = stack[:len(stack)-1]
				continue
			}

			tx, err := e.Provider.GetTx(ctx, frame.txHash)
			if err != nil {
				if err == ErrTxNotFound {
					return nil, newError(ErrorCodeTxUnavailable, frame.txHash.String())
				}
				return nil, err
			}
			frame.tx = tx

			if isCoinbase(tx) {
				colored := uncoloredOutputs(tx)
				if err := e.storeOutputs(ctx, frame.txHash, colored); err != nil {
					return nil, err
				}
				resolved[frame.txHash] = colored
				stack = stack[:len(stack)-1]
				continue
			}

			frame.inputs = make([]ColoredOutput, len(tx.TxIn))
		}

		blocked := false
		for frame.nextInput < len(frame.tx.TxIn) {
			prevOut := frame.tx.TxIn[frame.nextInput].PreviousOutPoint

			if cached, err := e.Cache.Get(ctx, prevOut.Hash, prevOut.Index); err != nil {
				return nil, err
			} else if cached != nil {
				frame.inputs[frame.nextInput] = *cached
				frame.nextInput++
				continue
			}

			if colored, exists := resolved[prevOut.Hash]; exists {
				if int(prevOut.Index) >= len(colored) {
					return nil, newError(ErrorCodeTxUnavailable, prevOut.Hash.String())
				}
				frame.inputs[frame.nextInput] = colored[prevOut.Index]
				frame.nextInput++
				continue
			}

			stack = append(stack, &colorFrame{txHash: prevOut.Hash})
			blocked = true
			break
		}

		if blocked {
			continue
		}

		colored := colorWithInputs(frame.tx, frame.inputs)
		if err := e.storeOutputs(ctx, frame.txHash, colored); err != nil {
			return nil, err
		}
		resolved[frame.txHash] = colored
		stack = stack[:len(stack)-1]
	}

	return resolved[txHash], nil
}

func (e *Engine) colorTransaction(ctx context.Context, tx *wire.MsgTx,
	inputs []ColoredOutput) ([]ColoredOutput, error) {

	if isCoinbase(tx) {
		return uncoloredOutputs(tx), nil
	}

	if inputs == nil {
		inputs = make([]ColoredOutput, len(tx.TxIn))
		for i, txIn := range tx.TxIn {
			prevOut := txIn.PreviousOutPoint
			output, err := e.GetOutput(ctx, prevOut.Hash, prevOut.Index)
			if err != nil {
				return nil, err
			}
			inputs[i] = *output
		}
	}

	return colorWithInputs(tx, inputs), nil
}

func (e *Engine) storeOutputs(ctx context.Context, txHash bitcoin.Hash32,
	outputs []ColoredOutput) error {

	for i, output := range outputs {
		if err := e.Cache.Put(ctx, txHash, uint32(i), output); err != nil {
			return err
		}
	}
	return nil
}

// colorWithInputs colors a transaction's outputs given the already-colored versions of its
// inputs' previous outputs. It scans outputs left to right for the first one that both matches
// the marker script pattern and decodes to a valid marker payload that the resolver accepts;
// failures at either step are not errors, they just advance the scan. If no output yields a
// successful resolution, every output is reported uncolored.
func colorWithInputs(tx *wire.MsgTx, inputs []ColoredOutput) []ColoredOutput {
	for k, out := range tx.TxOut {
		payload, matched := MatchMarkerScript(out.LockingScript)
		if !matched {
			continue
		}

		marker, ok := ParseMarkerPayload(payload)
		if !ok {
			continue
		}

		resolved, ok := resolveMarker(inputs, k, tx.TxOut, marker.Quantities)
		if !ok {
			continue
		}

		return resolved
	}

	return uncoloredOutputs(tx)
}

func uncoloredOutputs(tx *wire.MsgTx) []ColoredOutput {
	outputs := make([]ColoredOutput, len(tx.TxOut))
	for i, out := range tx.TxOut {
		outputs[i] = ColoredOutput{
			Value:      int64(out.Value),
			Script:     out.LockingScript,
			OutputType: Uncolored,
		}
	}
	return outputs
}

// isCoinbase reports whether tx is a coinbase transaction: a single input whose previous outpoint
// is the null hash at index 0xFFFFFFFF. Coinbase outputs can never carry assets.
func isCoinbase(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prevOut := tx.TxIn[0].PreviousOutPoint
	return prevOut.Index == coinbaseIndex && prevOut.Hash.IsZero()
}
