package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/example/go-tokenizers/internal/bridge"
)

// Opener creates the tokenizer a worker benchmarks against.
type Opener func(b *bridge.Bridge) (bridge.TokenizerHandle, error)

// Options configures Run.
type Options struct {
	Texts            []string
	Runs             int
	Workers          int
	BatchSize        int
	AddSpecialTokens bool
	// BridgeOptions are applied to every worker's Bridge.
	BridgeOptions []bridge.Option
}

type worker struct {
	b *bridge.Bridge
	h bridge.TokenizerHandle
}

// Run encodes Texts in batches of BatchSize, Runs times over. Each worker
// owns its own Bridge and tokenizer, so no tokenizer is shared between
// goroutines.
func Run(ctx context.Context, open Opener, opts Options) ([]RunResult, error) {
	if len(opts.Texts) == 0 {
		return nil, errors.New("no texts to benchmark")
	}
	if opts.Runs < 1 {
		return nil, errors.New("runs must be at least 1")
	}
	workers := max(opts.Workers, 1)
	batchSize := max(opts.BatchSize, 1)

	ws := make([]worker, 0, workers)
	defer func() {
		for _, w := range ws {
			_ = w.b.Close()
		}
	}()
	for i := 0; i < workers; i++ {
		b := bridge.New(opts.BridgeOptions...)
		h, err := open(b)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open tokenizer for worker %d: %w", i, err)
		}
		ws = append(ws, worker{b: b, h: h})
	}

	batches := split(opts.Texts, batchSize)
	results := make([]RunResult, 0, opts.Runs)
	for i := 0; i < opts.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		tokens, err := runOnce(ctx, ws, batches, opts.AddSpecialTokens)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		dur := time.Since(start)

		results = append(results, RunResult{
			Index:        i,
			Cold:         i == 0,
			Duration:     dur,
			Texts:        len(opts.Texts),
			Tokens:       tokens,
			TokensPerSec: CalcThroughput(tokens, dur),
		})
	}

	return results, nil
}

// runOnce hands batch j to worker j mod len(ws) and returns the total token
// count.
func runOnce(ctx context.Context, ws []worker, batches [][]string, addSpecial bool) (int, error) {
	p := pool.NewWithResults[int]().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(len(ws))
	for wi, w := range ws {
		wi, w := wi, w
		p.Go(func(ctx context.Context) (int, error) {
			total := 0
			for j := wi; j < len(batches); j += len(ws) {
				if err := ctx.Err(); err != nil {
					return 0, err
				}
				n, err := encodeBatch(w, batches[j], addSpecial)
				if err != nil {
					return 0, err
				}
				total += n
			}
			return total, nil
		})
	}

	counts, err := p.Wait()
	if err != nil {
		return 0, err
	}

	sum := 0
	for _, n := range counts {
		sum += n
	}

	return sum, nil
}

func encodeBatch(w worker, texts []string, addSpecial bool) (int, error) {
	buf, err := w.b.EncodeStrings(w.h, texts, addSpecial)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, rec := range buf.Slice() {
		n += rec.Len
	}

	return n, w.b.FreeExportedEncodings(buf)
}

func split(texts []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}
