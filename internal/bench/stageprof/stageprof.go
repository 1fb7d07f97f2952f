// Package stageprof times the individual boundary stages of a round trip
// (encode, column access, decode, free) under pprof labels so a CPU profile
// can be split by stage.
package stageprof

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/export"
	"github.com/example/go-tokenizers/internal/ingest"
)

// Options configures Profile.
type Options struct {
	Texts             []string
	Runs              int
	Warmup            int
	AddSpecialTokens  bool
	SkipSpecialTokens bool
	// CPUProfile, when set, receives a CPU profile of the measured runs.
	CPUProfile string
}

// Report holds the per-stage averages.
type Report struct {
	Runs    int
	Warmup  int
	Texts   int
	Tokens  int
	Encode  time.Duration
	Columns time.Duration
	Decode  time.Duration
	Free    time.Duration
	Total   time.Duration
}

type timings struct {
	encode  time.Duration
	columns time.Duration
	decode  time.Duration
	free    time.Duration
	total   time.Duration
	tokens  int
}

// Profile runs Warmup unmeasured and Runs measured round trips of Texts
// through h and returns the average time spent in each stage.
func Profile(ctx context.Context, b *bridge.Bridge, h bridge.TokenizerHandle, opts Options) (Report, error) {
	if opts.Runs < 1 {
		return Report{}, errors.New("runs must be >= 1")
	}
	if len(opts.Texts) == 0 {
		return Report{}, errors.New("no texts to profile")
	}

	for i := 0; i < opts.Warmup; i++ {
		if _, err := runOnce(ctx, b, h, opts); err != nil {
			return Report{}, fmt.Errorf("warmup run %d failed: %w", i+1, err)
		}
	}

	if opts.CPUProfile != "" {
		f, err := os.Create(opts.CPUProfile)
		if err != nil {
			return Report{}, fmt.Errorf("create cpuprofile: %w", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			return Report{}, fmt.Errorf("start cpuprofile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	var agg timings
	for i := 0; i < opts.Runs; i++ {
		t, err := runOnce(ctx, b, h, opts)
		if err != nil {
			return Report{}, fmt.Errorf("profiled run %d failed: %w", i+1, err)
		}
		agg.encode += t.encode
		agg.columns += t.columns
		agg.decode += t.decode
		agg.free += t.free
		agg.total += t.total
		agg.tokens = t.tokens
	}

	div := time.Duration(opts.Runs)

	return Report{
		Runs:    opts.Runs,
		Warmup:  opts.Warmup,
		Texts:   len(opts.Texts),
		Tokens:  agg.tokens,
		Encode:  agg.encode / div,
		Columns: agg.columns / div,
		Decode:  agg.decode / div,
		Free:    agg.free / div,
		Total:   agg.total / div,
	}, nil
}

func runOnce(ctx context.Context, b *bridge.Bridge, h bridge.TokenizerHandle, opts Options) (timings, error) {
	var out timings
	startTotal := time.Now()

	var (
		encoded export.Buffer[bridge.EncodingRecord]
		err     error
	)
	pprof.Do(ctx, pprof.Labels("stage", "encode"), func(context.Context) {
		start := time.Now()
		encoded, err = b.EncodeStrings(h, opts.Texts, opts.AddSpecialTokens)
		out.encode = time.Since(start)
	})
	if err != nil {
		return out, fmt.Errorf("encode: %w", err)
	}

	var ids [][]uint32
	pprof.Do(ctx, pprof.Labels("stage", "columns"), func(context.Context) {
		start := time.Now()
		ids, out.tokens, err = readColumns(b, encoded.Slice())
		out.columns = time.Since(start)
	})
	if err != nil {
		_ = b.FreeExportedEncodings(encoded)
		return out, fmt.Errorf("columns: %w", err)
	}

	var decoded export.Buffer[export.Buffer[byte]]
	pprof.Do(ctx, pprof.Labels("stage", "decode"), func(context.Context) {
		start := time.Now()
		decoded, err = bridge.DecodeBatch(b, h, ids, len(ids), ingest.SliceAccessor[uint32], opts.SkipSpecialTokens)
		out.decode = time.Since(start)
	})
	if err != nil {
		_ = b.FreeExportedEncodings(encoded)
		return out, fmt.Errorf("decode: %w", err)
	}

	pprof.Do(ctx, pprof.Labels("stage", "free"), func(context.Context) {
		start := time.Now()
		err = errors.Join(
			b.FreeExportedTextList(decoded),
			b.FreeExportedEncodings(encoded),
		)
		out.free = time.Since(start)
	})
	if err != nil {
		return out, fmt.Errorf("free: %w", err)
	}

	out.total = time.Since(startTotal)

	return out, nil
}

// readColumns copies the ids of every record out before the encodings are
// freed and touches the attention mask as a caller building model inputs
// would.
func readColumns(b *bridge.Bridge, records []bridge.EncodingRecord) ([][]uint32, int, error) {
	ids := make([][]uint32, len(records))
	tokens := 0
	for i, rec := range records {
		v, err := b.IDs(rec.Handle)
		if err != nil {
			return nil, 0, err
		}
		ids[i] = append([]uint32(nil), v.Slice()...)
		tokens += v.Len

		if _, err := b.AttentionMask(rec.Handle); err != nil {
			return nil, 0, err
		}
	}

	return ids, tokens, nil
}

// Write prints the report as key: value lines.
func (r Report) Write(w io.Writer) {
	ms := func(d time.Duration) float64 { return d.Seconds() * 1000 }

	fmt.Fprintf(w, "runs: %d (warmup %d)\n", r.Runs, r.Warmup)
	fmt.Fprintf(w, "texts: %d\n", r.Texts)
	fmt.Fprintf(w, "tokens: %d\n", r.Tokens)
	fmt.Fprintf(w, "avg_encode_ms: %.3f\n", ms(r.Encode))
	fmt.Fprintf(w, "avg_columns_ms: %.3f\n", ms(r.Columns))
	fmt.Fprintf(w, "avg_decode_ms: %.3f\n", ms(r.Decode))
	fmt.Fprintf(w, "avg_free_ms: %.3f\n", ms(r.Free))
	fmt.Fprintf(w, "avg_total_ms: %.3f\n", ms(r.Total))

	if r.Total > 0 {
		total := ms(r.Total)
		fmt.Fprintf(w, "share_encode_pct: %.2f\n", 100*ms(r.Encode)/total)
		fmt.Fprintf(w, "share_columns_pct: %.2f\n", 100*ms(r.Columns)/total)
		fmt.Fprintf(w, "share_decode_pct: %.2f\n", 100*ms(r.Decode)/total)
		fmt.Fprintf(w, "share_free_pct: %.2f\n", 100*ms(r.Free)/total)
	}
}
