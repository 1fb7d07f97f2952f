package bridge

import (
	"fmt"

	"github.com/example/go-tokenizers/internal/export"
	"github.com/example/go-tokenizers/internal/handle"
	"github.com/example/go-tokenizers/internal/ingest"
	"github.com/example/go-tokenizers/internal/view"
)

// EncodingRecord is one element of a batch-encode export. Its layout matches
// the C struct { uint64_t handle; size_t len; }.
type EncodingRecord struct {
	Handle EncodingHandle
	Len    int
}

// EncodeBatch encodes n texts read from a caller-owned collection through
// at, which is called for indices 0..n-1 in ascending order. Record i
// corresponds to input i. Either every input is encoded or nothing is
// produced. The encodings belong to the returned buffer: read them with the
// accessors and release them all with FreeExportedEncodings.
func EncodeBatch[C any](b *Bridge, h TokenizerHandle, collection C, n int, at ingest.Accessor[C, byte], addSpecialTokens bool) (export.Buffer[EncodingRecord], error) {
	const op = "encodeBatch"
	eng, err := b.tokenizer(op, h)
	if err != nil {
		return export.Buffer[EncodingRecord]{}, err
	}

	texts, err := ingest.Strings(collection, n, at)
	if err != nil {
		return export.Buffer[EncodingRecord]{}, newError(op, ErrUse, err)
	}

	records := make([]EncodingRecord, 0, n)
	for i, text := range texts {
		enc, err := eng.Encode(text, addSpecialTokens)
		if err != nil {
			b.dropRecords(records)
			b.log.Warn("batch encode failed", "handle", h.String(), "index", i, "batch", n, "error", err)
			return export.Buffer[EncodingRecord]{}, newError(op, classify(err, ErrEncoding), fmt.Errorf("input %d: %w", i, err))
		}
		id := b.encodings.Insert(b.newEntry(enc, true))
		records = append(records, EncodingRecord{Handle: EncodingHandle(id), Len: enc.Len()})
	}
	b.log.Debug("batch encoded", "handle", h.String(), "batch", n)

	return export.Slice(b.exp, records), nil
}

func (b *Bridge) dropRecords(records []EncodingRecord) {
	for _, r := range records {
		_ = b.removeEncoding(handle.ID(r.Handle))
	}
}

// EncodeStrings is EncodeBatch over a Go slice.
func (b *Bridge) EncodeStrings(h TokenizerHandle, texts []string, addSpecialTokens bool) (export.Buffer[EncodingRecord], error) {
	return EncodeBatch(b, h, texts, len(texts), ingest.StringAccessor, addSpecialTokens)
}

// DecodeBatch decodes n id arrays read through at. Text i corresponds to
// input i. Either every input is decoded or nothing is produced. Release the
// result with FreeExportedTextList, or with FreeExportedTextListOuterOnly to
// keep the texts and free them one by one later.
func DecodeBatch[C any](b *Bridge, h TokenizerHandle, collection C, n int, at ingest.Accessor[C, uint32], skipSpecialTokens bool) (export.Buffer[export.Buffer[byte]], error) {
	const op = "decodeBatch"
	eng, err := b.tokenizer(op, h)
	if err != nil {
		return export.Buffer[export.Buffer[byte]]{}, err
	}

	capacity := max(n, 0)
	texts := make([]export.Buffer[byte], 0, capacity)
	err = ingest.Visit(collection, n, at, func(i int, ids view.Array[uint32]) error {
		text, err := eng.Decode(ids.Slice(), skipSpecialTokens)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		texts = append(texts, export.Text(b.exp, text))

		return nil
	})
	if err != nil {
		for _, t := range texts {
			_ = export.Free(b.exp, t)
		}
		b.log.Warn("batch decode failed", "handle", h.String(), "batch", n, "error", err)

		return export.Buffer[export.Buffer[byte]]{}, newError(op, classify(err, ErrEncoding), err)
	}
	b.log.Debug("batch decoded", "handle", h.String(), "batch", n)

	return export.Slice(b.exp, texts), nil
}

// DecodeSlices is DecodeBatch over a Go slice.
func (b *Bridge) DecodeSlices(h TokenizerHandle, ids [][]uint32, skipSpecialTokens bool) (export.Buffer[export.Buffer[byte]], error) {
	return DecodeBatch(b, h, ids, len(ids), ingest.SliceAccessor[uint32], skipSpecialTokens)
}
