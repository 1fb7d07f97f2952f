package bridge

import (
	"fmt"
	"unsafe"

	"go.uber.org/multierr"

	"github.com/example/go-tokenizers/internal/export"
	"github.com/example/go-tokenizers/internal/handle"
)

// ExportText exports a copy of s, such as an error message handed to a
// foreign caller. Release it with FreeExportedText.
func (b *Bridge) ExportText(s string) export.Buffer[byte] {
	return export.Text(b.exp, s)
}

// ---------------------------------------------------------------------------
// deallocation
// ---------------------------------------------------------------------------

// FreeExportedText releases a text buffer returned by Decode or IDToToken,
// or an inner buffer of a decode batch freed outer-only.
func (b *Bridge) FreeExportedText(buf export.Buffer[byte]) error {
	if err := export.Free(b.exp, buf); err != nil {
		return newError("freeExportedText", ErrUse, err)
	}

	return nil
}

// FreeTextWithArgs releases a text buffer described field by field.
func (b *Bridge) FreeTextWithArgs(ptr *byte, length, capacity int) error {
	if err := b.exp.FreeRaw(unsafe.Pointer(ptr), length, capacity, 1); err != nil {
		return newError("freeExportedTextWithArgs", ErrUse, err)
	}

	return nil
}

// FreeExportedEncodings releases a batch-encode buffer together with every
// encoding it owns.
func (b *Bridge) FreeExportedEncodings(buf export.Buffer[EncodingRecord]) error {
	const op = "freeExportedEncodings"
	if err := export.Check(b.exp, buf); err != nil {
		return newError(op, ErrUse, err)
	}

	var errs error
	for i, r := range buf.Slice() {
		e, err := b.encodings.Get(handle.ID(r.Handle))
		if err == nil && !e.batchOwned {
			err = fmt.Errorf("%s is not owned by this batch", r.Handle)
		}
		if err == nil {
			err = b.removeEncoding(handle.ID(r.Handle))
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record %d: %w", i, err))
		}
	}
	errs = multierr.Append(errs, export.Free(b.exp, buf))
	if errs != nil {
		return newError(op, ErrUse, errs)
	}

	return nil
}

// FreeExportedTextList releases a decode-batch buffer and every text in it.
func (b *Bridge) FreeExportedTextList(buf export.Buffer[export.Buffer[byte]]) error {
	const op = "freeExportedTextList"
	if err := export.Check(b.exp, buf); err != nil {
		return newError(op, ErrUse, err)
	}

	var errs error
	for i, t := range buf.Slice() {
		if err := export.Free(b.exp, t); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("text %d: %w", i, err))
		}
	}
	errs = multierr.Append(errs, export.Free(b.exp, buf))
	if errs != nil {
		return newError(op, ErrUse, errs)
	}

	return nil
}

// FreeExportedTextListOuterOnly releases only the outer record array of a
// decode-batch buffer. The texts stay valid and are released individually
// with FreeExportedText.
func (b *Bridge) FreeExportedTextListOuterOnly(buf export.Buffer[export.Buffer[byte]]) error {
	if err := export.Free(b.exp, buf); err != nil {
		return newError("freeExportedTextListOuterOnly", ErrUse, err)
	}

	return nil
}
