package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-tokenizers/internal/export"
	"github.com/example/go-tokenizers/internal/view"
)

// --- encodeBatch ---

func TestEncodeBatch_MatchesSingleEncode(t *testing.T) {
	b, h := newHiBridge(t)
	texts := []string{"hi", "hi there", "", "there hi"}

	batch, err := b.EncodeStrings(h, texts, false)
	require.NoError(t, err)
	require.Equal(t, len(texts), batch.Len)

	for i, rec := range batch.Slice() {
		single, err := b.Encode(h, texts[i], false)
		require.NoError(t, err)

		want, err := b.IDs(single)
		require.NoError(t, err)
		got, err := b.IDs(rec.Handle)
		require.NoError(t, err)

		assert.Equal(t, want.Slice(), got.Slice(), "input %d", i)
		assert.Equal(t, want.Len, rec.Len, "input %d", i)
		require.NoError(t, b.DestroyEncoding(single))
	}

	require.NoError(t, b.FreeExportedEncodings(batch))
	assert.Zero(t, b.Stats().Encodings)
	assert.Zero(t, b.Stats().Exports.Live)
}

func TestEncodeBatch_CallerLayout(t *testing.T) {
	b, h := newHiBridge(t)

	// one flat byte buffer with an end-offset table
	type packed struct {
		data []byte
		ends []int
	}
	p := packed{data: []byte("hithere"), ends: []int{2, 7}}

	var order []int
	at := func(c packed, i int) view.Array[byte] {
		order = append(order, i)
		start := 0
		if i > 0 {
			start = c.ends[i-1]
		}
		return view.Of(c.data[start:c.ends[i]])
	}

	batch, err := EncodeBatch(b, h, p, 2, at, false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, order)

	recs := batch.Slice()
	tokens, err := b.TokenList(recs[1].Handle)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "he", "r", "e"}, tokens)

	require.NoError(t, b.FreeExportedEncodings(batch))
}

func TestEncodeBatch_AllOrNothing(t *testing.T) {
	b, h := newHiBridge(t)

	_, err := b.EncodeStrings(h, []string{"hi", "there", "bad\xff", "hi"}, false)
	require.ErrorIs(t, err, ErrEncoding)
	assert.Contains(t, err.Error(), "input 2")

	st := b.Stats()
	assert.Zero(t, st.Encodings)
	assert.Zero(t, st.Exports.Live)
}

func TestEncodeBatch_InvalidInput(t *testing.T) {
	b, h := newHiBridge(t)

	_, err := EncodeBatch(b, h, []string{"a"}, -1, nil, false)
	require.ErrorIs(t, err, ErrUse)

	bad := func(_ []string, _ int) view.Array[byte] { return view.Array[byte]{Len: 4} }
	_, err = EncodeBatch(b, h, []string{"a"}, 1, bad, false)
	require.ErrorIs(t, err, ErrUse)

	_, err = b.EncodeStrings(0, []string{"a"}, false)
	require.ErrorIs(t, err, ErrUse)
}

func TestEncodeBatch_Empty(t *testing.T) {
	b, h := newHiBridge(t)

	batch, err := b.EncodeStrings(h, nil, false)
	require.NoError(t, err)
	assert.Zero(t, batch.Len)
	require.NoError(t, b.FreeExportedEncodings(batch))
}

func TestEncodeBatch_OwnedByBuffer(t *testing.T) {
	b, h := newHiBridge(t)

	batch, err := b.EncodeStrings(h, []string{"hi"}, false)
	require.NoError(t, err)
	rec := batch.Slice()[0]

	err = b.DestroyEncoding(rec.Handle)
	require.ErrorIs(t, err, ErrUse)

	// the failed destroy left the encoding readable
	ids, err := b.IDs(rec.Handle)
	require.NoError(t, err)
	assert.Equal(t, []uint32{6}, ids.Slice())

	require.NoError(t, b.FreeExportedEncodings(batch))
	_, err = b.IDs(rec.Handle)
	require.ErrorIs(t, err, ErrUse)

	require.ErrorIs(t, b.FreeExportedEncodings(batch), ErrUse)
}

func TestEncodeBatch_SurvivesTokenizerDestroy(t *testing.T) {
	b, h := newHiBridge(t)

	batch, err := b.EncodeStrings(h, []string{"hi there"}, false)
	require.NoError(t, err)
	require.NoError(t, b.DestroyTokenizer(h))

	tokens, err := b.TokenList(batch.Slice()[0].Handle)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "Ġt", "he", "r", "e"}, tokens)
	require.NoError(t, b.FreeExportedEncodings(batch))
}

func TestFreeExportedEncodings_RejectsTextBuffer(t *testing.T) {
	b, h := newHiBridge(t)

	batch, err := b.EncodeStrings(h, []string{"hi"}, false)
	require.NoError(t, err)

	forged := batch
	forged.Cap++
	require.ErrorIs(t, b.FreeExportedEncodings(forged), ErrUse)

	// nothing was released by the rejected call
	assert.Equal(t, 1, b.Stats().Encodings)
	require.NoError(t, b.FreeExportedEncodings(batch))
}

// --- decodeBatch ---

func TestDecodeBatch_MatchesSingleDecode(t *testing.T) {
	b, h := newHiBridge(t)
	inputs := [][]uint32{{6}, {6, 7, 8, 5, 4}, {}, {7, 8}}

	batch, err := b.DecodeSlices(h, inputs, false)
	require.NoError(t, err)
	require.Equal(t, len(inputs), batch.Len)

	for i, buf := range batch.Slice() {
		single := takeText(t, b)(b.Decode(h, inputs[i], false))
		assert.Equal(t, single, string(buf.Slice()), "input %d", i)
	}
	assert.Equal(t, "hi there", string(batch.Slice()[1].Slice()))

	require.NoError(t, b.FreeExportedTextList(batch))
	assert.Zero(t, b.Stats().Exports.Live)
}

func TestDecodeBatch_OuterOnly(t *testing.T) {
	b, h := newHiBridge(t)

	batch, err := b.DecodeSlices(h, [][]uint32{{6}, {7, 8}}, false)
	require.NoError(t, err)
	texts := append([]export.Buffer[byte](nil), batch.Slice()...)

	require.NoError(t, b.FreeExportedTextListOuterOnly(batch))
	assert.Equal(t, 2, b.Stats().Exports.Live)

	// inner buffers stay valid after the outer array is gone
	assert.Equal(t, "hi", string(texts[0].Slice()))
	assert.Equal(t, " the", string(texts[1].Slice()))

	for _, buf := range texts {
		require.NoError(t, b.FreeExportedText(buf))
	}
	assert.Zero(t, b.Stats().Exports.Live)

	require.ErrorIs(t, b.FreeExportedTextListOuterOnly(batch), ErrUse)
}

func TestDecodeBatch_InvalidView(t *testing.T) {
	b, h := newHiBridge(t)

	bad := func(_ [][]uint32, i int) view.Array[uint32] {
		if i == 1 {
			return view.Array[uint32]{Len: 2}
		}
		return view.Of([]uint32{6})
	}
	_, err := DecodeBatch(b, h, [][]uint32{{6}, {6}}, 2, bad, false)
	require.ErrorIs(t, err, ErrUse)
	assert.Zero(t, b.Stats().Exports.Live)
}

func TestDecodeBatch_Empty(t *testing.T) {
	b, h := newHiBridge(t)

	batch, err := b.DecodeSlices(h, nil, false)
	require.NoError(t, err)
	assert.Nil(t, batch.Ptr)
	require.NoError(t, b.FreeExportedTextList(batch))
}
