//go:build cgo

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-tokenizers/internal/testutil"
)

func newCTokenizer(t *testing.T) uint64 {
	t.Helper()

	live := lib().b.Stats().Exports.Live
	tok, o := cNewFromConfig([]byte(testutil.HiTokenizerJSON))
	require.Equal(t, statusOK, o.status, o.errText)
	t.Cleanup(func() {
		assert.Equal(t, statusOK, cDestroyTokenizer(tok).status)
		assert.Equal(t, live, lib().b.Stats().Exports.Live, "exports left live")
	})

	return tok
}

func TestCABI_EncodeColumnsTokensDecode(t *testing.T) {
	tok := newCTokenizer(t)

	enc, o := cEncode(tok, "hi there", true)
	require.Equal(t, statusOK, o.status, o.errText)

	ids, o := cColumn(enc, columnIDs)
	require.Equal(t, statusOK, o.status)
	assert.Equal(t, []uint32{9, 6, 7, 8, 5, 4}, ids)

	typeIDs, _ := cColumn(enc, columnTypeIDs)
	special, _ := cColumn(enc, columnSpecialTokensMask)
	attention, _ := cColumn(enc, columnAttentionMask)
	assert.Equal(t, []uint32{0, 0, 0, 0, 0, 0}, typeIDs)
	assert.Equal(t, []uint32{1, 0, 0, 0, 0, 0}, special)
	assert.Equal(t, []uint32{1, 1, 1, 1, 1, 1}, attention)

	tokens, reserved, o := cTokens(enc)
	require.Equal(t, statusOK, o.status)
	assert.Equal(t, 6, reserved)
	assert.Equal(t, []string{"<s>", "hi", "Ġt", "he", "r", "e"}, tokens)

	text, o := cDecode(tok, ids, true)
	require.Equal(t, statusOK, o.status)
	assert.Equal(t, "hi there", text.text())
	length, capacity, typeSize := text.fields()
	assert.Equal(t, 8, length)
	assert.GreaterOrEqual(t, capacity, length)
	assert.Equal(t, 1, typeSize)
	assert.Equal(t, statusOK, text.freeTextWithArgs())
	assert.Equal(t, statusUse, text.freeText())

	require.Equal(t, statusOK, cDestroyEncoding(enc).status)
	o = cDestroyEncoding(enc)
	assert.Equal(t, statusUse, o.status)
	assert.Contains(t, o.errText, "destroyEncoding")
	assert.Equal(t, statusOK, o.errFree)
}

func TestCABI_EmptyInputs(t *testing.T) {
	tok := newCTokenizer(t)

	enc, o := cEncode(tok, "", true)
	require.Equal(t, statusOK, o.status)
	ids, _ := cColumn(enc, columnIDs)
	assert.Equal(t, []uint32{9}, ids)
	require.Equal(t, statusOK, cDestroyEncoding(enc).status)

	text, o := cDecode(tok, nil, true)
	require.Equal(t, statusOK, o.status)
	assert.Empty(t, text.text())
	assert.Equal(t, statusOK, text.freeText())
}

func TestCABI_VocabAndLookup(t *testing.T) {
	tok := newCTokenizer(t)

	n, o := cVocabSize(tok)
	require.Equal(t, statusOK, o.status)
	assert.Equal(t, 10, n)

	n, _ = cVocabSizeWithOptions(tok, false)
	assert.Equal(t, 9, n)

	id, o := cTokenToID(tok, "he")
	require.Equal(t, statusOK, o.status)
	assert.Equal(t, uint32(8), id)

	token, o := cIDToToken(tok, 8)
	require.Equal(t, statusOK, o.status)
	assert.Equal(t, "he", token.text())
	assert.Equal(t, statusOK, token.freeText())

	_, o = cIDToToken(tok, 999)
	assert.Equal(t, statusLookup, o.status)
	assert.NotEmpty(t, o.errText)
	assert.Equal(t, statusOK, o.errFree)

	_, o = cTokenToID(tok, "zz")
	assert.Equal(t, statusLookup, o.status)
}

func TestCABI_Constructors(t *testing.T) {
	tok, o := cNewFromByteLevelBPE(testutil.HiVocab, testutil.HiMerges, `{"<s>":9}`)
	require.Equal(t, statusOK, o.status, o.errText)
	n, _ := cVocabSizeWithOptions(tok, false)
	assert.Equal(t, 9, n)
	require.Equal(t, statusOK, cDestroyTokenizer(tok).status)

	_, o = cNewFromByteLevelBPE(`{"a":0}`, "a b c", "")
	assert.Equal(t, statusConfiguration, o.status)
	assert.NotEmpty(t, o.errText)

	path := testutil.WriteFile(t, "tokenizer.json", []byte(testutil.HiTokenizerJSON))
	tok, o = cNewFromFile(path, uint64(len(path)))
	require.Equal(t, statusOK, o.status, o.errText)
	require.Equal(t, statusOK, cDestroyTokenizer(tok).status)
	assert.Equal(t, statusUse, cDestroyTokenizer(tok).status)

	_, o = cNewFromFile(path, maxInputLen+1)
	assert.Equal(t, statusUse, o.status)
	assert.Contains(t, o.errText, "out of range")

	_, o = cNewFromSentencePiece([]byte("not a model"))
	assert.Equal(t, statusConfiguration, o.status)
}

func TestCABI_InputGuards(t *testing.T) {
	tok := newCTokenizer(t)

	tests := []struct {
		name string
		call func() cOutcome
		want string
	}{
		{"nil text", func() cOutcome { return cEncodeRaw(tok, 3, false) }, "nil input"},
		{"nil out", func() cOutcome { return cEncodeRaw(tok, 0, true) }, "nil out parameter"},
		{"length overflow", func() cOutcome { return cEncodeRaw(tok, 1<<40, false) }, "out of range"},
		{"nil callbacks", func() cOutcome { return cTokensNilCallbacks(0) }, "nil callback"},
		{"nil accessor", func() cOutcome { return cEncodeBatchNilAccessor(tok, 2) }, "nil callback"},
		{"batch overflow", func() cOutcome { return cEncodeBatchNilAccessor(tok, 1<<40) }, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.call()
			assert.Equal(t, statusUse, o.status)
			assert.Contains(t, o.errText, tt.want)
			assert.Equal(t, statusOK, o.errFree)
		})
	}
}

func TestCABI_EncodeBatchMatchesEncode(t *testing.T) {
	tok := newCTokenizer(t)

	records, o := cEncodeBatch(tok, []string{"hi", "hi there"}, false)
	require.Equal(t, statusOK, o.status, o.errText)
	length, capacity, typeSize := records.fields()
	assert.Equal(t, 2, length)
	assert.Equal(t, 2, capacity)
	assert.Equal(t, 16, typeSize)

	recs := records.records()
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].len)
	assert.Equal(t, 5, recs[1].len)

	for i, text := range []string{"hi", "hi there"} {
		enc, o := cEncode(tok, text, false)
		require.Equal(t, statusOK, o.status)
		want, _ := cColumn(enc, columnIDs)
		got, _ := cColumn(recs[i].handle, columnIDs)
		assert.Equal(t, want, got, text)
		require.Equal(t, statusOK, cDestroyEncoding(enc).status)
	}

	assert.Equal(t, statusUse, cDestroyEncoding(recs[0].handle).status)
	assert.Equal(t, statusOK, records.freeEncodings())
	assert.Equal(t, statusUse, records.freeEncodings())

	_, o = cColumn(recs[1].handle, columnIDs)
	assert.Equal(t, statusUse, o.status)
}

func TestCABI_DecodeBatchFrees(t *testing.T) {
	tok := newCTokenizer(t)
	ids := [][]uint32{{6}, {6, 7, 8}, {}}

	texts, o := cDecodeBatch(tok, ids, true)
	require.Equal(t, statusOK, o.status, o.errText)
	inner := texts.inner()
	require.Len(t, inner, 3)
	assert.Equal(t, "hi", inner[0].text())
	assert.Equal(t, "hi the", inner[1].text())
	assert.Empty(t, inner[2].text())

	assert.Equal(t, statusOK, texts.freeTextListOuterOnly())
	for _, text := range inner {
		assert.Equal(t, statusOK, text.freeText())
	}
	assert.Equal(t, statusUse, inner[0].freeText())

	texts, o = cDecodeBatch(tok, ids, true)
	require.Equal(t, statusOK, o.status)
	assert.Equal(t, statusOK, texts.freeTextList())
	assert.Equal(t, statusUse, texts.freeTextList())
}
