package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const robertaJSON = `{
  "version": "1.0",
  "truncation": null,
  "padding": null,
  "added_tokens": [
    {"id": 0, "content": "<s>", "special": true},
    {"id": 1, "content": "</s>", "special": true}
  ],
  "normalizer": {"type": "Sequence", "normalizers": [{"type": "NFC"}, {"type": "Lowercase"}]},
  "pre_tokenizer": {"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": true, "use_regex": true},
  "post_processor": {"type": "RobertaProcessing", "sep": ["</s>", 1], "cls": ["<s>", 0], "trim_offsets": true, "add_prefix_space": false},
  "decoder": {"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": true, "use_regex": true},
  "model": {
    "type": "BPE",
    "dropout": null,
    "unk_token": null,
    "vocab": {"<s>": 0, "</s>": 1, "h": 2, "i": 3, "Ġ": 4, "t": 5, "e": 6, "r": 7, "hi": 8, "Ġt": 9, "he": 10, "Ġthe": 11, "Ġth": 12},
    "merges": ["h i", ["Ġ", "t"], "h e", "Ġt h", "Ġth e"]
  }
}`

const templateJSON = `{
  "added_tokens": [{"id": 3, "content": "[CLS]", "special": true}],
  "pre_tokenizer": {"type": "Whitespace"},
  "post_processor": {
    "type": "TemplateProcessing",
    "single": [{"SpecialToken": {"id": "[CLS]", "type_id": 0}}, {"Sequence": {"id": "A", "type_id": 1}}],
    "special_tokens": {"[CLS]": {"id": "[CLS]", "ids": [3], "tokens": ["[CLS]"]}}
  },
  "model": {"type": "BPE", "vocab": {"a": 0, "b": 1, "ab": 2}, "merges": [["a", "b"]]}
}`

// --- FromJSON ---

func TestFromJSON_RobertaPipeline(t *testing.T) {
	tok, err := FromJSON([]byte(robertaJSON), Options{})
	require.NoError(t, err)

	enc, err := tok.Encode("Hi There", true)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 8, 9, 10, 7, 6, 1}, enc.IDs)
	assert.Equal(t, []string{"<s>", "hi", "Ġt", "he", "r", "e", "</s>"}, enc.Tokens)
	assert.Equal(t, []uint32{1, 0, 0, 0, 0, 0, 1}, enc.SpecialTokensMask)

	text, err := tok.Decode(enc.IDs, true)
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)

	text, err = tok.Decode(enc.IDs, false)
	require.NoError(t, err)
	assert.Equal(t, "<s>hi there</s>", text)
}

func TestFromJSON_NoSpecialTokensWhenDisabled(t *testing.T) {
	tok, err := FromJSON([]byte(robertaJSON), Options{})
	require.NoError(t, err)

	enc, err := tok.Encode("<s>hi", false)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 8}, enc.IDs)
	assert.Equal(t, []uint32{1, 0}, enc.SpecialTokensMask)
	assert.Equal(t, 13, tok.VocabSize(false))
	assert.Equal(t, 13, tok.VocabSize(true))
}

func TestFromJSON_TemplateProcessing(t *testing.T) {
	tok, err := FromJSON([]byte(templateJSON), Options{})
	require.NoError(t, err)

	enc, err := tok.Encode("ab b", true)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 2, 1}, enc.IDs)
	assert.Equal(t, []uint32{0, 1, 1}, enc.TypeIDs)
	assert.Equal(t, []uint32{1, 0, 0}, enc.SpecialTokensMask)

	text, err := tok.Decode(enc.IDs, false)
	require.NoError(t, err)
	assert.Equal(t, "[CLS] ab b", text)

	text, err = tok.Decode(enc.IDs, true)
	require.NoError(t, err)
	assert.Equal(t, "ab b", text)

	assert.Equal(t, 3, tok.VocabSize(false))
	assert.Equal(t, 4, tok.VocabSize(true))
}

func TestFromJSON_Unsupported(t *testing.T) {
	docs := []string{
		`{"model": {"type": "WordPiece", "vocab": {"a": 0}}}`,
		`{"normalizer": {"type": "BertNormalizer"}, "model": {"type": "BPE", "vocab": {"a": 0}, "merges": []}}`,
		`{"pre_tokenizer": {"type": "Split", "pattern": {"String": " "}, "behavior": "Sideways"}, "model": {"type": "BPE", "vocab": {"a": 0}, "merges": []}}`,
		`{"decoder": {"type": "CTC"}, "model": {"type": "BPE", "vocab": {"a": 0}, "merges": []}}`,
	}
	for _, doc := range docs {
		_, err := FromJSON([]byte(doc), Options{})
		assert.ErrorIs(t, err, ErrUnsupported, doc)
	}
}

func TestFromJSON_Malformed(t *testing.T) {
	_, err := FromJSON([]byte(`{"model": `), Options{})
	require.Error(t, err)

	_, err = FromJSON([]byte(`{"model": {"type": "BPE", "vocab": {"a": 0, "b": 1, "ab": 2}, "merges": ["a b c"]}}`), Options{})
	require.ErrorIs(t, err, ErrMalformedMerges)

	_, err = FromJSON([]byte(`{"model": {"type": "BPE", "merges": []}}`), Options{})
	require.ErrorIs(t, err, ErrMalformedVocab)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte(templateJSON), 0o644))

	tok, err := FromFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, tok.VocabSize(true))

	_, err = FromFile("", Options{})
	require.ErrorIs(t, err, ErrEmptyPath)

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.json"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFromJSON_MetaspacePipeline(t *testing.T) {
	doc := `{
	  "normalizer": {"type": "Sequence", "normalizers": [{"type": "Prepend", "prepend": "▁"}, {"type": "Replace", "pattern": {"String": " "}, "content": "▁"}]},
	  "decoder": {"type": "Sequence", "decoders": [
	    {"type": "Replace", "pattern": {"String": "▁"}, "content": " "},
	    {"type": "ByteFallback"},
	    {"type": "Fuse"},
	    {"type": "Strip", "content": " ", "start": 1, "stop": 0}
	  ]},
	  "model": {"type": "BPE", "unk_token": "<unk>", "byte_fallback": true, "fuse_unk": true,
	    "vocab": {"<unk>": 0, "▁": 1, "a": 2, "b": 3, "▁a": 4, "▁ab": 5},
	    "merges": ["▁ a", "▁a b"]}
	}`
	tok, err := FromJSON([]byte(doc), Options{})
	require.NoError(t, err)

	enc, err := tok.Encode("ab a", false)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 4}, enc.IDs)

	text, err := tok.Decode(enc.IDs, false)
	require.NoError(t, err)
	assert.Equal(t, "ab a", text)
}
