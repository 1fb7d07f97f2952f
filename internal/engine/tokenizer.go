package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Tokenizer is the full pipeline: added-token matching, normalization,
// pre-tokenization, the BPE model, and post-processing. Decoding runs the
// decoder chain over the token strings.
type Tokenizer struct {
	model         *BPE
	added         *addedVocab
	normalizer    Normalizer
	preTokenizer  PreTokenizer
	postProcessor PostProcessor
	decoder       Decoder
}

var _ Engine = (*Tokenizer)(nil)

// Components holds the optional pipeline stages. Nil stages are skipped.
type Components struct {
	Normalizer    Normalizer
	PreTokenizer  PreTokenizer
	PostProcessor PostProcessor
	Decoder       Decoder
	AddedTokens   []AddedToken
}

// New assembles a Tokenizer around model.
func New(model *BPE, c Components) *Tokenizer {
	t := &Tokenizer{
		model:         model,
		added:         newAddedVocab(),
		normalizer:    c.Normalizer,
		preTokenizer:  c.PreTokenizer,
		postProcessor: c.PostProcessor,
		decoder:       c.Decoder,
	}
	for _, tok := range c.AddedTokens {
		t.added.add(tok)
	}

	return t
}

func (t *Tokenizer) Encode(text string, addSpecial bool) (*Encoding, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}

	var tokens []token
	for _, seg := range t.added.split(text) {
		if seg.added != nil {
			tokens = append(tokens, token{id: seg.added.ID, value: seg.added.Content, special: seg.added.Special})
			continue
		}
		encoded, err := t.encodeSegment(seg.text)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, encoded...)
	}

	if t.postProcessor != nil {
		tokens = t.postProcessor.Process(tokens, addSpecial)
	}

	return newEncoding(tokens), nil
}

func (t *Tokenizer) encodeSegment(s string) ([]token, error) {
	var err error
	if t.normalizer != nil {
		s, err = t.normalizer.Normalize(s)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
	}

	pieces := []string{s}
	if t.preTokenizer != nil {
		pieces, err = t.preTokenizer.PreTokenize(pieces)
		if err != nil {
			return nil, fmt.Errorf("pre-tokenize: %w", err)
		}
	}

	var out []token
	for _, p := range pieces {
		if p == "" {
			continue
		}
		out = append(out, t.model.tokenize(p)...)
	}

	return out, nil
}

func (t *Tokenizer) Decode(ids []uint32, skipSpecial bool) (string, error) {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if a, ok := t.added.byID[id]; ok {
			if skipSpecial && a.Special {
				continue
			}
			tokens = append(tokens, a.Content)
			continue
		}
		if s, ok := t.model.idToToken(id); ok {
			tokens = append(tokens, s)
		}
	}

	if t.decoder == nil {
		return strings.Join(tokens, " "), nil
	}
	parts, err := t.decoder.DecodeChain(tokens)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	return strings.Join(parts, ""), nil
}

func (t *Tokenizer) VocabSize(withAdded bool) int {
	n := t.model.size()
	if !withAdded {
		return n
	}
	for content := range t.added.byContent {
		if _, ok := t.model.tokenToID(content); !ok {
			n++
		}
	}

	return n
}

func (t *Tokenizer) IDToToken(id uint32) (string, bool) {
	if a, ok := t.added.byID[id]; ok {
		return a.Content, true
	}

	return t.model.idToToken(id)
}

func (t *Tokenizer) TokenToID(tok string) (uint32, bool) {
	if a, ok := t.added.byContent[tok]; ok {
		return a.ID, true
	}

	return t.model.tokenToID(tok)
}

// Options tunes how loose vocabulary files are parsed.
type Options struct {
	// Strict rejects vocabulary entries whose id is not a number instead of
	// skipping them.
	Strict bool
}

// NewByteLevelBPE builds a GPT-2 style tokenizer from a vocab.json document,
// a merges.txt document and an added-tokens JSON object. Added tokens are
// matched verbatim in the input, take precedence over the vocabulary in
// id/token lookups and may appear in merges, but are not counted by
// VocabSize(false). The byte-level pre-tokenizer and decoder run with prefix
// space, offset trimming and regex splitting all disabled.
func NewByteLevelBPE(vocabJSON []byte, mergesText string, addedJSON []byte, opts Options) (*Tokenizer, error) {
	vocab, err := ParseVocab(vocabJSON, opts.Strict)
	if err != nil {
		return nil, fmt.Errorf("parse vocab: %w", err)
	}

	added := Vocab{}
	if strings.TrimSpace(string(addedJSON)) != "" {
		added, err = ParseVocab(addedJSON, opts.Strict)
		if err != nil {
			return nil, fmt.Errorf("parse added tokens: %w", err)
		}
	}

	merges, err := ParseMerges(mergesText)
	if err != nil {
		return nil, fmt.Errorf("parse merges: %w", err)
	}

	model, err := NewBPE(BPEConfig{Vocab: vocab, Merges: merges, Extra: added})
	if err != nil {
		return nil, err
	}

	addedTokens := make([]AddedToken, 0, len(added))
	for content, id := range added {
		addedTokens = append(addedTokens, AddedToken{Content: content, ID: id})
	}
	sortAddedTokens(addedTokens)

	return New(model, Components{
		PreTokenizer: ByteLevel{},
		Decoder:      ByteLevelDecoder{},
		AddedTokens:  addedTokens,
	}), nil
}
