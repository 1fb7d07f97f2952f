// Package hfnative serves tokenizer.json documents through the HuggingFace
// Rust tokenizers library. It is compiled in only with the hftokenizers build
// tag, which also requires libtokenizers.a on the linker path.
package hfnative

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the binary was built without the native
// backend.
var ErrUnavailable = errors.New("native tokenizers backend not compiled in (build with -tags hftokenizers)")

// vocabTables holds the id/token tables of a tokenizer.json document. The
// Rust binding exposes no lookup API, so they are read from the JSON.
type vocabTables struct {
	model   map[string]uint32
	added   map[string]uint32
	special map[uint32]bool
	byID    map[uint32]string
}

func parseVocabTables(data []byte) (*vocabTables, error) {
	var doc struct {
		Model struct {
			Vocab map[string]uint32 `json:"vocab"`
		} `json:"model"`
		AddedTokens []struct {
			ID      uint32 `json:"id"`
			Content string `json:"content"`
			Special bool   `json:"special"`
		} `json:"added_tokens"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tokenizer.json vocabulary: %w", err)
	}

	vt := &vocabTables{
		model:   doc.Model.Vocab,
		added:   make(map[string]uint32, len(doc.AddedTokens)),
		special: make(map[uint32]bool),
		byID:    make(map[uint32]string, len(doc.Model.Vocab)+len(doc.AddedTokens)),
	}
	if vt.model == nil {
		vt.model = map[string]uint32{}
	}
	for tok, id := range vt.model {
		if prev, ok := vt.byID[id]; !ok || tok < prev {
			vt.byID[id] = tok
		}
	}
	for _, at := range doc.AddedTokens {
		vt.added[at.Content] = at.ID
		vt.byID[at.ID] = at.Content
		if at.Special {
			vt.special[at.ID] = true
		}
	}

	return vt, nil
}

func (vt *vocabTables) size(withAdded bool) int {
	n := len(vt.model)
	if !withAdded {
		return n
	}
	for tok := range vt.added {
		if _, ok := vt.model[tok]; !ok {
			n++
		}
	}

	return n
}

func (vt *vocabTables) idToToken(id uint32) (string, bool) {
	tok, ok := vt.byID[id]
	return tok, ok
}

func (vt *vocabTables) tokenToID(tok string) (uint32, bool) {
	if id, ok := vt.added[tok]; ok {
		return id, true
	}
	id, ok := vt.model[tok]

	return id, ok
}
