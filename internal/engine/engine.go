// Package engine implements the tokenization engine behind the boundary: a
// byte-level BPE pipeline configured either from loose vocab/merges files or
// from a serialized tokenizer.json document.
package engine

import "errors"

var (
	// ErrInvalidUTF8 is returned when input text is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("input text is not valid UTF-8")
	// ErrMalformedVocab is returned for a vocabulary document that is not a
	// JSON object of token -> id entries.
	ErrMalformedVocab = errors.New("malformed vocabulary")
	// ErrMalformedMerges is returned for a merges line that does not hold
	// exactly two fields.
	ErrMalformedMerges = errors.New("malformed merges")
	// ErrNotInVocab is returned when a merge rule or the unknown token
	// references a token the vocabulary does not contain.
	ErrNotInVocab = errors.New("token not in vocabulary")
	// ErrUnsupported is returned for tokenizer.json components this engine
	// does not implement.
	ErrUnsupported = errors.New("unsupported tokenizer component")
)

// Engine is the tokenization engine consumed by the boundary layer.
// Implementations perform no locking; a single Engine must not be used from
// several goroutines at once.
type Engine interface {
	// Encode tokenizes text. addSpecial enables post-processor templates.
	Encode(text string, addSpecial bool) (*Encoding, error)
	// Decode joins ids back into text. Unknown ids are skipped.
	Decode(ids []uint32, skipSpecial bool) (string, error)
	// VocabSize reports the model vocabulary size, optionally counting
	// added tokens that the model vocabulary does not already hold.
	VocabSize(withAdded bool) int
	IDToToken(id uint32) (string, bool)
	TokenToID(token string) (uint32, bool)
}

// Encoding is the result of tokenizing one text. All slices have equal length.
type Encoding struct {
	IDs               []uint32
	TypeIDs           []uint32
	Tokens            []string
	SpecialTokensMask []uint32
	AttentionMask     []uint32
}

// Len returns the number of tokens.
func (e *Encoding) Len() int {
	return len(e.IDs)
}

// token is one element of an encoding under construction.
type token struct {
	id      uint32
	value   string
	typeID  uint32
	special bool
}

func newEncoding(tokens []token) *Encoding {
	n := len(tokens)
	enc := &Encoding{
		IDs:               make([]uint32, n),
		TypeIDs:           make([]uint32, n),
		Tokens:            make([]string, n),
		SpecialTokensMask: make([]uint32, n),
		AttentionMask:     make([]uint32, n),
	}
	for i, t := range tokens {
		enc.IDs[i] = t.id
		enc.TypeIDs[i] = t.typeID
		enc.Tokens[i] = t.value
		enc.AttentionMask[i] = 1
		if t.special {
			enc.SpecialTokensMask[i] = 1
		}
	}

	return enc
}
