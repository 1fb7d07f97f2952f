package engine

// PostProcessor adds special tokens around an encoded sequence. Processors
// leave the sequence untouched when addSpecial is false.
type PostProcessor interface {
	Process(tokens []token, addSpecial bool) []token
}

// ByteLevelProcessor only adjusts offsets, which encodings do not carry.
type ByteLevelProcessor struct{}

func (ByteLevelProcessor) Process(tokens []token, _ bool) []token {
	return tokens
}

// SpecialToken is a token inserted by a post-processor.
type SpecialToken struct {
	Token string
	ID    uint32
}

// RobertaProcessing wraps a sequence as CLS ... SEP. BertProcessing has the
// same single-sequence shape.
type RobertaProcessing struct {
	CLS SpecialToken
	SEP SpecialToken
}

type BertProcessing = RobertaProcessing

func (r RobertaProcessing) Process(tokens []token, addSpecial bool) []token {
	if !addSpecial {
		return tokens
	}
	out := make([]token, 0, len(tokens)+2)
	out = append(out, token{id: r.CLS.ID, value: r.CLS.Token, special: true})
	out = append(out, tokens...)
	out = append(out, token{id: r.SEP.ID, value: r.SEP.Token, special: true})

	return out
}

// TemplatePiece is one item of a single-sequence template: either the input
// sequence itself or a named special token.
type TemplatePiece struct {
	Sequence bool
	Special  string
	TypeID   uint32
}

// TemplateSpecial is what a named special token expands to.
type TemplateSpecial struct {
	IDs    []uint32
	Tokens []string
}

type TemplateProcessing struct {
	Single   []TemplatePiece
	Specials map[string]TemplateSpecial
}

func (tp TemplateProcessing) Process(tokens []token, addSpecial bool) []token {
	out := make([]token, 0, len(tokens)+len(tp.Single))
	for _, piece := range tp.Single {
		if piece.Sequence {
			for _, t := range tokens {
				t.typeID = piece.TypeID
				out = append(out, t)
			}
			continue
		}
		if !addSpecial {
			continue
		}
		sp := tp.Specials[piece.Special]
		for i, id := range sp.IDs {
			out = append(out, token{id: id, value: sp.Tokens[i], typeID: piece.TypeID, special: true})
		}
	}

	return out
}

type ProcessorSequence []PostProcessor

func (seq ProcessorSequence) Process(tokens []token, addSpecial bool) []token {
	for _, p := range seq {
		tokens = p.Process(tokens, addSpecial)
	}

	return tokens
}
