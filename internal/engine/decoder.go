package engine

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Decoder maps model tokens back to text fragments. The final text is the
// concatenation of the fragments returned by the last decoder in a chain.
type Decoder interface {
	DecodeChain(tokens []string) ([]string, error)
}

// ByteFallback turns runs of <0xXX> tokens back into bytes.
type ByteFallback struct{}

func (ByteFallback) DecodeChain(tokens []string) ([]string, error) {
	out := make([]string, 0, len(tokens))
	var pending []byte
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if utf8.Valid(pending) {
			out = append(out, string(pending))
		} else {
			for range pending {
				out = append(out, "�")
			}
		}
		pending = pending[:0]
	}

	for _, tok := range tokens {
		if b, ok := parseByteToken(tok); ok {
			pending = append(pending, b)
			continue
		}
		flush()
		out = append(out, tok)
	}
	flush()

	return out, nil
}

func parseByteToken(tok string) (byte, bool) {
	if len(tok) != 6 || !strings.HasPrefix(tok, "<0x") || !strings.HasSuffix(tok, ">") {
		return 0, false
	}
	v, err := strconv.ParseUint(tok[3:5], 16, 8)
	if err != nil {
		return 0, false
	}

	return byte(v), true
}

// Fuse joins all tokens into one.
type Fuse struct{}

func (Fuse) DecodeChain(tokens []string) ([]string, error) {
	return []string{strings.Join(tokens, "")}, nil
}

// ReplaceDecoder substitutes Content for Pattern inside each token.
type ReplaceDecoder struct {
	Pattern Pattern
	Content string
}

func (r ReplaceDecoder) DecodeChain(tokens []string) ([]string, error) {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		s, err := r.Pattern.replace(tok, r.Content)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}

	return out, nil
}

// StripDecoder removes up to Start leading and Stop trailing occurrences of
// Content from each token.
type StripDecoder struct {
	Content string
	Start   int
	Stop    int
}

func (s StripDecoder) DecodeChain(tokens []string) ([]string, error) {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		for n := 0; n < s.Start && s.Content != "" && strings.HasPrefix(tok, s.Content); n++ {
			tok = tok[len(s.Content):]
		}
		for n := 0; n < s.Stop && s.Content != "" && strings.HasSuffix(tok, s.Content); n++ {
			tok = tok[:len(tok)-len(s.Content)]
		}
		out[i] = tok
	}

	return out, nil
}

// MetaspaceDecoder turns the space marker back into spaces and drops the
// prefix space of the first token unless the scheme is "never".
type MetaspaceDecoder struct {
	Replacement   string
	PrependScheme string
}

func (m MetaspaceDecoder) DecodeChain(tokens []string) ([]string, error) {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		tok = strings.ReplaceAll(tok, m.Replacement, " ")
		if i == 0 && m.PrependScheme != PrependNever {
			tok = strings.TrimPrefix(tok, " ")
		}
		out[i] = tok
	}

	return out, nil
}

type DecoderSequence []Decoder

func (seq DecoderSequence) DecodeChain(tokens []string) ([]string, error) {
	var err error
	for _, d := range seq {
		tokens, err = d.DecodeChain(tokens)
		if err != nil {
			return nil, err
		}
	}

	return tokens, nil
}
