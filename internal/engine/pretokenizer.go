package engine

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// PreTokenizer splits normalized text into the pieces the model encodes
// independently.
type PreTokenizer interface {
	PreTokenize(pieces []string) ([]string, error)
}

var (
	whitespaceWords  = regexp2.MustCompile(`\w+|[^\w\s]+`, regexp2.None)
	digitRuns        = regexp2.MustCompile(`\p{N}+`, regexp2.None)
	individualDigits = regexp2.MustCompile(`\p{N}`, regexp2.None)
)

func eachPiece(pieces []string, fn func(string) ([]string, error)) ([]string, error) {
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		split, err := fn(p)
		if err != nil {
			return nil, err
		}
		out = append(out, split...)
	}

	return out, nil
}

// Split cuts pieces on a pattern.
type Split struct {
	Pattern  Pattern
	Behavior SplitBehavior
	Invert   bool
}

func (s Split) PreTokenize(pieces []string) ([]string, error) {
	return eachPiece(pieces, func(p string) ([]string, error) {
		matches, err := s.Pattern.find(p)
		if err != nil {
			return nil, err
		}
		return splitSpans(p, matches, s.Behavior, s.Invert), nil
	})
}

// Whitespace keeps runs of word characters and runs of punctuation.
type Whitespace struct{}

func (Whitespace) PreTokenize(pieces []string) ([]string, error) {
	return eachPiece(pieces, func(p string) ([]string, error) {
		matches, err := findRegex(whitespaceWords, p)
		if err != nil {
			return nil, err
		}
		return splitSpans(p, matches, SplitRemoved, true), nil
	})
}

// WhitespaceSplit splits on whitespace only.
type WhitespaceSplit struct{}

func (WhitespaceSplit) PreTokenize(pieces []string) ([]string, error) {
	return eachPiece(pieces, func(p string) ([]string, error) {
		return strings.Fields(p), nil
	})
}

// Digits isolates numbers, one digit per piece when Individual is set.
type Digits struct {
	Individual bool
}

func (d Digits) PreTokenize(pieces []string) ([]string, error) {
	re := digitRuns
	if d.Individual {
		re = individualDigits
	}

	return eachPiece(pieces, func(p string) ([]string, error) {
		matches, err := findRegex(re, p)
		if err != nil {
			return nil, err
		}
		return splitSpans(p, matches, SplitIsolated, false), nil
	})
}

// Prepend schemes shared by the Metaspace pre-tokenizer and decoder.
const (
	PrependAlways = "always"
	PrependFirst  = "first"
	PrependNever  = "never"
)

// Metaspace replaces spaces with a visible marker, optionally prefixing it,
// and splits in front of each marker when Split is set.
type Metaspace struct {
	Replacement   string
	PrependScheme string
	Split         bool
}

func (m Metaspace) PreTokenize(pieces []string) ([]string, error) {
	out := make([]string, 0, len(pieces))
	for i, p := range pieces {
		p = strings.ReplaceAll(p, " ", m.Replacement)
		prepend := m.PrependScheme == PrependAlways || (m.PrependScheme == PrependFirst && i == 0)
		if prepend && !strings.HasPrefix(p, m.Replacement) {
			p = m.Replacement + p
		}
		if !m.Split {
			out = append(out, p)
			continue
		}
		out = append(out, splitSpans(p, findLiteral(p, m.Replacement), SplitMergedWithNext, false)...)
	}

	return out, nil
}

// PreTokenizerSequence applies each pre-tokenizer to the output of the last.
type PreTokenizerSequence []PreTokenizer

func (s PreTokenizerSequence) PreTokenize(pieces []string) ([]string, error) {
	var err error
	for _, pt := range s {
		pieces, err = pt.PreTokenize(pieces)
		if err != nil {
			return nil, err
		}
	}

	return pieces, nil
}
