package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer rewrites text before pre-tokenization.
type Normalizer interface {
	Normalize(s string) (string, error)
}

// UnicodeForm applies one of the four Unicode normalization forms.
type UnicodeForm struct {
	Form norm.Form
}

func (u UnicodeForm) Normalize(s string) (string, error) {
	return u.Form.String(s), nil
}

type Lowercase struct{}

func (Lowercase) Normalize(s string) (string, error) {
	return strings.ToLower(s), nil
}

// Prepend adds Prefix to non-empty text.
type Prepend struct {
	Prefix string
}

func (p Prepend) Normalize(s string) (string, error) {
	if s == "" {
		return s, nil
	}

	return p.Prefix + s, nil
}

type Replace struct {
	Pattern Pattern
	Content string
}

func (r Replace) Normalize(s string) (string, error) {
	return r.Pattern.replace(s, r.Content)
}

type Strip struct {
	Left, Right bool
}

func (st Strip) Normalize(s string) (string, error) {
	if st.Left {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
	}
	if st.Right {
		s = strings.TrimRightFunc(s, unicode.IsSpace)
	}

	return s, nil
}

type NormalizerSequence []Normalizer

func (seq NormalizerSequence) Normalize(s string) (string, error) {
	var err error
	for _, n := range seq {
		s, err = n.Normalize(s)
		if err != nil {
			return "", err
		}
	}

	return s, nil
}
