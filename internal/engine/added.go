package engine

import (
	"sort"
	"strings"
)

// AddedToken is a token matched verbatim in the input before the model runs.
type AddedToken struct {
	Content string
	ID      uint32
	Special bool
}

type addedVocab struct {
	byContent map[string]AddedToken
	byID      map[uint32]AddedToken
	// longest first so that overlapping tokens prefer the longer match
	patterns []string
}

func newAddedVocab() *addedVocab {
	return &addedVocab{
		byContent: make(map[string]AddedToken),
		byID:      make(map[uint32]AddedToken),
	}
}

// add registers tok, replacing any earlier token with the same content.
func (a *addedVocab) add(tok AddedToken) {
	if tok.Content == "" {
		return
	}
	if prev, ok := a.byContent[tok.Content]; ok {
		delete(a.byID, prev.ID)
	} else {
		a.patterns = append(a.patterns, tok.Content)
		sort.SliceStable(a.patterns, func(i, j int) bool {
			return len(a.patterns[i]) > len(a.patterns[j])
		})
	}
	a.byContent[tok.Content] = tok
	a.byID[tok.ID] = tok
}

type segment struct {
	text  string
	added *AddedToken
}

// split cuts s around every added token occurrence, scanning left to right.
func (a *addedVocab) split(s string) []segment {
	if len(a.patterns) == 0 {
		return []segment{{text: s}}
	}

	var out []segment
	start := 0
	for i := 0; i < len(s); {
		match := a.matchAt(s[i:])
		if match == "" {
			i++
			continue
		}
		if i > start {
			out = append(out, segment{text: s[start:i]})
		}
		tok := a.byContent[match]
		out = append(out, segment{added: &tok})
		i += len(match)
		start = i
	}
	if start < len(s) {
		out = append(out, segment{text: s[start:]})
	}

	return out
}

func (a *addedVocab) matchAt(s string) string {
	for _, p := range a.patterns {
		if strings.HasPrefix(s, p) {
			return p
		}
	}

	return ""
}

// sortAddedTokens orders tokens by id, then content, so that map-sourced
// token lists register deterministically.
func sortAddedTokens(toks []AddedToken) {
	sort.Slice(toks, func(i, j int) bool {
		if toks[i].ID != toks[j].ID {
			return toks[i].ID < toks[j].ID
		}
		return toks[i].Content < toks[j].Content
	})
}
