package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Pattern is either a literal string or a regular expression. Regular
// expressions use .NET/PCRE syntax (lookaround, \p classes) as found in
// tokenizer.json files.
type Pattern struct {
	literal string
	re      *regexp2.Regexp
}

// LiteralPattern matches s verbatim.
func LiteralPattern(s string) Pattern {
	return Pattern{literal: s}
}

// RegexPattern compiles expr.
func RegexPattern(expr string) (Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile pattern %q: %w", expr, err)
	}

	return Pattern{re: re}, nil
}

// find returns the byte ranges of all non-overlapping, non-empty matches.
func (p Pattern) find(s string) ([][2]int, error) {
	if p.re == nil {
		return findLiteral(s, p.literal), nil
	}

	return findRegex(p.re, s)
}

func findLiteral(s, lit string) [][2]int {
	if lit == "" {
		return nil
	}
	var out [][2]int
	for off := 0; ; {
		i := strings.Index(s[off:], lit)
		if i < 0 {
			return out
		}
		start := off + i
		out = append(out, [2]int{start, start + len(lit)})
		off = start + len(lit)
	}
}

// findRegex converts regexp2's rune positions into byte offsets.
func findRegex(re *regexp2.Regexp, s string) ([][2]int, error) {
	runes := []rune(s)
	offsets := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		offsets[i] = off
		off += utf8.RuneLen(r)
	}
	offsets[len(runes)] = off

	var out [][2]int
	m, err := re.FindRunesMatch(runes)
	for m != nil && err == nil {
		if m.Length > 0 {
			out = append(out, [2]int{offsets[m.Index], offsets[m.Index+m.Length]})
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", re.String(), err)
	}

	return out, nil
}

// replace substitutes content for every match.
func (p Pattern) replace(s, content string) (string, error) {
	matches, err := p.find(s)
	if err != nil || len(matches) == 0 {
		return s, err
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		b.WriteString(content)
		last = m[1]
	}
	b.WriteString(s[last:])

	return b.String(), nil
}

// SplitBehavior controls what happens to the matched delimiters when a
// pre-tokenizer splits a piece.
type SplitBehavior string

const (
	SplitRemoved            SplitBehavior = "Removed"
	SplitIsolated           SplitBehavior = "Isolated"
	SplitMergedWithPrevious SplitBehavior = "MergedWithPrevious"
	SplitMergedWithNext     SplitBehavior = "MergedWithNext"
	SplitContiguous         SplitBehavior = "Contiguous"
)

// ParseSplitBehavior validates a behavior name.
func ParseSplitBehavior(raw string) (SplitBehavior, error) {
	switch b := SplitBehavior(raw); b {
	case SplitRemoved, SplitIsolated, SplitMergedWithPrevious, SplitMergedWithNext, SplitContiguous:
		return b, nil
	default:
		return "", fmt.Errorf("%w: split behavior %q", ErrUnsupported, raw)
	}
}

type span struct {
	start, end int
	match      bool
}

// splitSpans partitions s into the given matches and the gaps between them,
// then applies behavior. Empty spans are dropped.
func splitSpans(s string, matches [][2]int, behavior SplitBehavior, invert bool) []string {
	spans := make([]span, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			spans = append(spans, span{last, m[0], invert})
		}
		spans = append(spans, span{m[0], m[1], !invert})
		last = m[1]
	}
	if last < len(s) {
		spans = append(spans, span{last, len(s), invert})
	}

	var merged []span
	switch behavior {
	case SplitRemoved:
		for _, sp := range spans {
			if !sp.match {
				merged = append(merged, sp)
			}
		}
	case SplitIsolated:
		merged = spans
	case SplitMergedWithPrevious:
		prevMatch := false
		for _, sp := range spans {
			if sp.match && !prevMatch && len(merged) > 0 {
				merged[len(merged)-1].end = sp.end
			} else {
				merged = append(merged, sp)
			}
			prevMatch = sp.match
		}
	case SplitMergedWithNext:
		prevMatch := false
		for i := len(spans) - 1; i >= 0; i-- {
			sp := spans[i]
			if sp.match && !prevMatch && len(merged) > 0 {
				merged[len(merged)-1].start = sp.start
			} else {
				merged = append(merged, sp)
			}
			prevMatch = sp.match
		}
		for i, j := 0, len(merged)-1; i < j; i, j = i+1, j-1 {
			merged[i], merged[j] = merged[j], merged[i]
		}
	case SplitContiguous:
		prevMatch := false
		for _, sp := range spans {
			if sp.match == prevMatch && len(merged) > 0 {
				merged[len(merged)-1].end = sp.end
			} else {
				merged = append(merged, sp)
			}
			prevMatch = sp.match
		}
	}

	out := make([]string, 0, len(merged))
	for _, sp := range merged {
		if sp.end > sp.start {
			out = append(out, s[sp.start:sp.end])
		}
	}

	return out
}
