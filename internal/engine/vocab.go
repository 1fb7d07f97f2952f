package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Vocab maps token text to id.
type Vocab map[string]uint32

// Merge is one (left, right) merge rule. Its priority is its position in the
// merges list.
type Merge [2]string

// ParseVocab decodes a JSON object of token -> id. Entries whose value is not
// a JSON number are skipped unless strict is set, in which case they are an
// error. Numeric values must be integers in [0, 2^32).
func ParseVocab(data []byte, strict bool) (Vocab, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVocab, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedVocab)
	}

	vocab := make(Vocab, len(raw))
	for tok, value := range raw {
		value = bytes.TrimSpace(value)
		if !isJSONNumber(value) {
			if strict {
				return nil, fmt.Errorf("%w: token %q has non-numeric id %s", ErrMalformedVocab, tok, value)
			}
			continue
		}
		id, err := strconv.ParseUint(string(value), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: token %q has invalid id %s", ErrMalformedVocab, tok, value)
		}
		vocab[tok] = uint32(id)
	}

	return vocab, nil
}

func isJSONNumber(v []byte) bool {
	if len(v) == 0 {
		return false
	}
	c := v[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// ParseMerges reads newline-delimited merge pairs. Lines starting with
// "#version" and blank lines are skipped; every other line must hold exactly
// two whitespace-separated fields.
func ParseMerges(text string) ([]Merge, error) {
	lines := strings.Split(text, "\n")
	merges := make([]Merge, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "#version") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d %q: want 2 fields, got %d", ErrMalformedMerges, i+1, line, len(fields))
		}
		merges = append(merges, Merge{fields[0], fields[1]})
	}

	return merges, nil
}

// inverse builds the id -> token table. On duplicate ids the
// lexicographically smallest token wins so the result is deterministic.
func (v Vocab) inverse() map[uint32]string {
	inv := make(map[uint32]string, len(v))
	for tok, id := range v {
		if prev, ok := inv[id]; ok && prev < tok {
			continue
		}
		inv[id] = tok
	}

	return inv
}
