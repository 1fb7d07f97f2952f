package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// gpt2Split is the GPT-2 word splitting expression.
var gpt2Split = regexp2.MustCompile(
	`'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`,
	regexp2.None,
)

// byteToRune and runeToByte implement the reversible GPT-2 byte alphabet:
// printable Latin-1 bytes map to themselves, the rest are shifted to U+0100+.
var byteToRune, runeToByte = buildByteAlphabet()

func buildByteAlphabet() ([256]rune, map[rune]byte) {
	var b2r [256]rune
	r2b := make(map[rune]byte, 256)

	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	next := rune(256)
	for b := 0; b < 256; b++ {
		r := rune(b)
		if !printable(b) {
			r = next
			next++
		}
		b2r[b] = r
		r2b[r] = byte(b)
	}

	return b2r, r2b
}

// byteLevelEncode maps every byte of s onto the byte alphabet.
func byteLevelEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		b.WriteRune(byteToRune[s[i]])
	}

	return b.String()
}

// byteLevelDecode reverses byteLevelEncode. A token holding a rune outside
// the alphabet is passed through as raw bytes.
func byteLevelDecode(tokens []string) []byte {
	var out []byte
	for _, tok := range tokens {
		start := len(out)
		ok := true
		for _, r := range tok {
			b, found := runeToByte[r]
			if !found {
				ok = false
				break
			}
			out = append(out, b)
		}
		if !ok {
			out = append(out[:start], tok...)
		}
	}

	return out
}

// lossyString converts b to a string, replacing each invalid byte with U+FFFD.
func lossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}

	return sb.String()
}

// ByteLevel splits text GPT-2 style and maps every byte onto the byte
// alphabet. TrimOffsets is carried for configuration fidelity; encodings do
// not expose offsets so it has no effect.
type ByteLevel struct {
	AddPrefixSpace bool
	TrimOffsets    bool
	UseRegex       bool
}

func (bl ByteLevel) PreTokenize(pieces []string) ([]string, error) {
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if bl.AddPrefixSpace && !strings.HasPrefix(p, " ") {
			p = " " + p
		}
		if !bl.UseRegex {
			out = append(out, byteLevelEncode(p))
			continue
		}
		matches, err := findRegex(gpt2Split, p)
		if err != nil {
			return nil, err
		}
		for _, w := range splitSpans(p, matches, SplitIsolated, false) {
			out = append(out, byteLevelEncode(w))
		}
	}

	return out, nil
}

// ByteLevelDecoder turns byte-alphabet tokens back into text.
type ByteLevelDecoder struct{}

func (ByteLevelDecoder) DecodeChain(tokens []string) ([]string, error) {
	return []string{lossyString(byteLevelDecode(tokens))}, nil
}
