// Package sentencepiece adapts a serialized SentencePiece model to the
// engine.Engine interface. Segmentation runs in the pure-Go UNIGRAM encoder;
// the id and piece tables are read from the model proto directly.
package sentencepiece

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"

	"github.com/example/go-tokenizers/internal/engine"
)

var (
	// ErrEmptyPath is returned when FromFile is called with an empty path.
	ErrEmptyPath = errors.New("sentencepiece model path must not be empty")
	// ErrEmptyModel is returned for empty model data or a model without pieces.
	ErrEmptyModel = errors.New("sentencepiece model has no pieces")
)

// unknownSurface is how an unknown piece reads back after decoding.
const unknownSurface = " ⁇ "

const wordBoundary = "▁"

type pieceKind uint8

const (
	pieceNormal pieceKind = iota
	pieceUnknown
	pieceControl
	pieceByte
)

type piece struct {
	text string
	kind pieceKind
	raw  byte
}

// Engine implements engine.Engine for a SentencePiece model.
type Engine struct {
	proc   gosp.Sentencepiece
	pieces []piece
	ids    map[string]uint32
}

var _ engine.Engine = (*Engine)(nil)

// FromFile loads a SentencePiece model from path.
func FromFile(path string) (*Engine, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sentencepiece model %q: %w", path, err)
	}

	var model gosp.ModelProto
	if err := proto.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("unmarshal sentencepiece model %q: %w", path, err)
	}

	proc, err := gosp.NewSentencepieceFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %q: %w", path, err)
	}

	return newEngine(proc, &model)
}

func newEngine(proc gosp.Sentencepiece, model *gosp.ModelProto) (*Engine, error) {
	src := model.GetPieces()
	if len(src) == 0 {
		return nil, ErrEmptyModel
	}

	e := &Engine{
		proc:   proc,
		pieces: make([]piece, len(src)),
		ids:    make(map[string]uint32, len(src)),
	}
	for i, p := range src {
		pc := piece{text: p.GetPiece()}
		switch p.GetType() {
		case gosp.ModelProto_SentencePiece_UNKNOWN:
			pc.kind = pieceUnknown
		case gosp.ModelProto_SentencePiece_CONTROL:
			pc.kind = pieceControl
		case gosp.ModelProto_SentencePiece_NORMAL, gosp.ModelProto_SentencePiece_USER_DEFINED:
		default:
			if b, ok := parseBytePiece(pc.text); ok {
				pc.kind = pieceByte
				pc.raw = b
			}
		}
		e.pieces[i] = pc
		if _, dup := e.ids[pc.text]; !dup {
			e.ids[pc.text] = uint32(i)
		}
	}

	return e, nil
}

// parseBytePiece recognizes the <0xNN> spelling of byte-fallback pieces.
func parseBytePiece(s string) (byte, bool) {
	if len(s) != 6 || !strings.HasPrefix(s, "<0x") || s[5] != '>' {
		return 0, false
	}
	v, err := strconv.ParseUint(s[3:5], 16, 8)
	if err != nil {
		return 0, false
	}

	return byte(v), true
}

// Encode tokenizes text. SentencePiece models carry no post-processor, so
// addSpecial has no effect.
func (e *Engine) Encode(text string, _ bool) (*engine.Encoding, error) {
	if !utf8.ValidString(text) {
		return nil, engine.ErrInvalidUTF8
	}

	var raw []int32
	if text != "" {
		for _, id := range e.proc.TokenizeToIDs(text) {
			raw = append(raw, int32(id))
		}
	}

	n := len(raw)
	enc := &engine.Encoding{
		IDs:               make([]uint32, n),
		TypeIDs:           make([]uint32, n),
		Tokens:            make([]string, n),
		SpecialTokensMask: make([]uint32, n),
		AttentionMask:     make([]uint32, n),
	}
	for i, id := range raw {
		enc.IDs[i] = uint32(id)
		enc.AttentionMask[i] = 1
		if int(id) >= 0 && int(id) < len(e.pieces) {
			enc.Tokens[i] = e.pieces[id].text
			if e.pieces[id].kind == pieceControl {
				enc.SpecialTokensMask[i] = 1
			}
		}
	}

	return enc, nil
}

// Decode joins pieces back into text. Control pieces never render; ids
// outside the model are skipped.
func (e *Engine) Decode(ids []uint32, _ bool) (string, error) {
	var (
		sb    strings.Builder
		bytes []byte
	)
	flush := func() {
		if len(bytes) > 0 {
			sb.WriteString(strings.ToValidUTF8(string(bytes), "�"))
			bytes = bytes[:0]
		}
	}

	for _, id := range ids {
		if int(id) >= len(e.pieces) {
			continue
		}
		p := e.pieces[id]
		if p.kind == pieceByte {
			bytes = append(bytes, p.raw)
			continue
		}
		flush()
		switch p.kind {
		case pieceControl:
		case pieceUnknown:
			sb.WriteString(unknownSurface)
		default:
			sb.WriteString(p.text)
		}
	}
	flush()

	out := strings.ReplaceAll(sb.String(), wordBoundary, " ")

	return strings.TrimPrefix(out, " "), nil
}

// VocabSize reports the number of pieces. Every piece belongs to the model,
// so withAdded does not change the result.
func (e *Engine) VocabSize(bool) int {
	return len(e.pieces)
}

func (e *Engine) IDToToken(id uint32) (string, bool) {
	if int(id) >= len(e.pieces) {
		return "", false
	}

	return e.pieces[id].text, true
}

func (e *Engine) TokenToID(tok string) (uint32, bool) {
	id, ok := e.ids[tok]
	return id, ok
}
