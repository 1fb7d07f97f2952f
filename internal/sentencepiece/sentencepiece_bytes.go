package sentencepiece

import (
	"fmt"
	"os"
)

// FromBytes loads a SentencePiece model from raw bytes. The encoder only
// exposes a file-path API, so the data is written to a temporary file first.
func FromBytes(data []byte) (*Engine, error) {
	if len(data) == 0 {
		return nil, ErrEmptyModel
	}

	f, err := os.CreateTemp("", "sp-*.model")
	if err != nil {
		return nil, fmt.Errorf("create temp sentencepiece file: %w", err)
	}

	defer func() { _ = os.Remove(f.Name()) }() // best-effort temp file cleanup

	_, err = f.Write(data)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write sentencepiece model bytes: %w", err)
	}

	path := f.Name()

	err = f.Close()
	if err != nil {
		return nil, fmt.Errorf("close sentencepiece temp file: %w", err)
	}

	return FromFile(path)
}
