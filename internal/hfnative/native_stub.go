//go:build !hftokenizers

package hfnative

import "github.com/example/go-tokenizers/internal/engine"

// Available reports whether the native backend is compiled in.
func Available() bool { return false }

// Engine is a placeholder; every constructor fails with ErrUnavailable.
type Engine struct {
	engine.Engine
}

func FromFile(string) (*Engine, error) { return nil, ErrUnavailable }

func FromJSON([]byte) (*Engine, error) { return nil, ErrUnavailable }

func (e *Engine) Close() {}
