// Package llm holds the generative text service contract used by the quiz
// engines and the helpers that pull structured JSON out of free-form model output.
package llm

import (
	"context"
	"errors"
)

var (
	ErrUnavailable   = errors.New("generative text service unavailable")
	ErrEmptyResponse = errors.New("generative text service returned no text")
)

// TextGenerator sends a prompt to a generative language service and returns raw text.
// Implementations may fail or be slow; callers never assume the text is well-formed.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
