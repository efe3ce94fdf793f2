package llm

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClient_WithoutAPIKeyIsUnavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	client, err := NewGeminiClient(context.Background(), GeminiConfig{}, logger)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "prompt")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.NoError(t, client.Close())
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("[1,"), genai.Text("2]\n")}},
		}},
	}
	assert.Equal(t, "[1,2]", responseText(resp))
}
