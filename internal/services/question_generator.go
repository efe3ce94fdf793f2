package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

type GenerationRequest struct {
	Topic           string
	Count           int
	QuestionType    models.QuestionType
	DifficultyLevel models.DifficultyLevel
}

// QuestionDraft is a generated question before it is attached to a quiz
type QuestionDraft struct {
	QuestionText    string
	QuestionType    models.QuestionType
	Options         []string
	CorrectAnswer   string
	Explanation     *string
	DifficultyLevel models.DifficultyLevel
	Topic           string
	ImageURL        *string
	CodeSnippet     *string
}

// QuestionGenerator turns a topic into question drafts using a generative text service
type QuestionGenerator struct {
	llm    llm.TextGenerator
	logger *slog.Logger
}

func NewQuestionGenerator(generator llm.TextGenerator, logger *slog.Logger) *QuestionGenerator {
	return &QuestionGenerator{llm: generator, logger: logger}
}

// Generate returns at most req.Count drafts. Every failure is a *GenerationError.
func (g *QuestionGenerator) Generate(ctx context.Context, req GenerationRequest) ([]QuestionDraft, error) {
	raw, err := g.llm.Complete(ctx, BuildGenerationPrompt(req))
	if err != nil {
		return nil, &GenerationError{Stage: GenerationStageService, Cause: err}
	}

	items, err := llm.DecodeArray[generatedQuestion](raw)
	if err != nil {
		stage := GenerationStageParse
		if errors.Is(err, llm.ErrNoJSON) {
			stage = GenerationStageExtract
		}
		return nil, &GenerationError{Stage: stage, Cause: err}
	}

	drafts := make([]QuestionDraft, 0, len(items))
	for i, item := range items {
		draft, ok := item.normalize(req)
		if !ok {
			g.logger.Warn("Dropping malformed generated question", "index", i, "question_type", req.QuestionType)
			continue
		}
		drafts = append(drafts, draft)
	}

	if len(drafts) == 0 {
		return nil, &GenerationError{Stage: GenerationStageEmpty, Cause: fmt.Errorf("no usable questions in %d generated items", len(items))}
	}
	if len(drafts) > req.Count {
		drafts = drafts[:req.Count]
	}
	if len(drafts) < req.Count {
		g.logger.Warn("Generated fewer questions than requested", "requested", req.Count, "generated", len(drafts))
	}

	return drafts, nil
}

// generatedQuestion is the model's output shape. Fields the model does not own are absent.
type generatedQuestion struct {
	QuestionText  looseString   `json:"questionText"`
	Options       []looseString `json:"options"`
	CorrectAnswer looseString   `json:"correctAnswer"`
	Explanation   *looseString  `json:"explanation"`
	ImageURL      *looseString  `json:"imageUrl"`
	CodeSnippet   *looseString  `json:"codeSnippet"`
}

func (q generatedQuestion) normalize(req GenerationRequest) (QuestionDraft, bool) {
	draft := QuestionDraft{
		QuestionText:    strings.TrimSpace(string(q.QuestionText)),
		QuestionType:    req.QuestionType,
		Options:         []string{},
		CorrectAnswer:   strings.TrimSpace(string(q.CorrectAnswer)),
		Explanation:     q.Explanation.ptr(),
		DifficultyLevel: req.DifficultyLevel,
		Topic:           req.Topic,
		ImageURL:        q.ImageURL.ptr(),
		CodeSnippet:     q.CodeSnippet.ptr(),
	}
	for _, opt := range q.Options {
		if s := strings.TrimSpace(string(opt)); s != "" {
			draft.Options = append(draft.Options, s)
		}
	}

	if draft.QuestionText == "" || draft.CorrectAnswer == "" {
		return QuestionDraft{}, false
	}

	switch req.QuestionType {
	case models.QuestionTypeTrueFalse:
		if len(draft.Options) == 0 {
			draft.Options = []string{"True", "False"}
		}
	case models.QuestionTypeShortAnswer, models.QuestionTypeCodeChallenge:
		draft.Options = []string{}
	}

	// exact-match grading needs the correct answer spelled as one of the options
	if req.QuestionType.IsExactMatch() && len(draft.Options) > 0 {
		matched, ok := matchOption(draft.Options, draft.CorrectAnswer)
		if !ok {
			return QuestionDraft{}, false
		}
		draft.CorrectAnswer = matched
	}

	return draft, true
}

func matchOption(options []string, answer string) (string, bool) {
	for _, opt := range options {
		if opt == answer {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.EqualFold(opt, answer) {
			return opt, true
		}
	}
	return "", false
}

// looseString accepts JSON strings, numbers and booleans
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*s = ""
	case bool:
		if val {
			*s = "True"
		} else {
			*s = "False"
		}
	case float64:
		*s = looseString(strings.TrimSuffix(fmt.Sprintf("%g", val), ".0"))
	default:
		return fmt.Errorf("expected a string, got %T", v)
	}
	return nil
}

func (s *looseString) ptr() *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(*s))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
