package services

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

const multipleChoiceFormat = `[
  {
    "questionText": "the question",
    "options": ["option 1", "option 2", "option 3", "option 4"],
    "correctAnswer": "the option text that is correct, copied exactly from options",
    "explanation": "why the answer is correct"
  }
]`

const trueFalseFormat = `[
  {
    "questionText": "a statement to judge",
    "options": ["True", "False"],
    "correctAnswer": "True or False",
    "explanation": "why the answer is correct"
  }
]`

const shortAnswerFormat = `[
  {
    "questionText": "the question",
    "correctAnswer": "a model answer",
    "explanation": "what a good answer must contain"
  }
]`

const codeChallengeFormat = `[
  {
    "questionText": "the programming task",
    "codeSnippet": "optional starter code",
    "correctAnswer": "a reference solution",
    "explanation": "what a correct solution must do"
  }
]`

func outputFormat(questionType models.QuestionType) string {
	switch questionType {
	case models.QuestionTypeTrueFalse:
		return trueFalseFormat
	case models.QuestionTypeShortAnswer:
		return shortAnswerFormat
	case models.QuestionTypeCodeChallenge:
		return codeChallengeFormat
	default:
		return multipleChoiceFormat
	}
}

func questionTypeLabel(questionType models.QuestionType) string {
	switch questionType {
	case models.QuestionTypeMultipleChoice:
		return "multiple-choice questions with exactly 4 options and one correct option"
	case models.QuestionTypeTrueFalse:
		return "true/false questions"
	case models.QuestionTypeShortAnswer:
		return "short-answer questions"
	case models.QuestionTypeCodeChallenge:
		return "coding challenges"
	case models.QuestionTypeImageBased:
		return "image-based multiple-choice questions with exactly 4 options and one correct option"
	}
	return string(questionType)
}

// BuildGenerationPrompt asks for a JSON array of questions in the shape of the requested type
func BuildGenerationPrompt(req GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d %s about the following topic.\n", req.Count, questionTypeLabel(req.QuestionType))
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Difficulty: %s\n\n", strings.ToLower(string(req.DifficultyLevel)))
	if req.QuestionType == models.QuestionTypeImageBased {
		b.WriteString("An image will be attached to each question separately. Write each question so it refers to that image.\n\n")
	}
	b.WriteString("Respond with only a JSON array in exactly this format, with no other text:\n")
	b.WriteString(outputFormat(req.QuestionType))
	return b.String()
}

// BuildEvaluationPrompt asks the model to grade a free-text answer against the reference answer
func BuildEvaluationPrompt(question *models.Question, answer string) string {
	var b strings.Builder
	b.WriteString("You are grading a learner's answer to a quiz question.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question.QuestionText)
	if question.CodeSnippet != nil && *question.CodeSnippet != "" {
		fmt.Fprintf(&b, "Code:\n%s\n", *question.CodeSnippet)
	}
	fmt.Fprintf(&b, "Reference answer: %s\n", question.CorrectAnswer)
	if explanation := question.ExplanationText(); explanation != "" {
		fmt.Fprintf(&b, "Grading notes: %s\n", explanation)
	}
	fmt.Fprintf(&b, "Learner answer: %s\n\n", answer)
	b.WriteString("Judge whether the learner answer is correct. Accept answers that are worded differently but mean the same thing, ")
	b.WriteString("and give partial credit through the score.\n")
	b.WriteString(`Respond with only a JSON object in exactly this format, with no other text:
{
  "isCorrect": true,
  "score": 0.0,
  "feedback": "one or two sentences addressed to the learner"
}
The score must be between 0 and 1.`)
	return b.String()
}

// BuildRecommendationPrompt asks for study recommendations for the weak topics
func BuildRecommendationPrompt(quizTopic string, score int, strengths, weaknesses []string) string {
	var b strings.Builder
	b.WriteString("A learner just finished a quiz")
	if quizTopic != "" {
		fmt.Fprintf(&b, " on %q", quizTopic)
	}
	fmt.Fprintf(&b, " and scored %d%%.\n", score)
	if len(strengths) > 0 {
		fmt.Fprintf(&b, "Strong topics: %s\n", strings.Join(strengths, ", "))
	}
	fmt.Fprintf(&b, "Weak topics: %s\n\n", strings.Join(weaknesses, ", "))
	b.WriteString("Suggest 3 to 5 specific, actionable study recommendations that focus on the weak topics.\n")
	b.WriteString(`Respond with only a JSON array of strings, with no other text:
["recommendation 1", "recommendation 2", "recommendation 3"]`)
	return b.String()
}
