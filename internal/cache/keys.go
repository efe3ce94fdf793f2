package cache

import "fmt"

const quizKeyPrefix = "quiz:"

// QuizKey is the cache key of a quiz with its questions
func QuizKey(quizID string) string {
	return fmt.Sprintf("%s%s:full", quizKeyPrefix, quizID)
}

// QuizPattern matches every cache entry of a quiz
func QuizPattern(quizID string) string {
	return fmt.Sprintf("%s%s:*", quizKeyPrefix, quizID)
}
