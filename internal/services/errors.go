package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/quiz-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrQuizNotFound            = errors.New("quiz not found")
	ErrQuestionNotFound        = errors.New("question not found")
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrReportNotFound          = errors.New("performance report not found")
	ErrQuestionInUse           = errors.New("question cannot be deleted - it has recorded responses")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptNotCompleted     = errors.New("attempt is not completed")
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// GenerationStage names the step of question generation that failed
type GenerationStage string

const (
	GenerationStageService GenerationStage = "service"
	GenerationStageExtract GenerationStage = "extract"
	GenerationStageParse   GenerationStage = "parse"
	GenerationStageEmpty   GenerationStage = "empty"
)

// GenerationError aborts quiz creation; nothing is persisted when it is returned
type GenerationError struct {
	Stage GenerationStage `json:"stage"`
	Cause error           `json:"-"`
}

func (ge *GenerationError) Error() string {
	if ge.Cause == nil {
		return fmt.Sprintf("question generation failed at %s", ge.Stage)
	}
	return fmt.Sprintf("question generation failed at %s: %v", ge.Stage, ge.Cause)
}

func (ge *GenerationError) Unwrap() error {
	return ge.Cause
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

// IsUnauthorized checks if error represents a permission failure
func IsUnauthorized(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrQuestionInUse) ||
		errors.Is(err, ErrAttemptAlreadySubmitted) ||
		errors.Is(err, ErrAttemptNotCompleted)
}

// IsGeneration checks if error is a hard question generation failure
func IsGeneration(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
