package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// CreateQuiz generates and stores a new quiz
// POST /api/v1/quizzes
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request format", err, err.Error())
		return
	}

	h.LogRequest(c, "Creating quiz",
		"question_type", req.QuestionType,
		"difficulty_level", req.DifficultyLevel,
		"count", req.Count)

	quiz, err := h.quizService.Create(c.Request.Context(), &req, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz returns a quiz with its questions
// GET /api/v1/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ListCourseQuizzes pages through the quizzes of a course
// GET /api/v1/courses/:id/quizzes
func (h *QuizHandler) ListCourseQuizzes(c *gin.Context) {
	courseID := ParseStringIDParam(c, "id")
	if courseID == "" {
		return
	}

	limit, offset := parsePage(c)
	filters := repositories.QuizFilters{
		Limit:     limit,
		Offset:    offset,
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	result, err := h.quizService.ListByCourse(c.Request.Context(), courseID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListQuestions GET /api/v1/quizzes/:id/questions
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	questions, err := h.quizService.ListQuestions(c.Request.Context(), quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": questions,
		"total":     len(questions),
	})
}

// AddQuestion POST /api/v1/quizzes/:id/questions
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request format", err, err.Error())
		return
	}

	question, err := h.quizService.AddQuestion(c.Request.Context(), quizID, &req, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion PUT /api/v1/questions/:id
func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	questionID := ParseStringIDParam(c, "id")
	if questionID == "" {
		return
	}

	var req services.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request format", err, err.Error())
		return
	}

	question, err := h.quizService.UpdateQuestion(c.Request.Context(), questionID, &req, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion DELETE /api/v1/questions/:id
func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	questionID := ParseStringIDParam(c, "id")
	if questionID == "" {
		return
	}

	if err := h.quizService.DeleteQuestion(c.Request.Context(), questionID, currentUserID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
