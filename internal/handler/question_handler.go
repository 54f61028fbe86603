package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/validator"
)

// QuestionHandler handles question bank management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// ListQuestions godoc
// GET /api/v1/admin/exams/:exam_id/questions
// Lists all questions of an exam, answers included.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questionService.ListByExam(c.Request.Context(), c.Param("exam_id"))
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// UpsertQuestion godoc
// PUT /api/v1/admin/exams/:exam_id/questions
// Creates a question or replaces it in place. Running sessions keep their copy.
func (h *QuestionHandler) UpsertQuestion(c *gin.Context) {
	var req model.UpsertQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Upsert(c.Request.Context(), c.Param("exam_id"), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/exams/:exam_id/questions/:question_id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	if err := h.questionService.Delete(c.Request.Context(), c.Param("exam_id"), c.Param("question_id")); err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
