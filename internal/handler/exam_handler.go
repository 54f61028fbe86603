package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/validator"
)

// ExamHandler serves the exam catalog and its admin endpoints.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/exams
// Lists every exam with its question count.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.ListExams(c.Request.Context())
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	exam, err := h.examService.GetExam(c.Request.Context(), c.Param("exam_id"))
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// ListSets godoc
// GET /api/v1/exams/:exam_id/sets
// Lists the active question sets of an exam.
func (h *ExamHandler) ListSets(c *gin.Context) {
	examID := c.Param("exam_id")
	if _, err := h.examService.GetExam(c.Request.Context(), examID); err != nil {
		failWith(c, h.log, err)
		return
	}

	sets, err := h.examService.ListSets(c.Request.Context(), examID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	if sets == nil {
		sets = []model.ExamSet{}
	}

	response.Success(c, http.StatusOK, gin.H{"sets": sets})
}

// GetSet godoc
// GET /api/v1/sets/:set_id
func (h *ExamHandler) GetSet(c *gin.Context) {
	setID, err := uuid.Parse(c.Param("set_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	set, err := h.examService.GetSet(c.Request.Context(), setID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"set": set})
}

// UpsertExam godoc
// PUT /api/v1/admin/exams
// Creates an exam or replaces its metadata.
func (h *ExamHandler) UpsertExam(c *gin.Context) {
	var req model.UpsertExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.UpsertExam(c.Request.Context(), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateSet godoc
// POST /api/v1/admin/exams/:exam_id/sets
// Creates a curated question set from existing questions of the exam.
func (h *ExamHandler) CreateSet(c *gin.Context) {
	var req model.CreateSetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	set, err := h.examService.CreateSet(c.Request.Context(), c.Param("exam_id"), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"set": set})
}
