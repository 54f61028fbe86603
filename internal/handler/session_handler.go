package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/middleware"
	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/validator"
)

// SessionHandler handles the exam session lifecycle over HTTP.
type SessionHandler struct {
	sessionService   *service.ExamSessionService
	dashboardService *service.DashboardService
	log              zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService, dashboardService *service.DashboardService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService:   sessionService,
		dashboardService: dashboardService,
		log:              log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts a session from an exam, one of its sets, or a list of its questions.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.StartSession(c.Request.Context(), middleware.GetOwner(c), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": h.present(session)})
}

// ListSessions godoc
// GET /api/v1/sessions?page=1&per_page=20
// Lists the caller's sessions, newest first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListSessions(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	start, end, pagination := response.Paginate(page, perPage, len(sessions))

	summaries := make([]service.SessionSummary, 0, end-start)
	for i := start; i < end; i++ {
		summaries = append(summaries, service.SummarizeSession(&sessions[i]))
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": summaries}, pagination)
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns the session with answers revealed according to its mode.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), middleware.GetOwner(c), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": h.present(session)})
}

// SelectAnswer godoc
// PUT /api/v1/sessions/:session_id/answers
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.SelectAnswer(c.Request.Context(), middleware.GetOwner(c), id, req.QuestionID, req.OptionID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": h.present(session)})
}

// ToggleBookmark godoc
// POST /api/v1/sessions/:session_id/bookmarks
func (h *SessionHandler) ToggleBookmark(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.ToggleBookmarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.ToggleBookmark(c.Request.Context(), middleware.GetOwner(c), id, req.QuestionID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"bookmarked": session.IsBookmarked(req.QuestionID),
		"session":    h.present(session),
	})
}

// Navigate godoc
// PUT /api/v1/sessions/:session_id/cursor
// Moves the question cursor and marks the target question as presented.
func (h *SessionHandler) Navigate(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.GoToQuestion(c.Request.Context(), middleware.GetOwner(c), id, *req.Index)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": h.present(session)})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Grades and closes the session.
func (h *SessionHandler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Submit(c.Request.Context(), middleware.GetOwner(c), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": h.present(session)})
}

// GetResult godoc
// GET /api/v1/sessions/:session_id/result
// Returns the graded session with its pass verdict.
func (h *SessionHandler) GetResult(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.dashboardService.GetResult(c.Request.Context(), middleware.GetOwner(c), id, h.sessionService.Now())
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// DeleteSession godoc
// DELETE /api/v1/sessions/:session_id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	// Ownership check before the unconditional delete.
	if _, err := h.sessionService.GetSession(c.Request.Context(), middleware.GetOwner(c), id); err != nil {
		failWith(c, h.log, err)
		return
	}
	if err := h.sessionService.DeleteSession(c.Request.Context(), id); err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func (h *SessionHandler) present(s *model.ExamSession) service.SessionView {
	return service.PresentSession(s, h.sessionService.Now())
}

// sessionID parses the :session_id param, writing a 400 when malformed.
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
