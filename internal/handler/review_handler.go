package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/middleware"
	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/review"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/validator"
)

// ReviewHandler exposes the wrong-answer and bookmark review lists.
type ReviewHandler struct {
	reviewService  *service.ReviewService
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService, sessionService *service.ExamSessionService, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService:  reviewService,
		sessionService: sessionService,
		log:            log.With().Str("component", "review_handler").Logger(),
	}
}

// GetReviews godoc
// GET /api/v1/reviews
// Returns the reconciled review lists grouped by exam and set.
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	reviews, err := h.reviewService.GetReviews(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	if reviews == nil {
		reviews = []review.ExamReview{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": reviews})
}

// GetSetReview godoc
// GET /api/v1/reviews/:exam_id?set=<label>
// Returns the review lists of one exam set.
func (h *ReviewHandler) GetSetReview(c *gin.Context) {
	reviews, err := h.reviewService.GetReviews(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	key := review.Key{ExamID: c.Param("exam_id"), Label: c.Query("set")}
	set, ok := review.Find(reviews, key)
	if !ok {
		set = review.SetReview{Label: key.Label, Wrong: []review.WrongEntry{}, Bookmarked: []review.BookmarkEntry{}}
	}

	response.Success(c, http.StatusOK, gin.H{"exam_id": key.ExamID, "set": set})
}

// StartReview godoc
// POST /api/v1/reviews/start
// Starts a practice session over the current wrong or bookmarked questions.
func (h *ReviewHandler) StartReview(c *gin.Context) {
	var req model.StartReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.reviewService.StartReview(c.Request.Context(), middleware.GetOwner(c), req.ExamID, req.SetLabel, model.SessionKind(req.Kind))
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": service.PresentSession(session, h.sessionService.Now())})
}
