package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/service"
)

// errorMapping pairs a service error with the HTTP status and code it maps to.
type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// Specific errors first; the category fallbacks in statusFor catch the rest.
var errorMappings = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrTokenRevoked, http.StatusUnauthorized, response.ErrTokenRevoked},
	{service.ErrEmailTaken, http.StatusConflict, response.ErrEmailTaken},

	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
	{service.ErrSetNotFound, http.StatusNotFound, response.ErrSetNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrQuestionNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, response.ErrUserNotFound},

	{service.ErrSessionSubmitted, http.StatusConflict, response.ErrSessionSubmitted},
	{service.ErrTimeExpired, http.StatusConflict, response.ErrTimeExpired},
	{service.ErrIndexOutOfRange, http.StatusConflict, response.ErrIndexOutOfRange},
	{service.ErrAnswerLocked, http.StatusConflict, response.ErrAnswerLocked},
	{service.ErrStudyModeReadOnly, http.StatusConflict, response.ErrStudyModeOnly},
	{service.ErrNotSubmitted, http.StatusConflict, response.ErrNotSubmitted},

	{service.ErrNoQuestions, http.StatusBadRequest, response.ErrNoQuestions},
	{service.ErrUnknownQuestion, http.StatusBadRequest, response.ErrUnknownQuestion},
	{service.ErrUnknownOption, http.StatusBadRequest, response.ErrUnknownOption},
	{service.ErrTimeLimitRequired, http.StatusBadRequest, response.ErrTimeLimitRequired},
	{service.ErrNothingToReview, http.StatusBadRequest, response.ErrNothingToReview},
}

// statusFor resolves err to an HTTP status and error code.
func statusFor(err error) (int, response.ErrCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict, response.ErrInvalidState
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, response.ErrValidation
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// failWith writes the error envelope for a service error. Validation errors
// carry the service message as a detail; unexpected errors are logged.
func failWith(c *gin.Context, log zerolog.Logger, err error) {
	status, code := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, status, code)
	case code == response.ErrValidation:
		response.FailWithFields(c, status, code, map[string]string{"detail": err.Error()})
	default:
		response.Fail(c, status, code)
	}
}
