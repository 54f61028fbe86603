package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenRevoked       ErrCode = "TOKEN_REVOKED"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrInvalidID         ErrCode = "INVALID_ID"
	ErrInvalidPayload    ErrCode = "INVALID_PAYLOAD"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrUnknownOption     ErrCode = "UNKNOWN_OPTION"
	ErrTimeLimitRequired ErrCode = "TIME_LIMIT_REQUIRED"
	ErrNothingToReview   ErrCode = "NOTHING_TO_REVIEW"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrSetNotFound      ErrCode = "SET_NOT_FOUND"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"
	ErrUserNotFound     ErrCode = "USER_NOT_FOUND"

	// ─── Session state ─────────────────────────────────────────────────
	ErrInvalidState     ErrCode = "INVALID_STATE"
	ErrSessionSubmitted ErrCode = "SESSION_SUBMITTED"
	ErrTimeExpired      ErrCode = "TIME_EXPIRED"
	ErrIndexOutOfRange  ErrCode = "INDEX_OUT_OF_RANGE"
	ErrAnswerLocked     ErrCode = "ANSWER_LOCKED"
	ErrStudyModeOnly    ErrCode = "STUDY_MODE_READ_ONLY"
	ErrNotSubmitted     ErrCode = "SESSION_NOT_SUBMITTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrTokenRevoked:
		return "You have been signed out. Please sign in again."
	case ErrEmailTaken:
		return "An account with this email already exists."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrNoQuestions:
		return "A session needs at least one question."
	case ErrUnknownQuestion:
		return "The question is not part of this session or exam."
	case ErrUnknownOption:
		return "The option is not part of this question."
	case ErrTimeLimitRequired:
		return "Exam mode needs a time limit of at least one minute."
	case ErrNothingToReview:
		return "There are no questions to review for this set."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrSessionNotFound:
		return "Session not found."
	case ErrExamNotFound:
		return "Exam not found."
	case ErrSetNotFound:
		return "Question set not found."
	case ErrQuestionNotFound:
		return "Question not found."
	case ErrUserNotFound:
		return "User not found."

	// ─── Session state ─────────────────────────────────────────────────
	case ErrInvalidState:
		return "This action is not allowed in the session's current state."
	case ErrSessionSubmitted:
		return "This session has already been submitted."
	case ErrTimeExpired:
		return "Time is up. The session was submitted with the answers recorded before the deadline."
	case ErrIndexOutOfRange:
		return "Question index is out of range."
	case ErrAnswerLocked:
		return "In practice mode an answer cannot be changed once chosen."
	case ErrStudyModeOnly:
		return "Study mode does not accept answers."
	case ErrNotSubmitted:
		return "This session has not been submitted yet."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
