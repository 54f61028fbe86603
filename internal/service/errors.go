package service

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the services that a caller can
// act on wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

// Session errors.
var (
	ErrSessionNotFound   = fmt.Errorf("session %w", ErrNotFound)
	ErrSessionSubmitted  = fmt.Errorf("%w: session already submitted", ErrInvalidState)
	ErrIndexOutOfRange   = fmt.Errorf("%w: question index out of range", ErrInvalidState)
	ErrStudyModeReadOnly = fmt.Errorf("%w: study mode does not accept answers", ErrInvalidState)
	ErrAnswerLocked      = fmt.Errorf("%w: answer already chosen in practice mode", ErrInvalidState)
	ErrNotExpired        = fmt.Errorf("%w: session time has not run out", ErrInvalidState)
	ErrTimeExpired       = fmt.Errorf("%w: session time has run out", ErrInvalidState)
	ErrNotSubmitted      = fmt.Errorf("%w: session not submitted yet", ErrInvalidState)

	ErrNoQuestions        = fmt.Errorf("%w: a session needs at least one question", ErrValidation)
	ErrDuplicateQuestion  = fmt.Errorf("%w: duplicate question id", ErrValidation)
	ErrUnknownQuestion    = fmt.Errorf("%w: question is not part of this session", ErrValidation)
	ErrUnknownOption      = fmt.Errorf("%w: option is not part of this question", ErrValidation)
	ErrTimeLimitRequired  = fmt.Errorf("%w: exam mode needs a time limit of at least one minute", ErrValidation)
	ErrInvalidMode        = fmt.Errorf("%w: unknown session mode", ErrValidation)
	ErrInvalidKind        = fmt.Errorf("%w: unknown session kind", ErrValidation)
	ErrNothingToReview    = fmt.Errorf("%w: nothing to review for this set", ErrValidation)
	ErrSetExamMismatch    = fmt.Errorf("%w: set does not belong to this exam", ErrValidation)
	ErrQuestionExamChange = fmt.Errorf("%w: question belongs to another exam", ErrValidation)
	ErrCorrectOption      = fmt.Errorf("%w: correct option must be one of the options", ErrValidation)
)

// Catalog errors.
var (
	ErrExamNotFound     = fmt.Errorf("exam %w", ErrNotFound)
	ErrSetNotFound      = fmt.Errorf("set %w", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
)

// Account errors.
var (
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrEmailTaken   = fmt.Errorf("%w: email already registered", ErrValidation)
)
