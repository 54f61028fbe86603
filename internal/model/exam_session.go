package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	// SessionStatusPaused is accepted from storage but never set by the server.
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusSubmitted SessionStatus = "submitted"
)

// SessionKind tells ordinary attempts apart from review re-practice.
type SessionKind string

const (
	SessionKindOrdinary       SessionKind = "ordinary"
	SessionKindWrongReview    SessionKind = "wrong_review"
	SessionKindBookmarkReview SessionKind = "bookmark_review"
)

// IsReview reports whether the kind is one of the review kinds.
func (k SessionKind) IsReview() bool {
	return k == SessionKindWrongReview || k == SessionKindBookmarkReview
}

// Valid reports whether k is a known kind.
func (k SessionKind) Valid() bool {
	return k == SessionKindOrdinary || k.IsReview()
}

// SessionMode controls how a session is presented and answered.
type SessionMode string

const (
	// SessionModeExam is timed; answers stay hidden until submit.
	SessionModeExam SessionMode = "exam"
	// SessionModePractice is untimed; an answer locks once chosen.
	SessionModePractice SessionMode = "practice"
	// SessionModeStudy shows every answer and accepts none.
	SessionModeStudy SessionMode = "study"
)

// Valid reports whether m is a known mode.
func (m SessionMode) Valid() bool {
	switch m {
	case SessionModeExam, SessionModePractice, SessionModeStudy:
		return true
	}
	return false
}

// TagStat is the per-tag score breakdown entry.
type TagStat struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// ExamSession represents one attempt at a fixed list of questions.
type ExamSession struct {
	ID                   uuid.UUID          `json:"id"`
	ExamID               string             `json:"exam_id"`
	SetID                *uuid.UUID         `json:"set_id,omitempty"`
	Title                string             `json:"title"`
	Kind                 SessionKind        `json:"kind"`
	Mode                 SessionMode        `json:"mode"`
	RandomizeOptions     bool               `json:"randomize_options"`
	Questions            []Question         `json:"questions"`
	Status               SessionStatus      `json:"status"`
	OwnerID              *uuid.UUID         `json:"owner_id,omitempty"`
	StartedAt            time.Time          `json:"started_at"`
	TimeLimitSec         int                `json:"time_limit_sec"`
	CurrentIndex         int                `json:"current_index"`
	Answers              map[string]string  `json:"answers"`
	Bookmarks            []string           `json:"bookmarks"`
	PresentedQuestionIDs []string           `json:"presented_question_ids"`
	SubmittedAt          *time.Time         `json:"submitted_at,omitempty"`
	Score                *int               `json:"score,omitempty"`
	CorrectCount         *int               `json:"correct_count,omitempty"`
	TotalCount           *int               `json:"total_count,omitempty"`
	TagBreakdown         map[string]TagStat `json:"tag_breakdown,omitempty"`
}

// IsSubmitted reports whether the session reached its terminal state.
func (s *ExamSession) IsSubmitted() bool {
	return s.Status == SessionStatusSubmitted
}

// IsTimed reports whether the session runs against a deadline.
func (s *ExamSession) IsTimed() bool {
	return s.Mode == SessionModeExam && s.TimeLimitSec > 0
}

// Deadline returns the instant a timed session expires.
func (s *ExamSession) Deadline() time.Time {
	return s.StartedAt.Add(time.Duration(s.TimeLimitSec) * time.Second)
}

// Question returns the snapshot question with the given id.
func (s *ExamSession) Question(id string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// IsBookmarked reports whether questionID is in the bookmark set.
func (s *ExamSession) IsBookmarked(questionID string) bool {
	return slices.Contains(s.Bookmarks, questionID)
}

// MarkPresented records that questionID was shown in this session.
func (s *ExamSession) MarkPresented(questionID string) {
	if !slices.Contains(s.PresentedQuestionIDs, questionID) {
		s.PresentedQuestionIDs = append(s.PresentedQuestionIDs, questionID)
	}
}

// Touched returns every question id this session answered, displayed or bookmarked.
func (s *ExamSession) Touched() map[string]struct{} {
	touched := make(map[string]struct{}, len(s.PresentedQuestionIDs)+len(s.Answers))
	for _, id := range s.PresentedQuestionIDs {
		touched[id] = struct{}{}
	}
	for id := range s.Answers {
		touched[id] = struct{}{}
	}
	for _, id := range s.Bookmarks {
		touched[id] = struct{}{}
	}
	return touched
}

// StartSessionRequest is the payload for starting a session from the catalog.
type StartSessionRequest struct {
	ExamID           string     `json:"exam_id" binding:"required,max=64"`
	SetID            *uuid.UUID `json:"set_id" binding:"omitempty"`
	QuestionIDs      []string   `json:"question_ids" binding:"omitempty,max=500,dive,min=1,max=64"`
	Mode             string     `json:"mode" binding:"omitempty,oneof=exam practice study"`
	TimeLimitMinutes int        `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	RandomizeOptions bool       `json:"randomize_options"`
}

// SelectAnswerRequest is the payload for answering a question.
type SelectAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,max=64"`
	OptionID   string `json:"option_id" binding:"required,max=10"`
}

// ToggleBookmarkRequest is the payload for flipping a bookmark.
type ToggleBookmarkRequest struct {
	QuestionID string `json:"question_id" binding:"required,max=64"`
}

// NavigateRequest is the payload for moving the question cursor.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required"`
}

// StartReviewRequest is the payload for re-practicing review lists.
type StartReviewRequest struct {
	ExamID   string `json:"exam_id" binding:"required,max=64"`
	SetLabel string `json:"set_label" binding:"max=255"`
	Kind     string `json:"kind" binding:"required,oneof=wrong_review bookmark_review"`
}
