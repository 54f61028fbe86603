package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/shuffle"
)

// OptionView is an answer choice as shown to the user.
type OptionView struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Explanation string `json:"explanation,omitempty"`
}

// QuestionView is a question as shown to the user. Answer details are only
// filled in once revealed.
type QuestionView struct {
	ID               string       `json:"id"`
	Text             string       `json:"text"`
	TextTranslated   string       `json:"text_translated,omitempty"`
	Options          []OptionView `json:"options"`
	Tags             []string     `json:"tags"`
	Difficulty       int          `json:"difficulty"`
	ImageURLs        []string     `json:"image_urls,omitempty"`
	SelectedOptionID string       `json:"selected_option_id,omitempty"`
	Bookmarked       bool         `json:"bookmarked"`
	Revealed         bool         `json:"revealed"`
	CorrectOptionID  string       `json:"correct_option_id,omitempty"`
	IsCorrect        *bool        `json:"is_correct,omitempty"`
	Explanation      string       `json:"explanation,omitempty"`
	KeyPoints        []string     `json:"key_points,omitempty"`
	ReferenceLinks   []string     `json:"reference_links,omitempty"`
}

// SessionView is the client representation of a session.
type SessionView struct {
	ID            uuid.UUID                `json:"id"`
	ExamID        string                   `json:"exam_id"`
	SetID         *uuid.UUID               `json:"set_id,omitempty"`
	Title         string                   `json:"title"`
	Kind          model.SessionKind        `json:"kind"`
	Mode          model.SessionMode        `json:"mode"`
	Status        model.SessionStatus      `json:"status"`
	StartedAt     time.Time                `json:"started_at"`
	TimeLimitSec  int                      `json:"time_limit_sec"`
	RemainingSec  *int                     `json:"remaining_sec,omitempty"`
	CurrentIndex  int                      `json:"current_index"`
	AnsweredCount int                      `json:"answered_count"`
	Questions     []QuestionView           `json:"questions"`
	SubmittedAt   *time.Time               `json:"submitted_at,omitempty"`
	Score         *int                     `json:"score,omitempty"`
	CorrectCount  *int                     `json:"correct_count,omitempty"`
	TotalCount    *int                     `json:"total_count,omitempty"`
	TagBreakdown  map[string]model.TagStat `json:"tag_breakdown,omitempty"`
}

// SessionSummary is the list representation of a session.
type SessionSummary struct {
	ID            uuid.UUID           `json:"id"`
	ExamID        string              `json:"exam_id"`
	Title         string              `json:"title"`
	Kind          model.SessionKind   `json:"kind"`
	Mode          model.SessionMode   `json:"mode"`
	Status        model.SessionStatus `json:"status"`
	StartedAt     time.Time           `json:"started_at"`
	QuestionCount int                 `json:"question_count"`
	AnsweredCount int                 `json:"answered_count"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	Score         *int                `json:"score,omitempty"`
}

// PresentSession builds the view of s at now. In exam mode nothing is
// revealed until submit; practice mode reveals answered questions; study
// mode reveals everything.
func PresentSession(s *model.ExamSession, now time.Time) SessionView {
	v := SessionView{
		ID:            s.ID,
		ExamID:        s.ExamID,
		SetID:         s.SetID,
		Title:         s.Title,
		Kind:          s.Kind,
		Mode:          s.Mode,
		Status:        s.Status,
		StartedAt:     s.StartedAt,
		TimeLimitSec:  s.TimeLimitSec,
		CurrentIndex:  s.CurrentIndex,
		AnsweredCount: len(s.Answers),
		Questions:     make([]QuestionView, 0, len(s.Questions)),
		SubmittedAt:   s.SubmittedAt,
		Score:         s.Score,
		CorrectCount:  s.CorrectCount,
		TotalCount:    s.TotalCount,
		TagBreakdown:  s.TagBreakdown,
	}

	if s.IsTimed() && !s.IsSubmitted() {
		remaining := int(s.Deadline().Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		v.RemainingSec = &remaining
	}

	for i := range s.Questions {
		v.Questions = append(v.Questions, presentQuestion(s, &s.Questions[i]))
	}
	return v
}

func presentQuestion(s *model.ExamSession, q *model.Question) QuestionView {
	selected, answered := s.Answers[q.ID]

	revealed := s.IsSubmitted()
	switch s.Mode {
	case model.SessionModeStudy:
		revealed = true
	case model.SessionModePractice:
		revealed = revealed || answered
	}

	options := q.Options
	if s.RandomizeOptions {
		options = shuffle.Seeded(q.Options, q.ID)
	}

	qv := QuestionView{
		ID:               q.ID,
		Text:             q.Text,
		TextTranslated:   q.TextTranslated,
		Options:          make([]OptionView, 0, len(options)),
		Tags:             q.Tags,
		Difficulty:       q.Difficulty,
		ImageURLs:        q.ImageURLs,
		SelectedOptionID: selected,
		Bookmarked:       s.IsBookmarked(q.ID),
		Revealed:         revealed,
	}
	for _, o := range options {
		ov := OptionView{ID: o.ID, Text: o.Text}
		if revealed {
			ov.Explanation = o.Explanation
		}
		qv.Options = append(qv.Options, ov)
	}

	if revealed {
		qv.CorrectOptionID = q.CorrectOptionID
		qv.Explanation = q.Explanation
		qv.KeyPoints = q.KeyPoints
		qv.ReferenceLinks = q.ReferenceLinks
		if answered {
			correct := selected == q.CorrectOptionID
			qv.IsCorrect = &correct
		}
	}
	return qv
}

// SummarizeSession builds the list view of s.
func SummarizeSession(s *model.ExamSession) SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		ExamID:        s.ExamID,
		Title:         s.Title,
		Kind:          s.Kind,
		Mode:          s.Mode,
		Status:        s.Status,
		StartedAt:     s.StartedAt,
		QuestionCount: len(s.Questions),
		AnsweredCount: len(s.Answers),
		SubmittedAt:   s.SubmittedAt,
		Score:         s.Score,
	}
}
