package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloudmaster/examprep/internal/model"
)

// sessionRecord is the storage shape of an exam session. Both session stores
// go through it so column handling lives in one place.
type sessionRecord struct {
	ID               uuid.UUID
	ExamID           string
	SetID            *uuid.UUID
	Title            string
	Kind             string
	Mode             string
	RandomizeOptions bool
	Questions        []byte
	Status           string
	OwnerID          *uuid.UUID
	StartedAt        time.Time
	TimeLimitSec     int
	CurrentIndex     int
	Answers          []byte
	Bookmarks        []string
	Presented        []string
	SubmittedAt      *time.Time
	Score            *int
	CorrectCount     *int
	TotalCount       *int
	TagBreakdown     []byte
}

func encodeSession(s *model.ExamSession) (*sessionRecord, error) {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	answers := s.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	var breakdown []byte
	if s.TagBreakdown != nil {
		if breakdown, err = json.Marshal(s.TagBreakdown); err != nil {
			return nil, fmt.Errorf("encode tag breakdown: %w", err)
		}
	}

	return &sessionRecord{
		ID:               s.ID,
		ExamID:           s.ExamID,
		SetID:            s.SetID,
		Title:            s.Title,
		Kind:             string(s.Kind),
		Mode:             string(s.Mode),
		RandomizeOptions: s.RandomizeOptions,
		Questions:        questions,
		Status:           string(s.Status),
		OwnerID:          s.OwnerID,
		StartedAt:        s.StartedAt.UTC(),
		TimeLimitSec:     s.TimeLimitSec,
		CurrentIndex:     s.CurrentIndex,
		Answers:          answersJSON,
		Bookmarks:        nonNil(s.Bookmarks),
		Presented:        nonNil(s.PresentedQuestionIDs),
		SubmittedAt:      s.SubmittedAt,
		Score:            s.Score,
		CorrectCount:     s.CorrectCount,
		TotalCount:       s.TotalCount,
		TagBreakdown:     breakdown,
	}, nil
}

// decode validates the stored row and converts it to the domain model.
// Answers and bookmarks naming questions outside the snapshot are dropped.
func (r *sessionRecord) decode() (*model.ExamSession, error) {
	s := &model.ExamSession{
		ID:                   r.ID,
		ExamID:               r.ExamID,
		SetID:                r.SetID,
		Title:                r.Title,
		Kind:                 model.SessionKind(r.Kind),
		Mode:                 model.SessionMode(r.Mode),
		RandomizeOptions:     r.RandomizeOptions,
		Status:               model.SessionStatus(r.Status),
		OwnerID:              r.OwnerID,
		StartedAt:            r.StartedAt,
		TimeLimitSec:         r.TimeLimitSec,
		CurrentIndex:         r.CurrentIndex,
		SubmittedAt:          r.SubmittedAt,
		Score:                r.Score,
		CorrectCount:         r.CorrectCount,
		TotalCount:           r.TotalCount,
		Answers:              map[string]string{},
		Bookmarks:            []string{},
		PresentedQuestionIDs: []string{},
	}

	if s.Kind == "" {
		s.Kind = model.SessionKindOrdinary
	}
	if !s.Kind.Valid() {
		return nil, fmt.Errorf("session %s: unknown kind %q", r.ID, r.Kind)
	}
	if !s.Mode.Valid() {
		return nil, fmt.Errorf("session %s: unknown mode %q", r.ID, r.Mode)
	}
	switch s.Status {
	case model.SessionStatusInProgress, model.SessionStatusPaused, model.SessionStatusSubmitted:
	default:
		return nil, fmt.Errorf("session %s: unknown status %q", r.ID, r.Status)
	}

	if err := json.Unmarshal(r.Questions, &s.Questions); err != nil {
		return nil, fmt.Errorf("session %s: decode questions: %w", r.ID, err)
	}
	known := make(map[string]struct{}, len(s.Questions))
	for _, q := range s.Questions {
		known[q.ID] = struct{}{}
	}

	var answers map[string]string
	if len(r.Answers) > 0 {
		if err := json.Unmarshal(r.Answers, &answers); err != nil {
			return nil, fmt.Errorf("session %s: decode answers: %w", r.ID, err)
		}
	}
	for qid, opt := range answers {
		if _, ok := known[qid]; ok {
			s.Answers[qid] = opt
		}
	}
	for _, qid := range r.Bookmarks {
		if _, ok := known[qid]; ok {
			s.Bookmarks = append(s.Bookmarks, qid)
		}
	}
	for _, qid := range r.Presented {
		if _, ok := known[qid]; ok {
			s.PresentedQuestionIDs = append(s.PresentedQuestionIDs, qid)
		}
	}

	if len(r.TagBreakdown) > 0 {
		if err := json.Unmarshal(r.TagBreakdown, &s.TagBreakdown); err != nil {
			return nil, fmt.Errorf("session %s: decode tag breakdown: %w", r.ID, err)
		}
	}

	if n := len(s.Questions); n > 0 && (s.CurrentIndex < 0 || s.CurrentIndex >= n) {
		s.CurrentIndex = 0
	}
	return s, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
