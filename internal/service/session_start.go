package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cloudmaster/examprep/internal/model"
)

// QuestionCatalog is the read side of the question bank used when sessions
// are created.
type QuestionCatalog interface {
	ListExams(ctx context.Context) ([]model.Exam, error)
	GetExam(ctx context.Context, id string) (*model.Exam, error)
	GetSet(ctx context.Context, id uuid.UUID) (*model.ExamSet, error)
	QuestionsForExam(ctx context.Context, examID string) ([]model.Question, error)
	QuestionsForSet(ctx context.Context, setID uuid.UUID) ([]model.Question, error)
	QuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error)
}

// StartSession creates a session from the catalog: a whole exam, one of its
// sets, or an explicit list of its questions.
func (s *ExamSessionService) StartSession(ctx context.Context, owner *uuid.UUID, req *model.StartSessionRequest) (*model.ExamSession, error) {
	if s.catalog == nil {
		return nil, errors.New("no question catalog configured")
	}

	exam, err := s.catalog.GetExam(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}

	mode := model.SessionMode(req.Mode)
	if mode == "" {
		mode = model.SessionModeExam
	}

	params := CreateSessionParams{
		ExamID:           exam.ID,
		Title:            exam.Title,
		TimeLimitMinutes: req.TimeLimitMinutes,
		Mode:             mode,
		RandomizeOptions: req.RandomizeOptions,
		OwnerID:          owner,
		Kind:             model.SessionKindOrdinary,
	}
	if params.TimeLimitMinutes == 0 {
		params.TimeLimitMinutes = exam.TimeLimitMinutes
	}

	switch {
	case req.SetID != nil:
		set, err := s.catalog.GetSet(ctx, *req.SetID)
		if err != nil {
			return nil, err
		}
		if set.ExamID != exam.ID {
			return nil, ErrSetExamMismatch
		}
		if params.Questions, err = s.catalog.QuestionsForSet(ctx, set.ID); err != nil {
			return nil, err
		}
		setID := set.ID
		params.SetID = &setID
		params.Title = exam.Title + " - " + set.Name

	case len(req.QuestionIDs) > 0:
		questions, err := s.catalog.QuestionsByIDs(ctx, req.QuestionIDs)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if q.ExamID == exam.ID {
				params.Questions = append(params.Questions, q)
			}
		}
		if len(params.Questions) != len(req.QuestionIDs) {
			return nil, ErrUnknownQuestion
		}

	default:
		if params.Questions, err = s.catalog.QuestionsForExam(ctx, exam.ID); err != nil {
			return nil, err
		}
	}

	return s.CreateSession(ctx, params)
}
