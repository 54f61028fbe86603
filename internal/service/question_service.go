package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/repository"
)

// QuestionService handles question bank editing. Edits only reach new
// sessions; existing sessions keep their snapshot.
type QuestionService struct {
	questions QuestionStore
	exams     *ExamService
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, exams *ExamService, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		exams:     exams,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// ListByExam returns the full question bank of an exam, answers included.
func (s *QuestionService) ListByExam(ctx context.Context, examID string) ([]model.Question, error) {
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.questions.ListByExam(ctx, examID)
}

// Upsert creates or replaces a question of the exam.
func (s *QuestionService) Upsert(ctx context.Context, examID string, req *model.UpsertQuestionRequest) (*model.Question, error) {
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}

	q := req.ToQuestion(examID)
	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, dup := seen[o.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate option id %s", ErrValidation, o.ID)
		}
		seen[o.ID] = struct{}{}
	}
	if !q.HasOption(q.CorrectOptionID) {
		return nil, ErrCorrectOption
	}

	existing, err := s.questions.GetByIDs(ctx, []string{q.ID})
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	if len(existing) == 1 && existing[0].ExamID != examID {
		return nil, ErrQuestionExamChange
	}

	if err := s.questions.Upsert(ctx, &q); err != nil {
		return nil, fmt.Errorf("upsert question: %w", err)
	}
	s.exams.InvalidateExam(ctx, examID)

	s.log.Info().Str("exam_id", examID).Str("question_id", q.ID).Msg("Question saved")
	return &q, nil
}

// Delete removes a question of the exam from the bank.
func (s *QuestionService) Delete(ctx context.Context, examID, questionID string) error {
	existing, err := s.questions.GetByIDs(ctx, []string{questionID})
	if err != nil {
		return fmt.Errorf("load question: %w", err)
	}
	if len(existing) == 0 || existing[0].ExamID != examID {
		return ErrQuestionNotFound
	}

	if err := s.questions.Delete(ctx, questionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	s.exams.InvalidateExam(ctx, examID)

	s.log.Info().Str("exam_id", examID).Str("question_id", questionID).Msg("Question deleted")
	return nil
}
