package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/config"
	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/repository"
)

// ExamStore persists exams and their sets.
type ExamStore interface {
	List(ctx context.Context) ([]model.Exam, error)
	GetByID(ctx context.Context, id string) (*model.Exam, error)
	Upsert(ctx context.Context, e *model.Exam) error
	ListSets(ctx context.Context, examID string) ([]model.ExamSet, error)
	GetSet(ctx context.Context, id uuid.UUID) (*model.ExamSet, error)
	CreateSet(ctx context.Context, s *model.ExamSet) error
}

// QuestionStore persists the question bank.
type QuestionStore interface {
	ListByExam(ctx context.Context, examID string) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Question, error)
	Upsert(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id string) error
}

// ExamService serves the exam catalog with a Redis read-through cache.
// A nil Redis client disables caching.
type ExamService struct {
	exams     ExamStore
	questions QuestionStore
	rdb       *redis.Client
	ttl       time.Duration
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, questions QuestionStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		rdb:       rdb,
		ttl:       ttl,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// ListExams returns every exam with its question count.
func (s *ExamService) ListExams(ctx context.Context) ([]model.Exam, error) {
	return cached(ctx, s, config.CacheKey.ExamListKey(), func() ([]model.Exam, error) {
		return s.exams.List(ctx)
	})
}

// GetExam returns one exam.
func (s *ExamService) GetExam(ctx context.Context, id string) (*model.Exam, error) {
	exam, err := cached(ctx, s, config.CacheKey.ExamKey(id), func() (*model.Exam, error) {
		e, err := s.exams.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return e, err
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

// ListSets returns the active sets of an exam.
func (s *ExamService) ListSets(ctx context.Context, examID string) ([]model.ExamSet, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return cached(ctx, s, config.CacheKey.ExamSetsKey(examID), func() ([]model.ExamSet, error) {
		return s.exams.ListSets(ctx, examID)
	})
}

// GetSet returns one set.
func (s *ExamService) GetSet(ctx context.Context, id uuid.UUID) (*model.ExamSet, error) {
	set, err := s.exams.GetSet(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("get set: %w", err)
	}
	return set, nil
}

// QuestionsForExam returns the full question bank of an exam.
func (s *ExamService) QuestionsForExam(ctx context.Context, examID string) ([]model.Question, error) {
	return cached(ctx, s, config.CacheKey.ExamQuestionsKey(examID), func() ([]model.Question, error) {
		return s.questions.ListByExam(ctx, examID)
	})
}

// QuestionsForSet returns the questions of a set in set order.
func (s *ExamService) QuestionsForSet(ctx context.Context, setID uuid.UUID) ([]model.Question, error) {
	return cached(ctx, s, config.CacheKey.SetQuestionsKey(setID.String()), func() ([]model.Question, error) {
		set, err := s.GetSet(ctx, setID)
		if err != nil {
			return nil, err
		}
		return s.questions.GetByIDs(ctx, set.QuestionIDs)
	})
}

// QuestionsByIDs returns the questions with the given ids, in that order.
func (s *ExamService) QuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	return s.questions.GetByIDs(ctx, ids)
}

// UpsertExam creates or updates an exam.
func (s *ExamService) UpsertExam(ctx context.Context, req *model.UpsertExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		ID:               req.ID,
		Title:            req.Title,
		Code:             req.Code,
		Certification:    req.Certification,
		Description:      req.Description,
		TimeLimitMinutes: req.TimeLimitMinutes,
		PassingScore:     req.PassingScore,
		Version:          req.Version,
	}
	if err := s.exams.Upsert(ctx, exam); err != nil {
		return nil, fmt.Errorf("upsert exam: %w", err)
	}
	s.InvalidateExam(ctx, exam.ID)
	return s.GetExam(ctx, exam.ID)
}

// CreateSet adds a set to an exam. Every question id must belong to the exam.
func (s *ExamService) CreateSet(ctx context.Context, examID string, req *model.CreateSetRequest) (*model.ExamSet, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}

	questions, err := s.questions.GetByIDs(ctx, req.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load set questions: %w", err)
	}
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if q.ExamID != examID {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, q.ID)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	if len(questions) != len(req.QuestionIDs) {
		return nil, ErrUnknownQuestion
	}

	set := &model.ExamSet{
		ExamID:      examID,
		Name:        req.Name,
		Type:        model.SetType(req.Type),
		Description: req.Description,
		QuestionIDs: req.QuestionIDs,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	}
	if err := s.exams.CreateSet(ctx, set); err != nil {
		return nil, fmt.Errorf("create set: %w", err)
	}
	s.InvalidateExam(ctx, examID)
	return set, nil
}

// InvalidateExam drops every cached entry derived from the exam.
func (s *ExamService) InvalidateExam(ctx context.Context, examID string) {
	if s.rdb == nil {
		return
	}

	keys := []string{
		config.CacheKey.ExamListKey(),
		config.CacheKey.ExamKey(examID),
		config.CacheKey.ExamQuestionsKey(examID),
		config.CacheKey.ExamSetsKey(examID),
	}
	sets, err := s.exams.ListSets(ctx, examID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID).Msg("List sets for invalidation failed")
	}
	for _, set := range sets {
		keys = append(keys, config.CacheKey.SetQuestionsKey(set.ID.String()))
	}

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID).Msg("Cache invalidation failed")
		return
	}
	s.log.Debug().Str("exam_id", examID).Int("keys", len(keys)).Msg("Cache invalidated")
}

// cached returns the value stored under key, or loads, stores and returns it.
// Cache failures are logged and fall through to load.
func cached[T any](ctx context.Context, s *ExamService, key string, load func() (T, error)) (T, error) {
	if s.rdb == nil {
		return load()
	}

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		s.log.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if payload, err := json.Marshal(v); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return v, nil
}
