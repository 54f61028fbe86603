package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudmaster/examprep/internal/model"
)

// ExamRepository handles exam and exam set data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// List retrieves every exam with its question count, ordered by title.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.title, e.code, e.certification, e.description, e.time_limit_minutes,
		        e.passing_score, e.version, COUNT(q.id), e.created_at, e.updated_at
		 FROM exams e
		 LEFT JOIN questions q ON q.exam_id = e.id
		 GROUP BY e.id
		 ORDER BY e.title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Code, &e.Certification, &e.Description,
			&e.TimeLimitMinutes, &e.PassingScore, &e.Version, &e.QuestionCount,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetByID retrieves an exam by its slug.
func (r *ExamRepository) GetByID(ctx context.Context, id string) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.title, e.code, e.certification, e.description, e.time_limit_minutes,
		        e.passing_score, e.version,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
		        e.created_at, e.updated_at
		 FROM exams e WHERE e.id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Code, &e.Certification, &e.Description,
		&e.TimeLimitMinutes, &e.PassingScore, &e.Version, &e.QuestionCount,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// Upsert creates the exam or replaces its editable fields.
func (r *ExamRepository) Upsert(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (id, title, code, certification, description, time_limit_minutes, passing_score, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, code = EXCLUDED.code, certification = EXCLUDED.certification,
		     description = EXCLUDED.description, time_limit_minutes = EXCLUDED.time_limit_minutes,
		     passing_score = EXCLUDED.passing_score, version = EXCLUDED.version,
		     updated_at = CURRENT_TIMESTAMP
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.Code, e.Certification, e.Description, e.TimeLimitMinutes, e.PassingScore, e.Version,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

// ListSets retrieves the active sets of an exam in display order.
func (r *ExamRepository) ListSets(ctx context.Context, examID string) ([]model.ExamSet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, name, type, description, question_ids, sort_order, is_active, created_at
		 FROM exam_sets
		 WHERE exam_id = $1 AND is_active
		 ORDER BY sort_order, name`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := []model.ExamSet{}
	for rows.Next() {
		var s model.ExamSet
		if err := rows.Scan(&s.ID, &s.ExamID, &s.Name, &s.Type, &s.Description,
			&s.QuestionIDs, &s.SortOrder, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// GetSet retrieves a set by id.
func (r *ExamRepository) GetSet(ctx context.Context, id uuid.UUID) (*model.ExamSet, error) {
	s := &model.ExamSet{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, name, type, description, question_ids, sort_order, is_active, created_at
		 FROM exam_sets WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.Name, &s.Type, &s.Description,
		&s.QuestionIDs, &s.SortOrder, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// CreateSet inserts a new set.
func (r *ExamRepository) CreateSet(ctx context.Context, s *model.ExamSet) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sets (exam_id, name, type, description, question_ids, sort_order, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		s.ExamID, s.Name, s.Type, s.Description, s.QuestionIDs, s.SortOrder, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt)
}
