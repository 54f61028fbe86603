package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudmaster/examprep/internal/model"
)

const questionColumns = `id, exam_id, text, text_translated, options, correct_option_id, explanation,
	tags, key_points, image_urls, reference_links, difficulty`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions of an exam in id order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID string) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE exam_id = $1 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByIDs retrieves the questions with the given ids, in the order given.
// Unknown ids are skipped.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]model.Question, len(ids))
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(byID))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// Upsert creates the question or replaces its content.
func (r *QuestionRepository) Upsert(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO questions (`+questionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE
		 SET exam_id = EXCLUDED.exam_id, text = EXCLUDED.text, text_translated = EXCLUDED.text_translated,
		     options = EXCLUDED.options, correct_option_id = EXCLUDED.correct_option_id,
		     explanation = EXCLUDED.explanation, tags = EXCLUDED.tags, key_points = EXCLUDED.key_points,
		     image_urls = EXCLUDED.image_urls, reference_links = EXCLUDED.reference_links,
		     difficulty = EXCLUDED.difficulty, updated_at = CURRENT_TIMESTAMP`,
		q.ID, q.ExamID, q.Text, q.TextTranslated, q.Options, q.CorrectOptionID, q.Explanation,
		nonNil(q.Tags), nonNil(q.KeyPoints), nonNil(q.ImageURLs), nonNil(q.ReferenceLinks), q.Difficulty)
	return err
}

// Delete removes a question from the bank. Session snapshots keep their copy.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanQuestion(row interface{ Scan(...any) error }, q *model.Question) error {
	return row.Scan(&q.ID, &q.ExamID, &q.Text, &q.TextTranslated, &q.Options, &q.CorrectOptionID,
		&q.Explanation, &q.Tags, &q.KeyPoints, &q.ImageURLs, &q.ReferenceLinks, &q.Difficulty)
}
