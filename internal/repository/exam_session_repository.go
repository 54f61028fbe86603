package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudmaster/examprep/internal/model"
)

const sessionColumns = `id, exam_id, set_id, title, kind, mode, randomize_options, questions,
	status, owner_id, started_at, time_limit_sec, current_index, answers, bookmarks,
	presented_question_ids, submitted_at, score, correct_count, total_count, tag_breakdown`

// ExamSessionRepository stores exam sessions in PostgreSQL, shared by every
// device of an account.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a new exam session.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	rec, err := encodeSession(s)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		rec.ID, rec.ExamID, rec.SetID, rec.Title, rec.Kind, rec.Mode, rec.RandomizeOptions, rec.Questions,
		rec.Status, rec.OwnerID, rec.StartedAt, rec.TimeLimitSec, rec.CurrentIndex, rec.Answers, rec.Bookmarks,
		rec.Presented, rec.SubmittedAt, rec.Score, rec.CorrectCount, rec.TotalCount, rec.TagBreakdown)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by id.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// ListByOwner returns the owner's sessions, newest first. A nil owner lists
// sessions that belong to nobody.
func (r *ExamSessionRepository) ListByOwner(ctx context.Context, ownerID *uuid.UUID) ([]model.ExamSession, error) {
	var rows pgx.Rows
	var err error
	if ownerID == nil {
		rows, err = r.pool.Query(ctx,
			`SELECT `+sessionColumns+` FROM exam_sessions
			 WHERE owner_id IS NULL
			 ORDER BY started_at DESC, id DESC`)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+sessionColumns+` FROM exam_sessions
			 WHERE owner_id = $1
			 ORDER BY started_at DESC, id DESC`, *ownerID)
	}
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListInProgress returns every session still open for answers.
func (r *ExamSessionRepository) ListInProgress(ctx context.Context) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE status = $1
		 ORDER BY started_at`, model.SessionStatusInProgress)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// Update writes the mutable fields of a session in one statement. Submitted
// rows are never rewritten; ErrNotUpdated signals that nothing matched.
func (r *ExamSessionRepository) Update(ctx context.Context, s *model.ExamSession) error {
	rec, err := encodeSession(s)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET current_index = $2, answers = $3, bookmarks = $4, presented_question_ids = $5,
		     status = $6, submitted_at = $7, score = $8, correct_count = $9, total_count = $10,
		     tag_breakdown = $11, updated_at = NOW()
		 WHERE id = $1 AND status <> $12`,
		rec.ID, rec.CurrentIndex, rec.Answers, rec.Bookmarks, rec.Presented,
		rec.Status, rec.SubmittedAt, rec.Score, rec.CorrectCount, rec.TotalCount,
		rec.TagBreakdown, model.SessionStatusSubmitted)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotUpdated
	}
	return nil
}

// Delete removes a session.
func (r *ExamSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exam_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	var rec sessionRecord
	err := row.Scan(&rec.ID, &rec.ExamID, &rec.SetID, &rec.Title, &rec.Kind, &rec.Mode,
		&rec.RandomizeOptions, &rec.Questions, &rec.Status, &rec.OwnerID, &rec.StartedAt,
		&rec.TimeLimitSec, &rec.CurrentIndex, &rec.Answers, &rec.Bookmarks, &rec.Presented,
		&rec.SubmittedAt, &rec.Score, &rec.CorrectCount, &rec.TotalCount, &rec.TagBreakdown)
	if err != nil {
		return nil, translate(err)
	}
	return rec.decode()
}

func collectSessions(rows pgx.Rows) ([]model.ExamSession, error) {
	defer rows.Close()

	sessions := []model.ExamSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
