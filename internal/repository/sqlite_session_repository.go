package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloudmaster/examprep/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS exam_sessions (
	id                     TEXT PRIMARY KEY,
	exam_id                TEXT NOT NULL,
	set_id                 TEXT,
	title                  TEXT NOT NULL,
	kind                   TEXT NOT NULL DEFAULT 'ordinary',
	mode                   TEXT NOT NULL,
	randomize_options      INTEGER NOT NULL DEFAULT 0,
	questions              TEXT NOT NULL,
	status                 TEXT NOT NULL,
	owner_id               TEXT,
	started_at             TEXT NOT NULL,
	time_limit_sec         INTEGER NOT NULL DEFAULT 0,
	current_index          INTEGER NOT NULL DEFAULT 0,
	answers                TEXT NOT NULL DEFAULT '{}',
	bookmarks              TEXT NOT NULL DEFAULT '[]',
	presented_question_ids TEXT NOT NULL DEFAULT '[]',
	submitted_at           TEXT,
	score                  INTEGER,
	correct_count          INTEGER,
	total_count            INTEGER,
	tag_breakdown          TEXT,
	updated_at             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exam_sessions_owner ON exam_sessions (owner_id, started_at);
CREATE INDEX IF NOT EXISTS idx_exam_sessions_status ON exam_sessions (status);
`

// SQLiteSessionRepository stores exam sessions in a local SQLite file for
// single-device use without accounts.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSQLiteSessionRepository creates the schema if needed and returns the store.
func NewSQLiteSessionRepository(ctx context.Context, db *sql.DB) (*SQLiteSessionRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteSessionRepository{db: db}, nil
}

// Create inserts a new exam session.
func (r *SQLiteSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	rec, err := encodeSession(s)
	if err != nil {
		return err
	}
	bookmarks, presented, err := encodeIDLists(rec)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO exam_sessions (`+sessionColumns+`, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.ExamID, uuidString(rec.SetID), rec.Title, rec.Kind, rec.Mode,
		rec.RandomizeOptions, string(rec.Questions), rec.Status, uuidString(rec.OwnerID),
		formatTime(rec.StartedAt), rec.TimeLimitSec, rec.CurrentIndex, string(rec.Answers),
		bookmarks, presented, timeString(rec.SubmittedAt), rec.Score, rec.CorrectCount,
		rec.TotalCount, nullableText(rec.TagBreakdown), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by id.
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = ?`, id.String())
	return scanSQLiteSession(row)
}

// ListByOwner returns the owner's sessions, newest first. A nil owner lists
// sessions that belong to nobody.
func (r *SQLiteSessionRepository) ListByOwner(ctx context.Context, ownerID *uuid.UUID) ([]model.ExamSession, error) {
	var rows *sql.Rows
	var err error
	if ownerID == nil {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM exam_sessions
			 WHERE owner_id IS NULL
			 ORDER BY started_at DESC, id DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM exam_sessions
			 WHERE owner_id = ?
			 ORDER BY started_at DESC, id DESC`, ownerID.String())
	}
	if err != nil {
		return nil, err
	}
	return collectSQLiteSessions(rows)
}

// ListInProgress returns every session still open for answers.
func (r *SQLiteSessionRepository) ListInProgress(ctx context.Context) ([]model.ExamSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE status = ? ORDER BY started_at`,
		string(model.SessionStatusInProgress))
	if err != nil {
		return nil, err
	}
	return collectSQLiteSessions(rows)
}

// Update writes the mutable fields of a session in one statement. Submitted
// rows are never rewritten; ErrNotUpdated signals that nothing matched.
func (r *SQLiteSessionRepository) Update(ctx context.Context, s *model.ExamSession) error {
	rec, err := encodeSession(s)
	if err != nil {
		return err
	}
	bookmarks, presented, err := encodeIDLists(rec)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE exam_sessions
		 SET current_index = ?, answers = ?, bookmarks = ?, presented_question_ids = ?,
		     status = ?, submitted_at = ?, score = ?, correct_count = ?, total_count = ?,
		     tag_breakdown = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		rec.CurrentIndex, string(rec.Answers), bookmarks, presented,
		rec.Status, timeString(rec.SubmittedAt), rec.Score, rec.CorrectCount, rec.TotalCount,
		nullableText(rec.TagBreakdown), formatTime(time.Now()),
		rec.ID.String(), string(model.SessionStatusSubmitted))
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotUpdated
	}
	return nil
}

// Delete removes a session.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exam_sessions WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row sqlScanner) (*model.ExamSession, error) {
	var (
		rec                           sessionRecord
		id, startedAt                 string
		setID, ownerID, submittedAt   sql.NullString
		questions, answers            string
		bookmarks, presented          string
		breakdown                     sql.NullString
		score, correctCount, totalCnt sql.NullInt64
	)
	err := row.Scan(&id, &rec.ExamID, &setID, &rec.Title, &rec.Kind, &rec.Mode,
		&rec.RandomizeOptions, &questions, &rec.Status, &ownerID, &startedAt,
		&rec.TimeLimitSec, &rec.CurrentIndex, &answers, &bookmarks, &presented,
		&submittedAt, &score, &correctCount, &totalCnt, &breakdown)
	if err != nil {
		return nil, translate(err)
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("session id %q: %w", id, err)
	}
	if rec.SetID, err = parseNullUUID(setID); err != nil {
		return nil, fmt.Errorf("session %s: set id: %w", id, err)
	}
	if rec.OwnerID, err = parseNullUUID(ownerID); err != nil {
		return nil, fmt.Errorf("session %s: owner id: %w", id, err)
	}
	if rec.StartedAt, err = time.Parse(sqliteTime, startedAt); err != nil {
		return nil, fmt.Errorf("session %s: started_at: %w", id, err)
	}
	if submittedAt.Valid {
		t, err := time.Parse(sqliteTime, submittedAt.String)
		if err != nil {
			return nil, fmt.Errorf("session %s: submitted_at: %w", id, err)
		}
		rec.SubmittedAt = &t
	}
	if err := json.Unmarshal([]byte(bookmarks), &rec.Bookmarks); err != nil {
		return nil, fmt.Errorf("session %s: bookmarks: %w", id, err)
	}
	if err := json.Unmarshal([]byte(presented), &rec.Presented); err != nil {
		return nil, fmt.Errorf("session %s: presented: %w", id, err)
	}

	rec.Questions = []byte(questions)
	rec.Answers = []byte(answers)
	if breakdown.Valid {
		rec.TagBreakdown = []byte(breakdown.String)
	}
	rec.Score = nullInt(score)
	rec.CorrectCount = nullInt(correctCount)
	rec.TotalCount = nullInt(totalCnt)

	return rec.decode()
}

func collectSQLiteSessions(rows *sql.Rows) ([]model.ExamSession, error) {
	defer rows.Close()

	sessions := []model.ExamSession{}
	for rows.Next() {
		s, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func encodeIDLists(rec *sessionRecord) (string, string, error) {
	bookmarks, err := json.Marshal(rec.Bookmarks)
	if err != nil {
		return "", "", fmt.Errorf("encode bookmarks: %w", err)
	}
	presented, err := json.Marshal(rec.Presented)
	if err != nil {
		return "", "", fmt.Errorf("encode presented: %w", err)
	}
	return string(bookmarks), string(presented), nil
}

// sqliteTime is fixed width so text ordering matches chronological order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func timeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func uuidString(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func nullableText(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
