package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cloudmaster/examprep/internal/database"
	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeDeadlines struct {
	mu      sync.Mutex
	tracked map[uuid.UUID]time.Time
}

func newFakeDeadlines() *fakeDeadlines {
	return &fakeDeadlines{tracked: make(map[uuid.UUID]time.Time)}
}

func (f *fakeDeadlines) Track(_ context.Context, id uuid.UUID, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked[id] = deadline
	return nil
}

func (f *fakeDeadlines) Untrack(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tracked, id)
	return nil
}

func (f *fakeDeadlines) get(id uuid.UUID) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracked[id]
	return t, ok
}

// memCatalog is an in-memory ExamStore and QuestionStore.
type memCatalog struct {
	mu        sync.Mutex
	exams     map[string]model.Exam
	sets      map[uuid.UUID]model.ExamSet
	questions map[string]model.Question
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		exams:     map[string]model.Exam{},
		sets:      map[uuid.UUID]model.ExamSet{},
		questions: map[string]model.Question{},
	}
}

func (m *memCatalog) List(_ context.Context) ([]model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Exam{}
	for _, e := range m.exams {
		out = append(out, e)
	}
	return out, nil
}

func (m *memCatalog) GetByID(_ context.Context, id string) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m *memCatalog) Upsert(_ context.Context, e *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exams[e.ID] = *e
	return nil
}

func (m *memCatalog) ListSets(_ context.Context, examID string) ([]model.ExamSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ExamSet{}
	for _, s := range m.sets {
		if s.ExamID == examID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memCatalog) GetSet(_ context.Context, id uuid.UUID) (*model.ExamSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memCatalog) CreateSet(_ context.Context, s *model.ExamSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	m.sets[s.ID] = *s
	return nil
}

func (m *memCatalog) ListByExam(_ context.Context, examID string) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Question{}
	for _, q := range m.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memCatalog) GetByIDs(_ context.Context, ids []string) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Question{}
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memCatalog) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

// questionUpserter adapts memCatalog to QuestionStore, whose Upsert clashes
// with ExamStore's.
type questionUpserter struct{ *memCatalog }

func (q questionUpserter) Upsert(_ context.Context, question *model.Question) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.questions[question.ID] = *question
	return nil
}

func (m *memCatalog) questionStore() QuestionStore { return questionUpserter{m} }

func newSQLiteStore(t *testing.T) *repository.SQLiteSessionRepository {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "sessions.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := repository.NewSQLiteSessionRepository(context.Background(), db)
	require.NoError(t, err)
	return store
}

type fixture struct {
	store     *repository.SQLiteSessionRepository
	clock     *testClock
	deadlines *fakeDeadlines
	catalog   *memCatalog
	exams     *ExamService
	sessions  *ExamSessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newSQLiteStore(t),
		clock:     newTestClock(),
		deadlines: newFakeDeadlines(),
		catalog:   newMemCatalog(),
	}
	f.exams = NewExamService(f.catalog, f.catalog.questionStore(), nil, time.Minute, zerolog.Nop())
	f.sessions = NewExamSessionService(f.store, f.exams, f.deadlines, zerolog.Nop(), WithSessionClock(f.clock.Now))
	return f
}

func question(id, correct string, tags ...string) model.Question {
	if tags == nil {
		tags = []string{}
	}
	return model.Question{
		ID:     id,
		ExamID: "aws-saa",
		Text:   "Question " + id,
		Options: []model.Option{
			{ID: "a", Text: "A"}, {ID: "b", Text: "B"}, {ID: "c", Text: "C"}, {ID: "d", Text: "D"},
		},
		CorrectOptionID: correct,
		Explanation:     "Because " + correct,
		Tags:            tags,
		Difficulty:      1,
	}
}

func (f *fixture) seedExam(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.catalog.Upsert(ctx, &model.Exam{
		ID: "aws-saa", Title: "AWS Solutions Architect", Code: "SAA-C03",
		Certification: "AWS", TimeLimitMinutes: 130, PassingScore: 72,
	}))
	for _, q := range []model.Question{
		question("q1", "a", "S3"), question("q2", "b", "EC2"),
		question("q3", "c", "S3"), question("q4", "d", "IAM"),
	} {
		require.NoError(t, f.catalog.questionStore().Upsert(ctx, &q))
	}
}

func (f *fixture) create(t *testing.T, p CreateSessionParams) *model.ExamSession {
	t.Helper()
	if p.ExamID == "" {
		p.ExamID = "aws-saa"
	}
	if p.Title == "" {
		p.Title = "AWS Solutions Architect - Set 1"
	}
	s, err := f.sessions.CreateSession(context.Background(), p)
	require.NoError(t, err)
	return s
}
