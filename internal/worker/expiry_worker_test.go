package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmaster/examprep/internal/database"
	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/repository"
	"github.com/cloudmaster/examprep/internal/service"
)

// memQueue is an in-memory deadline set serving both the session service
// and the worker.
type memQueue struct {
	mu        sync.Mutex
	deadlines map[uuid.UUID]time.Time
	failed    []uuid.UUID
}

func newMemQueue() *memQueue {
	return &memQueue{deadlines: make(map[uuid.UUID]time.Time)}
}

func (q *memQueue) Track(_ context.Context, id uuid.UUID, deadline time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadlines[id] = deadline
	return nil
}

func (q *memQueue) Untrack(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.deadlines, id)
	return nil
}

func (q *memQueue) Due(_ context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var ids []uuid.UUID
	for id, d := range q.deadlines {
		if !d.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return q.deadlines[ids[i]].Before(q.deadlines[ids[j]]) })
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (q *memQueue) MarkFailed(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.deadlines, id)
	q.failed = append(q.failed, id)
	return nil
}

func (q *memQueue) tracked(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.deadlines[id]
	return ok
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newSessionService(t *testing.T, q *memQueue, clk *clock) *service.ExamSessionService {
	t.Helper()
	log := zerolog.Nop()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "sessions.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := repository.NewSQLiteSessionRepository(context.Background(), db)
	require.NoError(t, err)
	return service.NewExamSessionService(store, nil, q, log, service.WithSessionClock(clk.Now))
}

func timedSession(t *testing.T, svc *service.ExamSessionService) *model.ExamSession {
	t.Helper()
	s, err := svc.CreateSession(context.Background(), service.CreateSessionParams{
		ExamID: "aws-saa",
		Title:  "AWS Solutions Architect",
		Questions: []model.Question{{
			ID:              "q1",
			ExamID:          "aws-saa",
			Text:            "Which service stores objects?",
			Options:         []model.Option{{ID: "a", Text: "S3"}, {ID: "b", Text: "EBS"}},
			CorrectOptionID: "a",
			Tags:            []string{"storage"},
			Difficulty:      1,
		}},
		TimeLimitMinutes: 1,
		Mode:             model.SessionModeExam,
	})
	require.NoError(t, err)
	return s
}

func TestSweep_SubmitsOnlyDueSessions(t *testing.T) {
	ctx := context.Background()
	q := newMemQueue()
	clk := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := newSessionService(t, q, clk)
	w := NewExpiryWorker(q, svc, time.Second, zerolog.Nop())

	s := timedSession(t, svc)
	require.True(t, q.tracked(s.ID))

	assert.Equal(t, 0, w.Sweep(ctx))

	clk.Advance(61 * time.Second)
	assert.Equal(t, 1, w.Sweep(ctx))
	assert.False(t, q.tracked(s.ID))

	got, err := svc.GetSession(ctx, nil, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusSubmitted, got.Status)
	require.NotNil(t, got.Score)
	assert.Equal(t, 0, *got.Score)
}

func TestSweep_AlreadySubmittedIsUntracked(t *testing.T) {
	ctx := context.Background()
	q := newMemQueue()
	clk := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := newSessionService(t, q, clk)
	w := NewExpiryWorker(q, svc, time.Second, zerolog.Nop())

	s := timedSession(t, svc)
	_, err := svc.Submit(ctx, nil, s.ID)
	require.NoError(t, err)

	// A stale entry left behind by a lost untrack.
	require.NoError(t, q.Track(ctx, s.ID, clk.Now()))
	clk.Advance(time.Second)

	assert.Equal(t, 1, w.Sweep(ctx))
	assert.False(t, q.tracked(s.ID))
}

func TestSweep_DeletedSessionIsDropped(t *testing.T) {
	ctx := context.Background()
	q := newMemQueue()
	clk := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := newSessionService(t, q, clk)
	w := NewExpiryWorker(q, svc, time.Second, zerolog.Nop())

	ghost := uuid.New()
	require.NoError(t, q.Track(ctx, ghost, clk.Now()))

	assert.Equal(t, 0, w.Sweep(ctx))
	assert.False(t, q.tracked(ghost))
	assert.Empty(t, q.failed)
}

type failingSubmitter struct {
	now   time.Time
	calls int
}

func (f *failingSubmitter) SubmitExpired(context.Context, uuid.UUID) (*model.ExamSession, error) {
	f.calls++
	return nil, errors.New("database is down")
}

func (f *failingSubmitter) Now() time.Time { return f.now }

func TestSweep_RepeatedFailureMovesToFailedQueue(t *testing.T) {
	ctx := context.Background()
	q := newMemQueue()
	sub := &failingSubmitter{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	w := NewExpiryWorker(q, sub, time.Second, zerolog.Nop())

	id := uuid.New()
	require.NoError(t, q.Track(ctx, id, sub.now.Add(-time.Second)))

	for i := 1; i < ExpiryMaxAttempts; i++ {
		w.Sweep(ctx)
		assert.True(t, q.tracked(id), "attempt %d", i)
	}
	w.Sweep(ctx)

	assert.Equal(t, ExpiryMaxAttempts, sub.calls)
	assert.False(t, q.tracked(id))
	assert.Equal(t, []uuid.UUID{id}, q.failed)
}

// flakySubmitter fails the first call for every session, then delegates.
type flakySubmitter struct {
	ExpiredSubmitter
	seen map[uuid.UUID]bool
}

func (f *flakySubmitter) SubmitExpired(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	if !f.seen[id] {
		f.seen[id] = true
		return nil, errors.New("connection reset")
	}
	return f.ExpiredSubmitter.SubmitExpired(ctx, id)
}

func TestDrain_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	q := newMemQueue()
	clk := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := newSessionService(t, q, clk)
	sub := &flakySubmitter{ExpiredSubmitter: svc, seen: make(map[uuid.UUID]bool)}
	w := NewExpiryWorker(q, sub, time.Second, zerolog.Nop())

	first, second := timedSession(t, svc), timedSession(t, svc)
	clk.Advance(30 * time.Second)
	pending := timedSession(t, svc)
	clk.Advance(40 * time.Second)

	submitted, stuck, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, submitted)
	assert.Empty(t, stuck)
	assert.Empty(t, q.failed)
	assert.False(t, q.tracked(first.ID))
	assert.False(t, q.tracked(second.ID))
	assert.True(t, q.tracked(pending.ID))
}

func TestDrain_PersistentFailureEndsInFailedQueue(t *testing.T) {
	ctx := context.Background()
	q := newMemQueue()
	sub := &failingSubmitter{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	w := NewExpiryWorker(q, sub, time.Second, zerolog.Nop())

	id := uuid.New()
	require.NoError(t, q.Track(ctx, id, sub.now.Add(-time.Minute)))

	submitted, stuck, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, submitted)
	assert.Empty(t, stuck)
	assert.Equal(t, ExpiryMaxAttempts, sub.calls)
	assert.Equal(t, []uuid.UUID{id}, q.failed)
}

// parkingBrokenQueue cannot move sessions to the failed queue.
type parkingBrokenQueue struct {
	*memQueue
}

func (parkingBrokenQueue) MarkFailed(context.Context, uuid.UUID) error {
	return errors.New("redis unavailable")
}

func TestDrain_ReportsSessionsStillDue(t *testing.T) {
	ctx := context.Background()
	q := parkingBrokenQueue{newMemQueue()}
	sub := &failingSubmitter{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	w := NewExpiryWorker(q, sub, time.Second, zerolog.Nop())

	id := uuid.New()
	require.NoError(t, q.Track(ctx, id, sub.now.Add(-time.Minute)))

	submitted, stuck, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, submitted)
	assert.Equal(t, []uuid.UUID{id}, stuck)
	assert.Equal(t, ExpiryMaxAttempts, sub.calls)
}

func TestDrain_StopsOnCancel(t *testing.T) {
	q := newMemQueue()
	sub := &failingSubmitter{now: time.Now()}
	w := NewExpiryWorker(q, sub, time.Second, zerolog.Nop())
	require.NoError(t, q.Track(context.Background(), uuid.New(), sub.now.Add(-time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := w.Drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStart_StopsOnCancel(t *testing.T) {
	q := newMemQueue()
	sub := &failingSubmitter{now: time.Now()}
	w := NewExpiryWorker(q, sub, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
