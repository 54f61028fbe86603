package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/service"
)

const (
	// ExpiryBatchSize caps how many due sessions one sweep submits.
	ExpiryBatchSize = 100
	// ExpiryMaxAttempts is how many sweeps may fail on a session before it
	// is parked in the failed queue.
	ExpiryMaxAttempts = 3
)

// DeadlineQueue lists and retires session deadlines.
type DeadlineQueue interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error)
	Untrack(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// ExpiredSubmitter grades sessions whose time ran out.
type ExpiredSubmitter interface {
	SubmitExpired(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	Now() time.Time
}

// ExpiryWorker auto-submits timed sessions nobody is connected to. Clients
// with an open stream are usually submitted by their own countdown first;
// the worker then finds them already submitted and just untracks them.
type ExpiryWorker struct {
	queue    DeadlineQueue
	sessions ExpiredSubmitter
	interval time.Duration
	attempts map[uuid.UUID]int
	log      zerolog.Logger
}

func NewExpiryWorker(queue DeadlineQueue, sessions ExpiredSubmitter, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ExpiryWorker{
		queue:    queue,
		sessions: sessions,
		interval: interval,
		attempts: make(map[uuid.UUID]int),
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

// Start sweeps on every interval until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep submits every due session once and returns how many it submitted.
func (w *ExpiryWorker) Sweep(ctx context.Context) int {
	ids, err := w.queue.Due(ctx, w.sessions.Now(), ExpiryBatchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("List due sessions failed")
		}
		return 0
	}

	submitted := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return submitted
		}
		if w.expire(ctx, id) {
			submitted++
		}
	}
	return submitted
}

// Drain sweeps until nothing is due or ExpiryMaxAttempts sweeps in a row
// submit nothing, which is long enough for failing sessions to reach the
// failed queue. It returns how many sessions were submitted and the ids
// still due afterwards.
func (w *ExpiryWorker) Drain(ctx context.Context) (int, []uuid.UUID, error) {
	submitted, idle := 0, 0
	for {
		n := w.Sweep(ctx)
		submitted += n
		if err := ctx.Err(); err != nil {
			return submitted, nil, err
		}

		due, err := w.queue.Due(ctx, w.sessions.Now(), ExpiryBatchSize)
		if err != nil {
			return submitted, nil, err
		}
		if len(due) == 0 {
			return submitted, nil, nil
		}

		if n > 0 {
			idle = 0
			continue
		}
		if idle++; idle >= ExpiryMaxAttempts {
			return submitted, due, nil
		}
	}
}

// ----------------------------------------------------------------
// Single session
// ----------------------------------------------------------------

func (w *ExpiryWorker) expire(ctx context.Context, id uuid.UUID) bool {
	log := w.log.With().Str("session_id", id.String()).Logger()

	session, err := w.sessions.SubmitExpired(ctx, id)
	switch {
	case err == nil:
		delete(w.attempts, id)
		w.untrack(ctx, log, id)
		log.Info().Int("score", scoreOf(session)).Msg("Expired session submitted")
		return true

	case errors.Is(err, service.ErrSessionNotFound):
		delete(w.attempts, id)
		w.untrack(ctx, log, id)
		log.Debug().Msg("Deadline for deleted session dropped")
		return false

	case errors.Is(err, service.ErrNotExpired):
		// Tracked early; picked up on a later sweep.
		return false
	}

	w.attempts[id]++
	if w.attempts[id] < ExpiryMaxAttempts {
		log.Warn().Err(err).Int("attempt", w.attempts[id]).Msg("Auto-submit failed, will retry")
		return false
	}

	delete(w.attempts, id)
	log.Error().Err(err).Msg("Auto-submit failed repeatedly, moving to failed queue")
	if err := w.queue.MarkFailed(ctx, id); err != nil {
		log.Error().Err(err).Msg("MarkFailed error")
	}
	return false
}

func (w *ExpiryWorker) untrack(ctx context.Context, log zerolog.Logger, id uuid.UUID) {
	if err := w.queue.Untrack(ctx, id); err != nil {
		log.Warn().Err(err).Msg("Untrack error")
	}
}

func scoreOf(s *model.ExamSession) int {
	if s == nil || s.Score == nil {
		return 0
	}
	return *s.Score
}
