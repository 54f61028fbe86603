package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDeadlineRepository is the in-process deadline set used when Redis is
// not configured. It is rebuilt from storage on every start.
type MemoryDeadlineRepository struct {
	mu        sync.Mutex
	deadlines map[uuid.UUID]time.Time
	failed    []uuid.UUID
}

// NewMemoryDeadlineRepository creates an empty MemoryDeadlineRepository.
func NewMemoryDeadlineRepository() *MemoryDeadlineRepository {
	return &MemoryDeadlineRepository{deadlines: make(map[uuid.UUID]time.Time)}
}

// Track registers or moves the deadline of a session.
func (r *MemoryDeadlineRepository) Track(_ context.Context, id uuid.UUID, deadline time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadlines[id] = deadline
	return nil
}

// Untrack forgets a session deadline.
func (r *MemoryDeadlineRepository) Untrack(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.deadlines, id)
	return nil
}

// Due returns up to limit sessions whose deadline is at or before now,
// earliest first.
func (r *MemoryDeadlineRepository) Due(_ context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uuid.UUID, 0)
	for id, d := range r.deadlines {
		if !d.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.deadlines[ids[i]].Before(r.deadlines[ids[j]])
	})
	if limit > 0 && int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// MarkFailed drops the deadline and remembers the session for Failed.
func (r *MemoryDeadlineRepository) MarkFailed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.deadlines, id)
	r.failed = append(r.failed, id)
	return nil
}

// Failed returns the sessions that could not be auto-submitted.
func (r *MemoryDeadlineRepository) Failed() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.failed...)
}
