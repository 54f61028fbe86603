package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/repository"
	"github.com/cloudmaster/examprep/internal/scoring"
)

// SessionStore persists exam sessions. Update must refuse to rewrite a
// submitted session and report that with repository.ErrNotUpdated.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	ListByOwner(ctx context.Context, ownerID *uuid.UUID) ([]model.ExamSession, error)
	ListInProgress(ctx context.Context) ([]model.ExamSession, error)
	Update(ctx context.Context, s *model.ExamSession) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DeadlineTracker remembers when timed sessions run out.
type DeadlineTracker interface {
	Track(ctx context.Context, id uuid.UUID, deadline time.Time) error
	Untrack(ctx context.Context, id uuid.UUID) error
}

// CreateSessionParams describes a new session.
type CreateSessionParams struct {
	ExamID           string
	SetID            *uuid.UUID
	Title            string
	Questions        []model.Question
	TimeLimitMinutes int
	Mode             model.SessionMode
	RandomizeOptions bool
	OwnerID          *uuid.UUID
	InitialBookmarks []string
	Kind             model.SessionKind
}

// ExamSessionService runs the session lifecycle: create, answer, bookmark,
// navigate and submit.
type ExamSessionService struct {
	store     SessionStore
	catalog   QuestionCatalog
	deadlines DeadlineTracker
	locks     *sessionLocks
	now       func() time.Time
	log       zerolog.Logger
}

// SessionOption customizes an ExamSessionService.
type SessionOption func(*ExamSessionService)

// WithSessionClock overrides the wall clock.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *ExamSessionService) { s.now = now }
}

// NewExamSessionService creates a new ExamSessionService. catalog and
// deadlines may be nil; without a catalog only CreateSession can start
// sessions, and without deadlines the expiry worker never sees them.
func NewExamSessionService(store SessionStore, catalog QuestionCatalog, deadlines DeadlineTracker, log zerolog.Logger, opts ...SessionOption) *ExamSessionService {
	s := &ExamSessionService{
		store:     store,
		catalog:   catalog,
		deadlines: deadlines,
		locks:     newSessionLocks(),
		now:       time.Now,
		log:       log.With().Str("component", "exam_session_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *ExamSessionService) Now() time.Time {
	return s.now()
}

// CreateSession validates and persists a new in-progress session.
func (s *ExamSessionService) CreateSession(ctx context.Context, p CreateSessionParams) (*model.ExamSession, error) {
	if len(p.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if p.Mode == "" {
		p.Mode = model.SessionModeExam
	}
	if !p.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	if p.Kind == "" {
		p.Kind = model.SessionKindOrdinary
	}
	if !p.Kind.Valid() {
		return nil, ErrInvalidKind
	}

	ids := make(map[string]struct{}, len(p.Questions))
	for _, q := range p.Questions {
		if _, dup := ids[q.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateQuestion, q.ID)
		}
		ids[q.ID] = struct{}{}
	}

	limitSec := 0
	if p.Mode == model.SessionModeExam {
		if p.TimeLimitMinutes < 1 {
			return nil, ErrTimeLimitRequired
		}
		limitSec = p.TimeLimitMinutes * 60
	}

	bookmarks := []string{}
	for _, id := range p.InitialBookmarks {
		if _, ok := ids[id]; ok && !slices.Contains(bookmarks, id) {
			bookmarks = append(bookmarks, id)
		}
	}

	session := &model.ExamSession{
		ID:                   uuid.New(),
		ExamID:               p.ExamID,
		SetID:                p.SetID,
		Title:                p.Title,
		Kind:                 p.Kind,
		Mode:                 p.Mode,
		RandomizeOptions:     p.RandomizeOptions,
		Questions:            slices.Clone(p.Questions),
		Status:               model.SessionStatusInProgress,
		OwnerID:              p.OwnerID,
		StartedAt:            s.now().UTC().Truncate(time.Microsecond),
		TimeLimitSec:         limitSec,
		CurrentIndex:         0,
		Answers:              map[string]string{},
		Bookmarks:            bookmarks,
		PresentedQuestionIDs: []string{p.Questions[0].ID},
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if session.IsTimed() && s.deadlines != nil {
		if err := s.deadlines.Track(ctx, session.ID, session.Deadline()); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to track deadline")
		}
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", session.ExamID).
		Str("mode", string(session.Mode)).
		Str("kind", string(session.Kind)).
		Int("questions", len(session.Questions)).
		Msg("Session created")
	return session, nil
}

// GetSession returns a session visible to owner. Sessions without an owner
// are visible to anyone holding their id.
func (s *ExamSessionService) GetSession(ctx context.Context, owner *uuid.UUID, id uuid.UUID) (*model.ExamSession, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(session, owner) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns the owner's sessions, newest first.
func (s *ExamSessionService) ListSessions(ctx context.Context, owner *uuid.UUID) ([]model.ExamSession, error) {
	sessions, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// SelectAnswer records optionID as the answer to questionID, replacing any
// earlier answer.
func (s *ExamSessionService) SelectAnswer(ctx context.Context, owner *uuid.UUID, id uuid.UUID, questionID, optionID string) (*model.ExamSession, error) {
	return s.mutate(ctx, owner, id, func(session *model.ExamSession) (bool, error) {
		q, ok := session.Question(questionID)
		if !ok {
			return false, ErrUnknownQuestion
		}
		if !q.HasOption(optionID) {
			return false, ErrUnknownOption
		}

		switch session.Mode {
		case model.SessionModeStudy:
			return false, ErrStudyModeReadOnly
		case model.SessionModePractice:
			if prev, answered := session.Answers[questionID]; answered {
				if prev == optionID {
					return false, nil
				}
				return false, ErrAnswerLocked
			}
		}

		session.Answers[questionID] = optionID
		session.MarkPresented(questionID)
		return true, nil
	})
}

// ToggleBookmark flips the bookmark on questionID.
func (s *ExamSessionService) ToggleBookmark(ctx context.Context, owner *uuid.UUID, id uuid.UUID, questionID string) (*model.ExamSession, error) {
	return s.mutate(ctx, owner, id, func(session *model.ExamSession) (bool, error) {
		if _, ok := session.Question(questionID); !ok {
			return false, ErrUnknownQuestion
		}

		if i := slices.Index(session.Bookmarks, questionID); i >= 0 {
			session.Bookmarks = slices.Delete(session.Bookmarks, i, i+1)
		} else {
			session.Bookmarks = append(session.Bookmarks, questionID)
		}
		session.MarkPresented(questionID)
		return true, nil
	})
}

// GoToQuestion moves the cursor to index. Out-of-range indexes are rejected.
func (s *ExamSessionService) GoToQuestion(ctx context.Context, owner *uuid.UUID, id uuid.UUID, index int) (*model.ExamSession, error) {
	return s.mutate(ctx, owner, id, func(session *model.ExamSession) (bool, error) {
		if index < 0 || index >= len(session.Questions) {
			return false, ErrIndexOutOfRange
		}
		session.CurrentIndex = index
		session.MarkPresented(session.Questions[index].ID)
		return true, nil
	})
}

// Submit grades the session and freezes it. Submitting a submitted session
// returns it unchanged.
func (s *ExamSessionService) Submit(ctx context.Context, owner *uuid.UUID, id uuid.UUID) (*model.ExamSession, error) {
	release := s.locks.lock(id)
	defer release()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(session, owner) {
		return nil, ErrSessionNotFound
	}
	return s.submitLocked(ctx, session, "manual")
}

// SubmitExpired submits a timed session whose deadline has passed. It is
// called by the per-connection timer and by the expiry worker; whichever
// comes second finds the session already submitted and gets it unchanged.
func (s *ExamSessionService) SubmitExpired(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	release := s.locks.lock(id)
	defer release()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsSubmitted() {
		return session, nil
	}
	if session.IsTimed() && s.now().Before(session.Deadline()) {
		return nil, ErrNotExpired
	}
	return s.submitLocked(ctx, session, "expired")
}

// DeleteSession removes a session from the store.
func (s *ExamSessionService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	release := s.locks.lock(id)
	defer release()

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	s.untrack(ctx, id)
	s.log.Info().Str("session_id", id.String()).Msg("Session deleted")
	return nil
}

// RestoreDeadlines re-registers every open timed session with the deadline
// tracker. Called at startup so a flushed tracker cannot strand sessions.
func (s *ExamSessionService) RestoreDeadlines(ctx context.Context) (int, error) {
	if s.deadlines == nil {
		return 0, nil
	}
	sessions, err := s.store.ListInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("list in-progress sessions: %w", err)
	}

	restored := 0
	for i := range sessions {
		if !sessions[i].IsTimed() {
			continue
		}
		if err := s.deadlines.Track(ctx, sessions[i].ID, sessions[i].Deadline()); err != nil {
			return restored, fmt.Errorf("track %s: %w", sessions[i].ID, err)
		}
		restored++
	}
	return restored, nil
}

// mutate runs fn on an in-progress session under the session lock and
// persists the result when fn reports a change. A timed session whose
// deadline has passed is submitted instead and fn never runs.
func (s *ExamSessionService) mutate(ctx context.Context, owner *uuid.UUID, id uuid.UUID, fn func(*model.ExamSession) (bool, error)) (*model.ExamSession, error) {
	release := s.locks.lock(id)
	defer release()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(session, owner) {
		return nil, ErrSessionNotFound
	}
	if session.IsSubmitted() {
		return nil, ErrSessionSubmitted
	}
	// Past the deadline the session is graded as it stood; the change is dropped.
	if session.IsTimed() && !s.now().Before(session.Deadline()) {
		if _, err := s.submitLocked(ctx, session, "expired"); err != nil {
			return nil, err
		}
		return nil, ErrTimeExpired
	}

	changed, err := fn(session)
	if err != nil {
		return nil, err
	}
	if !changed {
		return session, nil
	}

	if err := s.store.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrNotUpdated) {
			return nil, ErrSessionSubmitted
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

func (s *ExamSessionService) submitLocked(ctx context.Context, session *model.ExamSession, reason string) (*model.ExamSession, error) {
	if session.IsSubmitted() {
		return session, nil
	}

	result := scoring.Grade(session.Questions, session.Answers)
	submittedAt := s.now().UTC().Truncate(time.Microsecond)

	graded := *session
	graded.Status = model.SessionStatusSubmitted
	graded.SubmittedAt = &submittedAt
	graded.Score = &result.Score
	graded.CorrectCount = &result.CorrectCount
	graded.TotalCount = &result.TotalCount
	graded.TagBreakdown = result.TagBreakdown

	if err := s.store.Update(ctx, &graded); err != nil {
		if !errors.Is(err, repository.ErrNotUpdated) {
			return nil, fmt.Errorf("submit session: %w", err)
		}
		// Another writer submitted first; return what it stored.
		stored, loadErr := s.load(ctx, session.ID)
		if loadErr != nil {
			return nil, loadErr
		}
		if !stored.IsSubmitted() {
			return nil, fmt.Errorf("submit session %s: %w", session.ID, err)
		}
		return stored, nil
	}

	s.untrack(ctx, graded.ID)

	s.log.Info().
		Str("session_id", graded.ID.String()).
		Str("reason", reason).
		Int("score", result.Score).
		Int("correct", result.CorrectCount).
		Int("total", result.TotalCount).
		Msg("Session submitted")
	return &graded, nil
}

func (s *ExamSessionService) load(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *ExamSessionService) untrack(ctx context.Context, id uuid.UUID) {
	if s.deadlines == nil {
		return
	}
	if err := s.deadlines.Untrack(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("session_id", id.String()).Msg("Failed to untrack deadline")
	}
}

func visibleTo(session *model.ExamSession, owner *uuid.UUID) bool {
	if session.OwnerID == nil {
		return true
	}
	return owner != nil && *owner == *session.OwnerID
}
