package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/review"
)

// ReviewService exposes the wrong and bookmarked question lists and starts
// re-practice sessions from them.
type ReviewService struct {
	sessions *ExamSessionService
	catalog  QuestionCatalog
	log      zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(sessions *ExamSessionService, catalog QuestionCatalog, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		sessions: sessions,
		catalog:  catalog,
		log:      log.With().Str("component", "review_service").Logger(),
	}
}

// GetReviews reconciles the owner's whole session history.
func (s *ReviewService) GetReviews(ctx context.Context, owner *uuid.UUID) ([]review.ExamReview, error) {
	sessions, err := s.sessions.ListSessions(ctx, owner)
	if err != nil {
		return nil, err
	}
	return review.Reconcile(sessions, s.examTitles(ctx)), nil
}

// StartReview creates a practice session holding exactly the current wrong
// or bookmarked questions of one exam set.
func (s *ReviewService) StartReview(ctx context.Context, owner *uuid.UUID, examID, setLabel string, kind model.SessionKind) (*model.ExamSession, error) {
	if !kind.IsReview() {
		return nil, ErrInvalidKind
	}

	sessions, err := s.sessions.ListSessions(ctx, owner)
	if err != nil {
		return nil, err
	}
	titles := s.examTitles(ctx)
	key := review.Key{ExamID: examID, Label: setLabel}

	set, ok := review.Find(review.Reconcile(sessions, titles), key)
	if !ok {
		return nil, ErrNothingToReview
	}

	bookmarked := make([]string, 0, len(set.Bookmarked))
	for _, b := range set.Bookmarked {
		bookmarked = append(bookmarked, b.Question.ID)
	}

	var questions []model.Question
	switch kind {
	case model.SessionKindWrongReview:
		for _, w := range set.Wrong {
			questions = append(questions, w.Question)
		}
	case model.SessionKindBookmarkReview:
		for _, b := range set.Bookmarked {
			questions = append(questions, b.Question)
		}
	}
	if len(questions) == 0 {
		return nil, ErrNothingToReview
	}

	session, err := s.sessions.CreateSession(ctx, CreateSessionParams{
		ExamID:           examID,
		Title:            reviewTitle(titles[examID], setLabel),
		Questions:        questions,
		Mode:             model.SessionModePractice,
		OwnerID:          owner,
		InitialBookmarks: bookmarked,
		Kind:             kind,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID).
		Str("set_label", setLabel).
		Str("kind", string(kind)).
		Msg("Review session started")
	return session, nil
}

// reviewTitle rebuilds a title that reconciles to the same set label as the
// sessions the review came from.
func reviewTitle(examTitle, setLabel string) string {
	switch {
	case examTitle == "":
		return setLabel
	case setLabel == "":
		return examTitle
	default:
		return examTitle + " - " + setLabel
	}
}

func (s *ReviewService) examTitles(ctx context.Context) map[string]string {
	titles := map[string]string{}
	if s.catalog == nil {
		return titles
	}
	exams, err := s.catalog.ListExams(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Exam titles unavailable, grouping by raw session titles")
		return titles
	}
	for _, e := range exams {
		titles[e.ID] = e.Title
	}
	return titles
}
