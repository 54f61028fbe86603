package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/review"
)

func TestReviewService_WrongReviewMastersQuestions(t *testing.T) {
	f := newFixture(t)
	f.seedExam(t)
	ctx := context.Background()
	owner := uuid.New()
	reviews := NewReviewService(f.sessions, f.exams, zerolog.Nop())

	set, err := f.exams.CreateSet(ctx, "aws-saa", &model.CreateSetRequest{
		Name: "Set 1", Type: "full", QuestionIDs: []string{"q1", "q2", "q3"},
	})
	require.NoError(t, err)
	origin, err := f.sessions.StartSession(ctx, &owner, &model.StartSessionRequest{ExamID: "aws-saa", SetID: &set.ID})
	require.NoError(t, err)

	for qid, opt := range map[string]string{"q1": "b", "q2": "a", "q3": "c"} {
		_, err := f.sessions.SelectAnswer(ctx, &owner, origin.ID, qid, opt)
		require.NoError(t, err)
	}
	_, err = f.sessions.ToggleBookmark(ctx, &owner, origin.ID, "q2")
	require.NoError(t, err)
	_, err = f.sessions.Submit(ctx, &owner, origin.ID)
	require.NoError(t, err)

	key := review.Key{ExamID: "aws-saa", Label: "Set 1"}
	overview, err := reviews.GetReviews(ctx, &owner)
	require.NoError(t, err)
	before, ok := review.Find(overview, key)
	require.True(t, ok)
	assert.Len(t, before.Wrong, 2)

	f.clock.Advance(time.Hour)
	rs, err := reviews.StartReview(ctx, &owner, "aws-saa", "Set 1", model.SessionKindWrongReview)
	require.NoError(t, err)
	assert.Equal(t, model.SessionKindWrongReview, rs.Kind)
	assert.Equal(t, model.SessionModePractice, rs.Mode)
	assert.Equal(t, "AWS Solutions Architect - Set 1", rs.Title)
	assert.Len(t, rs.Questions, 2)
	assert.Equal(t, []string{"q2"}, rs.Bookmarks)

	_, err = f.sessions.SelectAnswer(ctx, &owner, rs.ID, "q1", "a")
	require.NoError(t, err)

	overview, err = reviews.GetReviews(ctx, &owner)
	require.NoError(t, err)
	after, ok := review.Find(overview, key)
	require.True(t, ok)
	require.Len(t, after.Wrong, 1)
	assert.Equal(t, "q2", after.Wrong[0].Question.ID)
	require.Len(t, after.Bookmarked, 1)
	assert.Equal(t, "q2", after.Bookmarked[0].Question.ID)
}

func TestReviewService_BookmarkReview(t *testing.T) {
	f := newFixture(t)
	f.seedExam(t)
	ctx := context.Background()
	reviews := NewReviewService(f.sessions, f.exams, zerolog.Nop())

	s, err := f.sessions.StartSession(ctx, nil, &model.StartSessionRequest{ExamID: "aws-saa", Mode: "study"})
	require.NoError(t, err)
	_, err = f.sessions.ToggleBookmark(ctx, nil, s.ID, "q4")
	require.NoError(t, err)

	rs, err := reviews.StartReview(ctx, nil, "aws-saa", "", model.SessionKindBookmarkReview)
	require.NoError(t, err)
	require.Len(t, rs.Questions, 1)
	assert.Equal(t, "q4", rs.Questions[0].ID)
	assert.Equal(t, []string{"q4"}, rs.Bookmarks)
	assert.Equal(t, "AWS Solutions Architect", rs.Title)
}

func TestReviewService_NothingToReview(t *testing.T) {
	f := newFixture(t)
	f.seedExam(t)
	ctx := context.Background()
	reviews := NewReviewService(f.sessions, f.exams, zerolog.Nop())

	_, err := reviews.StartReview(ctx, nil, "aws-saa", "Set 1", model.SessionKindWrongReview)
	assert.ErrorIs(t, err, ErrNothingToReview)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reviews.StartReview(ctx, nil, "aws-saa", "Set 1", model.SessionKindOrdinary)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestReviewTitle(t *testing.T) {
	assert.Equal(t, "Exam - Set", reviewTitle("Exam", "Set"))
	assert.Equal(t, "Exam", reviewTitle("Exam", ""))
	assert.Equal(t, "Set", reviewTitle("", "Set"))
	assert.Equal(t, "Set", review.SetLabel("Exam", reviewTitle("Exam", "Set")))
}
