package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmaster/examprep/internal/model"
)

func TestDashboard_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	dash := NewDashboardService(f.sessions, f.exams, 70, zerolog.Nop())

	empty, err := dash.GetDashboardData(ctx, &owner)
	require.NoError(t, err)
	assert.Zero(t, empty.ExamsTaken)
	assert.Zero(t, empty.AverageScore)
	assert.Empty(t, empty.RecentSessions)

	a := f.create(t, CreateSessionParams{Questions: fourQuestions(), TimeLimitMinutes: 5, OwnerID: &owner})
	_, err = f.sessions.SelectAnswer(ctx, &owner, a.ID, "q1", "a")
	require.NoError(t, err)
	_, err = f.sessions.Submit(ctx, &owner, a.ID) // 25
	require.NoError(t, err)

	b := f.create(t, CreateSessionParams{Questions: fourQuestions()[:2], TimeLimitMinutes: 5, OwnerID: &owner})
	_, err = f.sessions.SelectAnswer(ctx, &owner, b.ID, "q1", "a")
	require.NoError(t, err)
	_, err = f.sessions.Submit(ctx, &owner, b.ID) // 50
	require.NoError(t, err)

	f.create(t, CreateSessionParams{Questions: fourQuestions(), Mode: model.SessionModePractice, OwnerID: &owner})

	data, err := dash.GetDashboardData(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, 2, data.ExamsTaken)
	assert.Equal(t, 38, data.AverageScore)
	assert.Equal(t, 1, data.InProgress)
	assert.Len(t, data.RecentSessions, 3)
}

func TestDashboard_Result(t *testing.T) {
	f := newFixture(t)
	f.seedExam(t)
	ctx := context.Background()
	dash := NewDashboardService(f.sessions, f.exams, 70, zerolog.Nop())

	s := f.create(t, CreateSessionParams{Questions: fourQuestions(), TimeLimitMinutes: 5})
	_, err := dash.GetResult(ctx, nil, s.ID, f.clock.Now())
	assert.ErrorIs(t, err, ErrNotSubmitted)

	for qid, opt := range map[string]string{"q1": "a", "q2": "b", "q3": "c"} {
		_, err := f.sessions.SelectAnswer(ctx, nil, s.ID, qid, opt)
		require.NoError(t, err)
	}
	_, err = f.sessions.Submit(ctx, nil, s.ID)
	require.NoError(t, err)

	res, err := dash.GetResult(ctx, nil, s.ID, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 72, res.PassingScore)
	assert.True(t, res.Passed)
	assert.Equal(t, 75, *res.Score)

	retired := f.create(t, CreateSessionParams{ExamID: "retired", Questions: fourQuestions(), TimeLimitMinutes: 5})
	_, err = f.sessions.Submit(ctx, nil, retired.ID)
	require.NoError(t, err)
	res, err = dash.GetResult(ctx, nil, retired.ID, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 70, res.PassingScore)
	assert.False(t, res.Passed)
}
