package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/scoring"
)

const recentSessionsLimit = 5

// DashboardData consolidates the progress figures of one user.
type DashboardData struct {
	ExamsTaken     int              `json:"exams_taken"`
	AverageScore   int              `json:"average_score"`
	InProgress     int              `json:"in_progress"`
	RecentSessions []SessionSummary `json:"recent_sessions"`
}

// SessionResult is a submitted session with its pass verdict.
type SessionResult struct {
	SessionView
	PassingScore int  `json:"passing_score"`
	Passed       bool `json:"passed"`
}

// DashboardService computes user progress and session results.
type DashboardService struct {
	sessions       *ExamSessionService
	catalog        QuestionCatalog
	defaultPassing int
	log            zerolog.Logger
}

// NewDashboardService creates a new DashboardService. defaultPassing is used
// when a session's exam is no longer in the catalog.
func NewDashboardService(sessions *ExamSessionService, catalog QuestionCatalog, defaultPassing int, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		sessions:       sessions,
		catalog:        catalog,
		defaultPassing: defaultPassing,
		log:            log.With().Str("component", "dashboard_service").Logger(),
	}
}

// GetDashboardData returns the owner's exams taken, average score and
// in-progress count, plus the most recent sessions.
func (s *DashboardService) GetDashboardData(ctx context.Context, owner *uuid.UUID) (*DashboardData, error) {
	sessions, err := s.sessions.ListSessions(ctx, owner)
	if err != nil {
		return nil, err
	}

	data := &DashboardData{RecentSessions: []SessionSummary{}}
	scoreSum := 0
	for i := range sessions {
		switch {
		case sessions[i].IsSubmitted():
			data.ExamsTaken++
			if sessions[i].Score != nil {
				scoreSum += *sessions[i].Score
			}
		case sessions[i].Status == model.SessionStatusInProgress:
			data.InProgress++
		}
		if len(data.RecentSessions) < recentSessionsLimit {
			data.RecentSessions = append(data.RecentSessions, SummarizeSession(&sessions[i]))
		}
	}
	data.AverageScore = scoring.Percent(scoreSum, data.ExamsTaken*100)
	return data, nil
}

// GetResult returns a submitted session with its pass verdict against the
// exam's passing score.
func (s *DashboardService) GetResult(ctx context.Context, owner *uuid.UUID, id uuid.UUID, now time.Time) (*SessionResult, error) {
	session, err := s.sessions.GetSession(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if !session.IsSubmitted() {
		return nil, ErrNotSubmitted
	}

	passing := s.defaultPassing
	if s.catalog != nil {
		exam, err := s.catalog.GetExam(ctx, session.ExamID)
		switch {
		case err == nil && exam.PassingScore > 0:
			passing = exam.PassingScore
		case err != nil && !errors.Is(err, ErrNotFound):
			s.log.Warn().Err(err).Str("exam_id", session.ExamID).Msg("Passing score lookup failed, using default")
		}
	}

	return &SessionResult{
		SessionView:  PresentSession(session, now),
		PassingScore: passing,
		Passed:       session.Score != nil && *session.Score >= passing,
	}, nil
}
