package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmaster/examprep/internal/config"
	"github.com/cloudmaster/examprep/internal/database"
	"github.com/cloudmaster/examprep/internal/handler"
	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/repository"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/validator"
)

// ─── In-memory stores ──────────────────────────────────────────────────

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) PromoteAdmin(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsAdmin = true
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

type memExams struct {
	mu    sync.Mutex
	exams map[string]model.Exam
	sets  map[uuid.UUID]model.ExamSet
}

func (m *memExams) List(_ context.Context) ([]model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Exam{}
	for _, e := range m.exams {
		out = append(out, e)
	}
	return out, nil
}

func (m *memExams) GetByID(_ context.Context, id string) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m *memExams) Upsert(_ context.Context, e *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exams[e.ID] = *e
	return nil
}

func (m *memExams) ListSets(_ context.Context, examID string) ([]model.ExamSet, error) {
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

func (m *memExams) GetSet(_ context.Context, id uuid.UUID) (*model.ExamSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memExams) CreateSet(_ context.Context, s *model.ExamSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	m.sets[s.ID] = *s
	return nil
}

type memQuestions struct {
	mu        sync.Mutex
	questions map[string]model.Question
}

func (m *memQuestions) ListByExam(_ context.Context, examID string) ([]model.Question, error) {
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

func (m *memQuestions) GetByIDs(_ context.Context, ids []string) ([]model.Question, error) {
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

func (m *memQuestions) Upsert(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = *q
	return nil
}

func (m *memQuestions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

// ─── Harness ───────────────────────────────────────────────────────────

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	auth   *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	cfg := &config.Config{
		GinMode:             gin.TestMode,
		JWTSecret:           "test-secret",
		JWTExpiry:           time.Hour,
		BcryptCost:          4,
		AuthRateLimitPerMin: 100,
		DefaultPassingScore: 70,
	}
	log := zerolog.Nop()

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "sessions.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := repository.NewSQLiteSessionRepository(context.Background(), db)
	require.NoError(t, err)

	exams := &memExams{exams: map[string]model.Exam{}, sets: map[uuid.UUID]model.ExamSet{}}
	questions := &memQuestions{questions: map[string]model.Question{}}

	authService := service.NewAuthService(cfg, &memUsers{users: map[uuid.UUID]model.User{}}, nil, log)
	examService := service.NewExamService(exams, questions, nil, time.Minute, log)
	questionService := service.NewQuestionService(questions, examService, log)
	sessionService := service.NewExamSessionService(store, examService, nil, log)
	reviewService := service.NewReviewService(sessionService, examService, log)
	dashboardService := service.NewDashboardService(sessionService, examService, cfg.DefaultPassingScore, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := SetupRouter(ctx, authService, &Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Exam:      handler.NewExamHandler(examService, log),
		Question:  handler.NewQuestionHandler(questionService, log),
		Session:   handler.NewSessionHandler(sessionService, dashboardService, log),
		Review:    handler.NewReviewHandler(reviewService, sessionService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		WS:        handler.NewWSHandler(sessionService, time.Second, log, nil),
		System:    handler.NewSystemHandler(map[string]handler.HealthCheck{}, log),
	}, cfg, log)

	return &testServer{engine: engine, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	user, _, err := s.auth.EnsureAdmin(context.Background(), "admin@example.com", "Admin", "password123")
	require.NoError(t, err)
	token, err := s.auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", model.RegisterRequest{
		Email: email, DisplayName: "User", Password: "password123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func (s *testServer) seedCatalog(t *testing.T) {
	t.Helper()
	admin := s.adminToken(t)
	w, _ := s.do(t, http.MethodPut, "/api/v1/admin/exams", model.UpsertExamRequest{
		ID: "aws-saa", Title: "AWS Solutions Architect", Code: "SAA-C03",
		Certification: "AWS", TimeLimitMinutes: 130, PassingScore: 50,
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, id := range []string{"q1", "q2"} {
		w, _ := s.do(t, http.MethodPut, "/api/v1/admin/exams/aws-saa/questions", model.UpsertQuestionRequest{
			ID:              id,
			Text:            "Question " + id,
			Options:         []model.OptionRequest{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
			CorrectOptionID: "a",
			Tags:            []string{"S3"},
		}, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func (s *testServer) start(t *testing.T, mode, token string) service.SessionView {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/sessions", model.StartSessionRequest{ExamID: "aws-saa", Mode: mode}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Session service.SessionView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Session
}

// ─── Tests ─────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "user@example.com")

	w, env := s.do(t, http.MethodPut, "/api/v1/admin/exams", model.UpsertExamRequest{}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)

	w, env = s.do(t, http.MethodPut, "/api/v1/admin/exams", model.UpsertExamRequest{}, user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ADMIN_ACCESS_ONLY", env.Error.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/sessions", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "dup@example.com")

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", model.RegisterRequest{
		Email: "DUP@example.com", DisplayName: "Again", Password: "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMAIL_TAKEN", env.Error.Code)
}

func TestCatalog_Cacheable(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/exams/aws-saa", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=60")
	assert.Contains(t, string(env.Data), "AWS Solutions Architect")

	w, env = s.do(t, http.MethodGet, "/api/v1/exams/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
}

func TestStartSession_Validation(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{"mode": "cram"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "exam_id")
	assert.Contains(t, env.Error.Fields, "mode")
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog(t)
	user := s.register(t, "learner@example.com")

	session := s.start(t, "exam", user)
	require.Len(t, session.Questions, 2)
	assert.Empty(t, session.Questions[0].CorrectOptionID, "exam mode hides answers")
	path := "/api/v1/sessions/" + session.ID.String()

	w, _ := s.do(t, http.MethodPut, path+"/answers", model.SelectAnswerRequest{QuestionID: "q1", OptionID: "a"}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodPut, path+"/answers", model.SelectAnswerRequest{QuestionID: "q1", OptionID: "z"}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_OPTION", env.Error.Code)

	w, env = s.do(t, http.MethodPost, path+"/bookmarks", model.ToggleBookmarkRequest{QuestionID: "q2"}, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"bookmarked":true`)

	idx := 5
	w, env = s.do(t, http.MethodPut, path+"/cursor", model.NavigateRequest{Index: &idx}, user)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INDEX_OUT_OF_RANGE", env.Error.Code)

	w, env = s.do(t, http.MethodGet, path+"/result", nil, user)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_NOT_SUBMITTED", env.Error.Code)

	w, _ = s.do(t, http.MethodPost, path+"/submit", nil, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodPut, path+"/answers", model.SelectAnswerRequest{QuestionID: "q2", OptionID: "a"}, user)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_SUBMITTED", env.Error.Code)

	w, env = s.do(t, http.MethodGet, path+"/result", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Result service.SessionResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotNil(t, data.Result.Score)
	assert.Equal(t, 50, *data.Result.Score)
	assert.True(t, data.Result.Passed)
	assert.Equal(t, 50, data.Result.PassingScore)
}

func TestSessions_OwnerIsolation(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog(t)
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")

	session := s.start(t, "practice", alice)
	path := "/api/v1/sessions/" + session.ID.String()

	w, _ := s.do(t, http.MethodGet, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodDelete, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/sessions", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, string(env.Data))

	w, _ = s.do(t, http.MethodDelete, path, nil, alice)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, path, nil, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPracticeMode_LocksAnswers(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog(t)

	session := s.start(t, "practice", "")
	path := "/api/v1/sessions/" + session.ID.String()

	w, env := s.do(t, http.MethodPut, path+"/answers", model.SelectAnswerRequest{QuestionID: "q1", OptionID: "b"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Session service.SessionView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	for _, q := range data.Session.Questions {
		if q.ID == "q1" {
			assert.Equal(t, "a", q.CorrectOptionID, "practice reveals answered questions")
		}
	}

	w, env = s.do(t, http.MethodPut, path+"/answers", model.SelectAnswerRequest{QuestionID: "q1", OptionID: "a"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ANSWER_LOCKED", env.Error.Code)
}

func TestMalformedSessionID(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_ID", env.Error.Code)
}

func TestReviews_StartWrongReview(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog(t)
	user := s.register(t, "reviewer@example.com")

	session := s.start(t, "practice", user)
	path := "/api/v1/sessions/" + session.ID.String()
	s.do(t, http.MethodPut, path+"/answers", model.SelectAnswerRequest{QuestionID: "q1", OptionID: "b"}, user)
	s.do(t, http.MethodPut, path+"/answers", model.SelectAnswerRequest{QuestionID: "q2", OptionID: "a"}, user)
	w, _ := s.do(t, http.MethodPost, path+"/submit", nil, user)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/reviews/start", model.StartReviewRequest{
		ExamID:   "aws-saa",
		SetLabel: "",
		Kind:     string(model.SessionKindWrongReview),
	}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Session service.SessionView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Session.Questions, 1)
	assert.Equal(t, "q1", data.Session.Questions[0].ID)
	assert.Equal(t, model.SessionKindWrongReview, data.Session.Kind)

	w, env = s.do(t, http.MethodPost, "/api/v1/reviews/start", model.StartReviewRequest{
		ExamID:   "aws-saa",
		SetLabel: "",
		Kind:     string(model.SessionKindBookmarkReview),
	}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NOTHING_TO_REVIEW", env.Error.Code)
}
