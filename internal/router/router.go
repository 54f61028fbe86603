package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/config"
	"github.com/cloudmaster/examprep/internal/handler"
	"github.com/cloudmaster/examprep/internal/middleware"
	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Exam      *handler.ExamHandler
	Question  *handler.QuestionHandler
	Session   *handler.SessionHandler
	Review    *handler.ReviewHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by the router, such as rate limiter sweeps.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(
		response.RequestIDMiddleware(),
		middleware.RequestLogger(log),
		middleware.Brotli(),
		middleware.OptionalAuth(authService),
		middleware.RejectRevokedTokens(authService, log),
	)

	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(ctx, cfg.AuthRateLimitPerMin, time.Minute)
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)

		auth.GET("/me", middleware.RequireUser(), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequireUser(), handlers.Auth.Logout)
	}

	// ─── 2. Catalog Group (Public, Cacheable) ──────────────────────────
	catalog := router.Group("/api/v1")
	catalog.Use(middleware.CacheControl(time.Minute))
	{
		catalog.GET("/exams", handlers.Exam.ListExams)
		catalog.GET("/exams/:exam_id", handlers.Exam.GetExam)
		catalog.GET("/exams/:exam_id/sets", handlers.Exam.ListSets)
		catalog.GET("/sets/:set_id", handlers.Exam.GetSet)
	}

	// ─── 3. Session Group (Anonymous or Signed In) ─────────────────────
	// Signed-in callers see their own sessions; anonymous callers share
	// the ownerless pool of a single-user install.
	sessions := router.Group("/api/v1/sessions")
	sessions.Use(middleware.NoStore())
	{
		sessions.POST("", handlers.Session.StartSession)
		sessions.GET("", handlers.Session.ListSessions)
		sessions.GET("/:session_id", handlers.Session.GetSession)
		sessions.DELETE("/:session_id", handlers.Session.DeleteSession)
		sessions.PUT("/:session_id/answers", handlers.Session.SelectAnswer)
		sessions.POST("/:session_id/bookmarks", handlers.Session.ToggleBookmark)
		sessions.PUT("/:session_id/cursor", handlers.Session.Navigate)
		sessions.POST("/:session_id/submit", handlers.Session.Submit)
		sessions.GET("/:session_id/result", handlers.Session.GetResult)
	}

	reviews := router.Group("/api/v1/reviews")
	reviews.Use(middleware.NoStore())
	{
		reviews.GET("", handlers.Review.GetReviews)
		reviews.GET("/:exam_id", handlers.Review.GetSetReview)
		reviews.POST("/start", handlers.Review.StartReview)
	}

	router.GET("/api/v1/dashboard", middleware.NoStore(), handlers.Dashboard.GetDashboardData)

	// ─── 4. WebSocket Group (token via ?token=) ────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 5. Admin Group (JWT + Admin Flag) ─────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdmin(), middleware.NoStore())
	{
		adminAPI.PUT("/exams", handlers.Exam.UpsertExam)
		adminAPI.POST("/exams/:exam_id/sets", handlers.Exam.CreateSet)
		adminAPI.GET("/exams/:exam_id/questions", handlers.Question.ListQuestions)
		adminAPI.PUT("/exams/:exam_id/questions", handlers.Question.UpsertQuestion)
		adminAPI.DELETE("/exams/:exam_id/questions/:question_id", handlers.Question.DeleteQuestion)
	}

	return router
}
