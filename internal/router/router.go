package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Theme   *handler.ThemeHandler
	Exam    *handler.ExamHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.GinMode != gin.TestMode {
		router.Use(gin.Logger())
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")

	// ─── 1. Theme Directory (cached) ───────────────────────────────────
	api.GET("/themes", middleware.CacheControl(cfg.ThemeCacheTTL), handlers.Theme.ListThemes)

	// ─── 2. Exam Specification Drafts ──────────────────────────────────
	generateLimiter := middleware.NewRateLimiter(cfg.GenerateRatePerMin, time.Minute)

	specs := api.Group("/exam-specs")
	specs.Use(middleware.NoStore())
	{
		specs.POST("", handlers.Exam.CreateDraft)
		specs.GET("/:id", handlers.Exam.GetDraft)
		specs.DELETE("/:id", handlers.Exam.DiscardDraft)
		specs.PUT("/:id/type", handlers.Exam.SetType)
		specs.PATCH("/:id", handlers.Exam.UpdateDraft)
		specs.POST("/:id/themes/:theme_id/toggle", handlers.Exam.ToggleTheme)
		specs.POST("/:id/themes/select-part", handlers.Exam.SelectThemePart)
		specs.POST("/:id/validate", handlers.Exam.ValidateDraft)
		specs.POST("/:id/submit", generateLimiter.Middleware(), handlers.Exam.SubmitDraft)
	}

	// ─── 3. Exam Sessions ──────────────────────────────────────────────
	sessions := api.Group("/sessions/:attempt_id")
	sessions.Use(middleware.NoStore())
	{
		sessions.POST("/open", handlers.Session.OpenSession)
		sessions.GET("", handlers.Session.GetSession)
		sessions.POST("/next", handlers.Session.Next)
		sessions.POST("/previous", handlers.Session.Previous)
		sessions.POST("/jump", handlers.Session.Jump)
		sessions.PUT("/instant-feedback", handlers.Session.SetInstantFeedback)
		sessions.POST("/answers", handlers.Session.SelectAnswer)
		sessions.DELETE("/answers/:question_id", handlers.Session.ClearAnswer)
		sessions.POST("/finish", handlers.Session.FinishSession)
	}

	// ─── 4. WebSocket Session Stream ───────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:attempt_id/stream", handlers.WS.SessionStream)
	}

	return router
}
