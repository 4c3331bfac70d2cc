package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pylearnhq/pylearn-backend/internal/handlers"
	"github.com/pylearnhq/pylearn-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName         string
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	LearningHandler     *handlers.LearningHandler
	ProgressHandler     *handlers.ProgressHandler
	EconomyHandler      *handlers.EconomyHandler
	GamificationHandler *handlers.GamificationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// Learning
	protected.GET("/learning/recommendation", cfg.LearningHandler.Recommendation)
	protected.GET("/learning/gates", cfg.LearningHandler.ModuleGates)
	protected.POST("/learning/lessons/:id/attempts/start", cfg.LearningHandler.StartAttempt)
	protected.POST("/learning/lessons/:id/attempts/heartbeat", cfg.LearningHandler.Heartbeat)
	// Progress
	protected.POST("/progress/lessons/:id/complete", cfg.ProgressHandler.CompleteLesson)
	protected.POST("/progress/challenges/:id/submissions", cfg.ProgressHandler.RecordSubmission)
	// Economy
	protected.GET("/economy/wallet", cfg.EconomyHandler.GetWallet)
	protected.POST("/economy/referrals", cfg.EconomyHandler.CreateReferral)
	protected.POST("/economy/referrals/redeem", cfg.EconomyHandler.RedeemReferral)
	protected.POST("/economy/premium/unlock", cfg.EconomyHandler.UnlockPremium)
	protected.GET("/economy/transactions", cfg.EconomyHandler.ListTransactions)
	// Gamification
	protected.GET("/gamification/profile", cfg.GamificationHandler.Profile)

	return router
}
