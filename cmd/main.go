package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	redisclient "github.com/pylearnhq/pylearn-backend/internal/clients/redis"
	"github.com/pylearnhq/pylearn-backend/internal/config"
	"github.com/pylearnhq/pylearn-backend/internal/db"
	"github.com/pylearnhq/pylearn-backend/internal/handlers"
	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/middleware"
	"github.com/pylearnhq/pylearn-backend/internal/observability"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/server"
	"github.com/pylearnhq/pylearn-backend/internal/services"
	"github.com/pylearnhq/pylearn-backend/internal/utils"
)

const serviceName = "pylearn-backend"

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)

	// Thresholds
	cfg, err := config.Load(os.Getenv("PYLEARN_CONFIG"))
	if err != nil {
		log.Warn("Config load failed, using defaults", "error", err)
	}

	// Tracing
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	courseModuleRepo := repos.NewCourseModuleRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	challengeRepo := repos.NewCodingChallengeRepo(thePG, log)
	attemptRepo := repos.NewLessonAttemptRepo(thePG, log)
	progressRepo := repos.NewLessonProgressRepo(thePG, log)
	masteryRepo := repos.NewModuleMasteryRepo(thePG, log)
	submissionRepo := repos.NewSubmissionRepo(thePG, log)
	achievementRepo := repos.NewAchievementRepo(thePG, log)
	userAchievementRepo := repos.NewUserAchievementRepo(thePG, log)
	walletRepo := repos.NewWalletRepo(thePG, log)
	txnRepo := repos.NewEconomyTransactionRepo(thePG, log)
	missionRepo := repos.NewWeeklyMissionRepo(thePG, log)
	userMissionRepo := repos.NewUserWeeklyMissionRepo(thePG, log)
	referralRepo := repos.NewReferralInviteRepo(thePG, log)
	grantRepo := repos.NewPremiumGrantRepo(thePG, log)
	userEventRepo := repos.NewUserEventRepo(thePG, log)

	// Notifier
	notifier, err := redisclient.NewNotifier(log)
	if err != nil {
		log.Warn("Redis notifier init failed, continuing without it", "error", err)
		notifier = nil
	}

	// Services
	auditService := services.NewAuditService(thePG, userEventRepo, log)
	gamificationService := services.NewGamificationService(thePG, userRepo, progressRepo, achievementRepo, userAchievementRepo, log)
	masteryService := services.NewMasteryService(thePG, courseModuleRepo, lessonRepo, progressRepo, masteryRepo, log)
	attemptService := services.NewAttemptService(thePG, cfg.Integrity, lessonRepo, attemptRepo, auditService, log)
	economyService := services.NewEconomyService(thePG, cfg.Economy, userRepo, walletRepo, txnRepo, missionRepo, userMissionRepo, referralRepo, grantRepo, auditService, log)
	completionService := services.NewCompletionService(
		thePG,
		cfg.Integrity,
		lessonRepo,
		attemptRepo,
		progressRepo,
		challengeRepo,
		submissionRepo,
		userRepo,
		masteryService,
		gamificationService,
		economyService,
		auditService,
		notifier,
		log,
	)
	recommendationService := services.NewRecommendationService(thePG, courseModuleRepo, lessonRepo, progressRepo, masteryService, log)
	submissionService := services.NewSubmissionService(thePG, challengeRepo, submissionRepo, userRepo, gamificationService, auditService, log)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	learningHandler := handlers.NewLearningHandler(attemptService, masteryService, recommendationService)
	progressHandler := handlers.NewProgressHandler(completionService, submissionService)
	economyHandler := handlers.NewEconomyHandler(economyService)
	gamificationHandler := handlers.NewGamificationHandler(gamificationService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ServiceName:         serviceName,
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		LearningHandler:     learningHandler,
		ProgressHandler:     progressHandler,
		EconomyHandler:      economyHandler,
		GamificationHandler: gamificationHandler,
	})

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		log.Info("Starting HTTP server", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if otelShutdown != nil {
			_ = otelShutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal("Server exited with error", "error", err)
	}
	log.Info("Server stopped")
}
