package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classroom_api/internal/config"
	"classroom_api/internal/handler"
	"classroom_api/internal/jobs"
	"classroom_api/internal/logger"
	"classroom_api/internal/middleware"
	"classroom_api/internal/model"
	"classroom_api/internal/notification"
	"classroom_api/internal/repository"
	"classroom_api/internal/service"
	"classroom_api/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on environment variables")
	}

	// --- Configuration ---
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		log.Fatalf("Failed to load app config: %v", err)
	}

	zlog := logger.New(appCfg.LogLevel, appCfg.Environment)
	defer func() { _ = zlog.Sync() }()

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		zlog.Fatal("failed to load DB config", zap.Error(err))
	}

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(rootCtx, dbCfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	// --- Auto Migration ---
	if err := config.AutoMigrate(rootCtx, dbPool, zlog); err != nil {
		zlog.Fatal("failed to auto-migrate database", zap.Error(err))
	}

	redisClient, err := config.ConnectRedis(rootCtx, appCfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	// --- Initialize Utilities ---
	jwtUtil := utils.NewJWTUtil(appCfg.JWTSecret, appCfg.JWTExpHours)

	// --- Initialize Repositories ---
	userRepo := repository.NewUserRepository(dbPool)
	profileRepo := repository.NewProfileRepository(dbPool)
	otpRepo := repository.NewOtpRepository(dbPool)
	courseRepo := repository.NewCourseRepository(dbPool)
	assignmentRepo := repository.NewAssignmentRepository(dbPool)
	cooldownRepo := repository.NewCooldownRepository(redisClient)

	// --- Notifications ---
	sender, err := notification.NewSMTPSender(appCfg.SMTP, zlog)
	if err != nil {
		zlog.Warn("SMTP not configured, emails will only be logged", zap.Error(err))
		sender = notification.NewLogSender(zlog)
	}
	renderer, err := notification.NewRenderer()
	if err != nil {
		zlog.Fatal("failed to parse email templates", zap.Error(err))
	}
	dispatcher := notification.NewDispatcher(notification.NewRedisQueue(redisClient), userRepo, sender, renderer,
		zlog, notification.DefaultOptions(appCfg.NotifyWorkers))

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("notification dispatcher stopped", zap.Error(err))
		}
	}()

	// --- Initialize Services ---
	otpService := service.NewOtpService(otpRepo, cooldownRepo, dispatcher, appCfg.OTP, zlog)
	authService := service.NewAuthService(userRepo, profileRepo, otpService, jwtUtil, appCfg.InitialAdminEmail, zlog)
	onboardingService := service.NewOnboardingService(profileRepo, zlog)
	courseService := service.NewCourseService(courseRepo, assignmentRepo, zlog)
	userService := service.NewUserService(userRepo, zlog)

	// --- Scheduled jobs ---
	scheduler := jobs.NewScheduler(otpRepo, appCfg.OTPPurgeCron, zlog)
	if err := scheduler.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}

	// --- Initialize Handlers ---
	authHandler := handler.NewAuthHandler(authService, zlog)
	onboardingHandler := handler.NewOnboardingHandler(onboardingService, zlog)
	courseHandler := handler.NewCourseHandler(courseService, zlog)
	userHandler := handler.NewUserHandler(userService, zlog)

	// --- Setup Gin Router ---
	if appCfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(zlog), middleware.RequestLogger(zlog))

	// Simple CORS middleware (allow all for development)
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// --- Initialize Middlewares ---
	jwtAuthMW := middleware.JWTAuthMiddleware(jwtUtil)
	onboardedMW := middleware.OnboardingCompleteMiddleware(onboardingService, zlog)

	// --- Register Routes ---
	apiGroup := router.Group("/api/v1")
	authHandler.RegisterAuthRoutes(apiGroup, jwtAuthMW)
	onboardingHandler.RegisterOnboardingRoutes(apiGroup, jwtAuthMW)
	courseHandler.RegisterCourseRoutes(apiGroup, jwtAuthMW, onboardedMW,
		middleware.TeacherMiddleware(), middleware.StudentMiddleware(), middleware.StaffMiddleware())
	userHandler.RegisterUserRoutes(apiGroup, jwtAuthMW, middleware.RoleMiddleware(model.RoleAdmin))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, dbState, redisState := http.StatusOK, "healthy", "healthy"
		if err := dbPool.Ping(ctx); err != nil {
			status, dbState = http.StatusServiceUnavailable, "unhealthy"
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			status, redisState = http.StatusServiceUnavailable, "unhealthy"
		}
		overall := "ok"
		if status != http.StatusOK {
			overall = "error"
		}
		c.JSON(status, gin.H{"status": overall, "db": dbState, "redis": redisState})
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + appCfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", appCfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("listen failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	scheduler.Stop(ctx)
	stopBackground()
	select {
	case <-dispatcherDone:
	case <-ctx.Done():
		zlog.Warn("notification dispatcher did not stop in time")
	}

	zlog.Info("server exiting")
}
