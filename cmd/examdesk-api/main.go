package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/examdesk/examdesk-api/api/swagger"
	"github.com/examdesk/examdesk-api/internal/handler"
	internalmiddleware "github.com/examdesk/examdesk-api/internal/middleware"
	"github.com/examdesk/examdesk-api/internal/models"
	"github.com/examdesk/examdesk-api/internal/repository"
	"github.com/examdesk/examdesk-api/internal/service"
	"github.com/examdesk/examdesk-api/pkg/cache"
	"github.com/examdesk/examdesk-api/pkg/config"
	"github.com/examdesk/examdesk-api/pkg/database"
	"github.com/examdesk/examdesk-api/pkg/export"
	"github.com/examdesk/examdesk-api/pkg/jobs"
	"github.com/examdesk/examdesk-api/pkg/logger"
	corsmiddleware "github.com/examdesk/examdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/examdesk/examdesk-api/pkg/middleware/requestid"
	"github.com/examdesk/examdesk-api/pkg/storage"
)

// @title ExamDesk API
// @version 1.0.0
// @description Exam administration: seat allocation, hall tickets, results and bulk imports
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var seatCache *repository.SeatStatusCache
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, seat status caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		seatCache = repository.NewSeatStatusCache(redisClient, cfg.Allocation.CacheTTL)
	}

	ticketStore, err := storage.NewLocalStorage(cfg.Tickets.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init ticket storage", "error", err)
	}
	ticketSigner := storage.NewSignedURLSigner(cfg.Tickets.SignedURLSecret, cfg.Tickets.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	examRepo := repository.NewExamRepository(db)
	resultRepo := repository.NewResultRepository(db)
	ticketRepo := repository.NewHallTicketRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	seatRepo := repository.NewSeatAllocationRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	studentService := service.NewStudentService(studentRepo, validate, logr)
	examService := service.NewExamService(examRepo, validate, logr)
	resultService := service.NewResultService(resultRepo, validate, logr)
	notificationService := service.NewNotificationService(notificationRepo, validate, logr)

	allocationService := service.NewAllocationService(examRepo, studentRepo, seatRepo, seatCache, cfg.Allocation, logr, nil)

	ticketService := service.NewHallTicketService(ticketRepo, examRepo, export.NewTicketPDFRenderer(), ticketStore, ticketSigner, validate, logr, cfg.Tickets.CollegeName)
	renderQueue := jobs.NewQueue("ticket-render", ticketService.RenderJob, jobs.QueueConfig{
		Workers:    cfg.Tickets.WorkerConcurrency,
		MaxRetries: cfg.Tickets.WorkerRetries,
		Logger:     logr,
	})
	ticketService.AttachQueue(renderQueue)

	importService := service.NewImportService(studentRepo, examRepo, resultRepo, ticketRepo, seatRepo, logr)
	metricsService := service.NewMetricsService()
	allocationService.AttachMetrics(metricsService)
	importService.AttachMetrics(metricsService)

	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	examHandler := handler.NewExamHandler(examService)
	resultHandler := handler.NewResultHandler(resultService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	ticketHandler := handler.NewHallTicketHandler(ticketService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	importHandler := handler.NewImportHandler(importService, cfg.Import.MaxUploadBytes)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)
	// Token-signed; authentication is carried by the link itself.
	api.GET("/hall-tickets/download", ticketHandler.ServeDownload)

	staff := []models.UserRole{models.RoleAdmin, models.RoleFaculty, models.RoleHOD}

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authService))
	{
		secured.GET("/auth/me", authHandler.Me)

		secured.GET("/students", internalmiddleware.RequireRoles(staff...), studentHandler.List)
		secured.GET("/students/:id", internalmiddleware.RBAC("SELF", string(models.RoleAdmin), string(models.RoleFaculty), string(models.RoleHOD)), studentHandler.Get)
		secured.POST("/students", internalmiddleware.RequireRoles(models.RoleAdmin), studentHandler.Create)
		secured.PUT("/students/:id", internalmiddleware.RequireRoles(models.RoleAdmin), studentHandler.Update)
		secured.DELETE("/students/:id", internalmiddleware.RequireRoles(models.RoleAdmin), studentHandler.Delete)

		secured.GET("/exams", examHandler.List)
		secured.GET("/exams/:id", examHandler.Get)
		secured.POST("/exams", internalmiddleware.RequireRoles(models.RoleAdmin), examHandler.Create)
		secured.PUT("/exams/:id", internalmiddleware.RequireRoles(models.RoleAdmin), examHandler.Update)
		secured.DELETE("/exams/:id", internalmiddleware.RequireRoles(models.RoleAdmin), examHandler.Delete)

		secured.GET("/exams/:id/allocations", internalmiddleware.RequireRoles(staff...), allocationHandler.ListByExam)
		secured.GET("/exams/:id/allocations/export", internalmiddleware.RequireRoles(staff...), allocationHandler.Export)
		secured.POST("/exams/:id/allocations/generate", internalmiddleware.RequireRoles(models.RoleAdmin), allocationHandler.Generate)
		secured.POST("/exams/:id/allocations/reveal", internalmiddleware.RequireRoles(models.RoleAdmin), allocationHandler.Reveal)
		secured.GET("/exams/:id/seat", allocationHandler.SeatStatus)
		secured.POST("/allocations", internalmiddleware.RequireRoles(models.RoleAdmin), allocationHandler.Create)
		secured.DELETE("/allocations/:id", internalmiddleware.RequireRoles(models.RoleAdmin), allocationHandler.Delete)

		secured.GET("/results", resultHandler.List)
		secured.GET("/results/export", internalmiddleware.RequireRoles(staff...), resultHandler.Export)
		secured.GET("/results/:id", resultHandler.Get)
		secured.POST("/results", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), resultHandler.Create)
		secured.PUT("/results/:id", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), resultHandler.Update)
		secured.DELETE("/results/:id", internalmiddleware.RequireRoles(models.RoleAdmin), resultHandler.Delete)

		secured.GET("/hall-tickets", ticketHandler.List)
		secured.GET("/hall-tickets/:id", ticketHandler.Get)
		secured.POST("/hall-tickets", internalmiddleware.RequireRoles(models.RoleAdmin), ticketHandler.Create)
		secured.PUT("/hall-tickets/:id", internalmiddleware.RequireRoles(models.RoleAdmin), ticketHandler.Update)
		secured.DELETE("/hall-tickets/:id", internalmiddleware.RequireRoles(models.RoleAdmin), ticketHandler.Delete)
		secured.POST("/hall-tickets/:id/download", ticketHandler.Download)

		secured.GET("/notifications", notificationHandler.List)
		secured.GET("/notifications/:id", notificationHandler.Get)
		secured.POST("/notifications", internalmiddleware.RequireRoles(models.RoleAdmin), notificationHandler.Create)
		secured.PUT("/notifications/:id", internalmiddleware.RequireRoles(models.RoleAdmin), notificationHandler.Update)
		secured.POST("/notifications/:id/send", internalmiddleware.RequireRoles(models.RoleAdmin), notificationHandler.Send)
		secured.POST("/notifications/:id/read", notificationHandler.MarkRead)
		secured.DELETE("/notifications/:id", internalmiddleware.RequireRoles(models.RoleAdmin), notificationHandler.Delete)

		secured.POST("/imports/:kind", internalmiddleware.RequireRoles(models.RoleAdmin), importHandler.Upload)
		secured.GET("/imports/:kind/template", internalmiddleware.RequireRoles(models.RoleAdmin), importHandler.Template)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderQueue.Start(ctx)
	defer renderQueue.Stop()

	sweeper := service.NewVisibilitySweeper(allocationService, cfg.Allocation.SweepInterval, logr)
	if cfg.Allocation.SweepEnabled {
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown incomplete", "error", err)
	}
}
