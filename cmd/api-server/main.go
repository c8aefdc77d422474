package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/medagenda/citas-api/api/swagger"
	"github.com/medagenda/citas-api/internal/handler"
	internalmiddleware "github.com/medagenda/citas-api/internal/middleware"
	"github.com/medagenda/citas-api/internal/repository"
	"github.com/medagenda/citas-api/internal/service"
	"github.com/medagenda/citas-api/pkg/cache"
	"github.com/medagenda/citas-api/pkg/config"
	"github.com/medagenda/citas-api/pkg/database"
	"github.com/medagenda/citas-api/pkg/jobs"
	"github.com/medagenda/citas-api/pkg/logger"
	corsmiddleware "github.com/medagenda/citas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/medagenda/citas-api/pkg/middleware/requestid"
	"github.com/medagenda/citas-api/pkg/storage"
)

// @title Citas API
// @version 1.0.0
// @description Medical appointment scheduling and conflict resolution API
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Board.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, board cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	specialtyRepo := repository.NewSpecialtyRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	metricsService := service.NewMetricsService()
	specialtyService := service.NewSpecialtyService(specialtyRepo, validate, logr)
	roomService := service.NewRoomService(roomRepo, doctorRepo, cacheRepo, validate, logr)
	doctorService := service.NewDoctorService(doctorRepo, specialtyRepo, roomRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, doctorRepo, validate, logr)
	availabilityService := service.NewAvailabilityService(specialtyRepo, doctorRepo, scheduleRepo, roomRepo, appointmentRepo, logr)
	appointmentService := service.NewAppointmentService(appointmentRepo, doctorRepo, cacheRepo, validate, logr)
	boardService := service.NewBoardService(roomRepo, scheduleRepo, appointmentRepo, cacheRepo, cfg.Board.CacheTTL, logr)

	var reportService *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		secret := cfg.Reports.SignedURLSecret
		if secret == "" {
			secret = cfg.JWT.Secret
		}
		signer := storage.NewSignedURLSigner(secret, cfg.Reports.SignedURLTTL)
		reportRepo := repository.NewReportRepository(db)
		exportService := service.NewExportService(appointmentRepo, doctorRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr)
		worker := service.NewReportWorker(reportRepo, exportService, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(context.Background())
		defer queue.Stop()

		reportService = service.NewReportService(reportRepo, queue, exportService, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		}, logr)
		reportService.RecoverPendingJobs(context.Background())
		reportService.StartCleanup(context.Background())
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	metricsHandler := handler.NewMetricsHandler(metricsService)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Appointments: handler.NewAppointmentHandler(appointmentService, availabilityService, metricsService),
		Board:        handler.NewBoardHandler(boardService),
		Specialties:  handler.NewSpecialtyHandler(specialtyService),
		Rooms:        handler.NewRoomHandler(roomService),
		Doctors:      handler.NewDoctorHandler(doctorService, scheduleService),
		Schedules:    handler.NewScheduleHandler(scheduleService),
		Reports:      reportHandler(reportService),
		Metrics:      metricsHandler,
	}, authService)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func reportHandler(reports *service.ReportService) *handler.ReportHandler {
	if reports == nil {
		return nil
	}
	return handler.NewReportHandler(reports)
}
