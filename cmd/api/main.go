package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/config"
	"github.com/jamditis/class/internal/database"
	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/handler"
	"github.com/jamditis/class/internal/middleware"
	"github.com/jamditis/class/internal/repository"
	"github.com/jamditis/class/internal/router"
	"github.com/jamditis/class/internal/rubric"
	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/pkg/ai"
	cloud "github.com/jamditis/class/pkg/cloudinary"
	"github.com/jamditis/class/pkg/lms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; analytics caching disabled")
	}

	publishers := make([]events.Publisher, 0, 2)
	if redisClient != nil {
		publishers = append(publishers, events.NewRedisPublisher(redisClient, cfg.EventsSubject))
	}
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		publishers = append(publishers, events.NewNATSPublisher(conn, cfg.EventsSubject))
	}
	publisher := events.Multi(publishers...)

	var completer ai.Completer
	client, err := ai.New(ai.Config{
		Provider:    cfg.AIProvider,
		APIKey:      cfg.AIAPIKey(),
		Model:       cfg.AIModel,
		BaseURL:     cfg.AIBaseURL,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("evaluator not configured; ai features will degrade")
	} else {
		completer = client
	}

	var (
		feed         service.Feed
		lmsPublisher service.LMSPublisher
	)
	canvas, err := lms.NewClient(lms.Config{
		BaseURL:  cfg.CanvasBaseURL,
		Token:    cfg.CanvasToken,
		CourseID: cfg.CanvasCourseID,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("canvas not configured; sync and publishing disabled")
	} else {
		feed = canvas
		lmsPublisher = canvas
	}

	var uploader service.Uploader
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Configured() {
		archiver, err := cloud.New(cloudCfg, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = archiver
	}

	teaching, err := rubric.LoadTeachingContext(cfg.TeachingContextFile)
	if err != nil {
		log.Fatalf("failed to load teaching context: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	skillRepo := repository.NewSkillAssessmentRepository(db)
	noteRepo := repository.NewStudentNoteRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	snapshotRepo := repository.NewProgressSnapshotRepository(db)

	analyticsService := service.NewAnalyticsService(studentRepo, assignmentRepo, submissionRepo, redisClient, service.AnalyticsConfig{
		CacheTTL:   cfg.AnalyticsCacheTTL,
		Thresholds: service.GroupingThresholds(cfg.Grouping),
	}, logger)
	skillService := service.NewSkillService(studentRepo, evaluationRepo, skillRepo, logger)
	evaluationService := service.NewEvaluationService(submissionRepo, evaluationRepo, completer, skillService, analyticsService, publisher, validate, logger, service.EvaluationConfig{
		ContentLimit:    cfg.EvaluationContentLimit,
		MaxBatchSize:    cfg.EvaluationBatchLimit,
		TeachingContext: teaching,
	})
	rosterService := service.NewRosterService(studentRepo, assignmentRepo, submissionRepo, noteRepo, analyticsService, publisher, validate, logger)
	importService := service.NewImportService(studentRepo, assignmentRepo, submissionRepo, analyticsService, logger)
	exportService := service.NewExportService(studentRepo, assignmentRepo, submissionRepo, noteRepo, analyticsService, skillService, uploader, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, submissionRepo, lmsPublisher, publisher, validate, logger)
	insightService := service.NewInsightService(analyticsService, completer, logger)
	recommendationService := service.NewRecommendationService(analyticsService, assignmentRepo, submissionRepo, completer, logger)
	snapshotService := service.NewSnapshotService(snapshotRepo, analyticsService, insightService, publisher, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    16 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		StudentHandler:    handler.NewStudentHandler(rosterService, skillService, exportService, logger),
		AssignmentHandler: handler.NewAssignmentHandler(rosterService, recommendationService, logger),
		EvaluationHandler: handler.NewEvaluationHandler(rosterService, evaluationService, logger),
		AnalyticsHandler:  handler.NewAnalyticsHandler(analyticsService, insightService, recommendationService, snapshotService, logger),
		FeedbackHandler:   handler.NewFeedbackHandler(feedbackService, logger),
		SyncHandler:       handler.NewSyncHandler(rosterService, importService, feed, logger),
		ExportHandler:     handler.NewExportHandler(exportService, validate, logger),
		HealthProbes:      healthProbes(db, redisClient),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{"database": database.SQLProbe(db)}
	if redisClient != nil {
		probes["redis"] = database.RedisProbe(redisClient)
	}
	return probes
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
