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

	"github.com/assessly/assessly-go-api/internal/client"
	"github.com/assessly/assessly-go-api/internal/config"
	"github.com/assessly/assessly-go-api/internal/database"
	"github.com/assessly/assessly-go-api/internal/handler"
	"github.com/assessly/assessly-go-api/internal/middleware"
	"github.com/assessly/assessly-go-api/internal/models"
	"github.com/assessly/assessly-go-api/internal/repository"
	"github.com/assessly/assessly-go-api/internal/router"
	"github.com/assessly/assessly-go-api/internal/service"
	cloud "github.com/assessly/assessly-go-api/pkg/cloudinary"
	"github.com/assessly/assessly-go-api/pkg/coderunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Submission{}, &models.SubmissionFile{}, &models.Evaluation{}, &models.CodeExecution{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	assessmentClient, err := client.NewAssessmentClient(cfg.AssessmentServiceURL, cfg.StructureFetchTimeout, logger)
	if err != nil {
		log.Fatalf("failed to create assessment client: %v", err)
	}

	runner := coderunner.New(cfg.CodeRunnerURL, cfg.CodeRunnerTimeout, cfg.CodeRunnerMinInterval, logger)

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	executionRepo := repository.NewExecutionRepository(db)

	submissionService := service.NewSubmissionService(submissionRepo, validate, logger)
	fileService := service.NewSubmissionFileService(submissionRepo, uploader, logger)
	evaluationService := service.NewEvaluationService(evaluationRepo, submissionRepo, assessmentClient, assessmentClient, validate, logger, service.EvaluationServiceConfig{
		Cache:    redisClient,
		CacheTTL: cfg.EvaluationCacheTTL,
		Events:   natsConn,
	})
	codeExecutionService := service.NewCodeExecutionService(executionRepo, submissionRepo, runner, validate, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, fileService, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, logger)
	codeRunHandler := handler.NewCodeRunHandler(codeExecutionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		EvaluationHandler: evaluationHandler,
		CodeRunHandler:    codeRunHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
