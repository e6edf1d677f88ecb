package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/client"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/config"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/handler"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/middleware"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/queue"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/service"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/store"
	"github.com/ItayBoros/Psychology-Session-Analyzer/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client and pipeline publisher
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	publisher := queue.NewAsynqPublisher(asynqClient,
		cfg.Pipeline.MaxRetry,
		time.Duration(cfg.Pipeline.TaskTimeout)*time.Minute,
	)

	// Initialize blob storage
	storageClient, err := client.NewMinioClient(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}
	for _, bucket := range []string{client.BucketRawMedia, client.BucketAudio} {
		if err := storageClient.EnsureBucket(ctx, bucket); err != nil {
			log.Printf("Warning: could not ensure bucket %s: %v", bucket, err)
		}
	}

	// Initialize session document store
	sessionStore, err := store.NewPostgresStore(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer sessionStore.Close()

	// Initialize services
	ingestService := service.NewIngestService(storageClient, publisher)
	queryService := service.NewQueryService(sessionStore)

	// Initialize handlers
	maxUploadSize := int64(cfg.Pipeline.MaxUploadMB) * 1024 * 1024
	uploadHandler := handler.NewUploadHandler(ingestService, maxUploadSize)
	queryHandler := handler.NewQueryHandler(queryService)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(maxUploadSize),
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"storage":  storageClient.IsConfigured(),
				"postgres": true,
				"redis":    redisClient.Ping(c.Context()).Err() == nil,
			},
		})
	})

	// Ingestion
	app.Post("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), uploadHandler.Upload)

	// Query surface: clients poll /analysis/:jobID after upload; 200 means
	// the pipeline completed, 404 means still processing or unknown id.
	app.Get("/list", queryHandler.List)
	app.Get("/analysis/:jobID", queryHandler.Get)
	app.Get("/analysis/:jobID/emotional-arc", queryHandler.EmotionalArc)
	app.Get("/analysis/:jobID/interventions", queryHandler.Interventions)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
