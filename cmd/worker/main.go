package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/cache"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/client"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/config"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/media"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/queue"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/store"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Publisher for next-hop messages
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	publisher := queue.NewAsynqPublisher(asynqClient,
		cfg.Pipeline.MaxRetry,
		time.Duration(cfg.Pipeline.TaskTimeout)*time.Minute,
	)

	// Redis client for the result cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Blob storage
	storageClient, err := client.NewMinioClient(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}
	if err := storageClient.EnsureBucket(ctx, client.BucketAudio); err != nil {
		log.Printf("Warning: could not ensure bucket %s: %v", client.BucketAudio, err)
	}

	// Session document store
	sessionStore, err := store.NewPostgresStore(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer sessionStore.Close()

	// External providers
	transcriber := client.NewAssemblyAIClient(&cfg.AssemblyAI)
	if !transcriber.IsConfigured() {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set, transcription jobs will fail")
	}
	analyzer := client.NewOpenAIAnalyzer(&cfg.OpenAI)
	if !analyzer.IsConfigured() {
		log.Println("Warning: OPENAI_API_KEY not set, analysis jobs will fail")
	}

	analysisCache := cache.NewRedisCache(redisClient, time.Duration(cfg.Pipeline.CacheTTLHrs)*time.Hour)
	validate := validator.New()

	// Stage workers
	extractWorker := worker.NewExtractWorker(storageClient, media.NewFFmpegExtractor(), publisher, validate)
	transcribeWorker := worker.NewTranscribeWorker(storageClient, transcriber, publisher, validate)
	analyzeWorker := worker.NewAnalyzeWorker(analyzer, analysisCache, sessionStore, validate)

	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	// Concurrency 1 keeps a single in-flight job per worker process, which
	// also bounds local temp storage to one job's blobs. Scale out by
	// running more worker processes against the same queues.
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues:      queue.ServerQueues(cfg.Pipeline.Queues),
		LogLevel:    asynqLogLevel,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeExtract, extractWorker.ProcessTask)
	mux.HandleFunc(queue.TaskTypeTranscribe, transcribeWorker.ProcessTask)
	mux.HandleFunc(queue.TaskTypeAnalyze, analyzeWorker.ProcessTask)

	log.Printf("Worker starting (queues: %v)", queue.ServerQueues(cfg.Pipeline.Queues))
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker error: %v", err)
	}
}
