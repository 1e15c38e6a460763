package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/adapters/driven/ai"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/auth"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/chroma"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/pgvector"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/postgres"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/qdrant"
	postgresqueue "github.com/archivist-labs/ragcore/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/archivist-labs/ragcore/internal/adapters/driven/queue/redis"
	redisadapter "github.com/archivist-labs/ragcore/internal/adapters/driven/redis"
	httpadapter "github.com/archivist-labs/ragcore/internal/adapters/driving/http"
	"github.com/archivist-labs/ragcore/internal/config"
	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
	"github.com/archivist-labs/ragcore/internal/core/services"
	"github.com/archivist-labs/ragcore/internal/extractors"
	"github.com/archivist-labs/ragcore/internal/logger"
	"github.com/archivist-labs/ragcore/internal/metrics"
	"github.com/archivist-labs/ragcore/internal/runtime"
	"github.com/archivist-labs/ragcore/internal/tools"
	"github.com/archivist-labs/ragcore/internal/worker"
)

var version = "dev"

func main() {
	// Run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().Str("version", version).Str("mode", mode).Msg("ragcore starting")

	m := metrics.New()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received, stopping")
		cancel()
	}()

	// ===== PostgreSQL document registry =====
	dbConfig := postgres.DefaultConfig(cfg.Database.URL)
	if cfg.Database.MaxOpenConns > 0 {
		dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	}
	db, err := postgres.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	log.Info().Msg("postgres connected and schema initialized")

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse redis URL")
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	// ===== Vector store backend =====
	vectorIndex := buildVectorIndex(cfg, db, log)

	// ===== Driven adapters =====
	authAdapter := auth.NewAdapter(cfg.Auth.JWTSecret)
	aiFactory := ai.NewFactory()
	documentStore := postgres.NewDocumentStore(db)

	// ===== Cache (Redis if available) =====
	var cache *redisadapter.Cache
	if redisClient != nil {
		cache = redisadapter.NewCache(redisClient)
	}

	// ===== Task queue (Redis if available, otherwise PostgreSQL) =====
	var taskQueue driven.TaskQueue
	queueBackend := "postgres"
	if redisClient != nil {
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create task queue")
		}
		queueBackend = "redis"
	} else {
		taskQueue = postgresqueue.NewQueue(db.DB)
	}
	log.Info().Str("backend", queueBackend).Msg("task queue ready")

	// ===== Runtime AI services =====
	runtimeConfig := domain.NewRuntimeConfig(cfg.Vector.Backend, queueBackend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	seedAIServices(cfg, aiFactory, runtimeServices, log)

	// ===== Extractors =====
	extractorRegistry := extractors.NewRegistry()
	extractorRegistry.Register(&extractors.TextExtractor{})
	extractorRegistry.Register(&extractors.PDFExtractor{})
	extractorRegistry.Register(&extractors.DOCXExtractor{})

	// ===== Core services =====
	processor := services.NewProcessor(services.ProcessorConfig{
		MaxFileSizeBytes: cfg.Processor.MaxFileSizeBytes,
		ChunkSize:        cfg.Processor.ChunkSize,
		ChunkOverlap:     cfg.Processor.ChunkOverlap,
	}, extractorRegistry)

	indexer := services.NewIndexer(vectorIndex, runtimeServices)
	if err := indexer.Initialize(ctx); err != nil {
		log.Warn().Err(err).Msg("vector collection initialization failed (will retry on first use)")
	}

	ingestService := services.NewIngestService(processor, indexer, documentStore, taskQueue, log)
	ragService := services.NewRAGService(indexer, runtimeServices, log)
	authService := services.NewAuthService(authAdapter, cfg.Auth.APIKeyHash)

	toolRegistry := tools.NewRegistry()
	if cfg.Tools.RestaurantAPIURL != "" {
		var toolCache driven.Cache
		if cache != nil {
			toolCache = cache
		}
		cacheTTL := time.Duration(cfg.Tools.CacheTTLMinutes) * time.Minute
		restaurantTool := tools.NewRestaurantTool(cfg.Tools.RestaurantAPIURL, toolCache, cacheTTL, log)
		toolRegistry.Register(tools.Instrument(restaurantTool, m.ToolCallsTotal))
	}
	toolService := services.NewToolService(toolRegistry, runtimeServices, log)

	log.Info().
		Str("vector_backend", cfg.Vector.Backend).
		Str("queue_backend", queueBackend).
		Bool("embedding", runtimeConfig.EmbeddingAvailable()).
		Bool("chat", runtimeConfig.ChatAvailable()).
		Msg("runtime configuration")

	switch mode {
	case "api":
		runAPI(ctx, cfg, authService, ingestService, ragService, toolService, taskQueue, db, cache, m, log)

	case "worker":
		runWorkerMode(ctx, cfg, taskQueue, ingestService, m, log)

	case "all":
		go runWorkerMode(ctx, cfg, taskQueue, ingestService, m, log)
		runAPI(ctx, cfg, authService, ingestService, ragService, toolService, taskQueue, db, cache, m, log)

	default:
		log.Fatal().Str("mode", mode).Msg("unknown mode (use: api, worker, or all)")
	}
}

// buildVectorIndex constructs the configured vector store backend
func buildVectorIndex(cfg *config.Config, db *postgres.DB, log zerolog.Logger) driven.VectorIndex {
	switch cfg.Vector.Backend {
	case "chroma":
		chromaCfg := chroma.DefaultConfig("http://localhost:8000")
		if cfg.Vector.Chroma != nil {
			if cfg.Vector.Chroma.URL != "" {
				chromaCfg.BaseURL = cfg.Vector.Chroma.URL
			}
			if cfg.Vector.Chroma.Collection != "" {
				chromaCfg.Collection = cfg.Vector.Chroma.Collection
			}
		}
		return chroma.NewStore(chromaCfg)

	case "qdrant":
		qdrantCfg := qdrant.Config{VectorSize: cfg.Vector.Dimensions}
		if cfg.Vector.Qdrant != nil {
			qdrantCfg.Addr = cfg.Vector.Qdrant.Addr
			qdrantCfg.Collection = cfg.Vector.Qdrant.Collection
		}
		store, err := qdrant.NewStore(qdrantCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create qdrant store")
		}
		return store

	case "pgvector":
		pgCfg := pgvector.Config{
			URL:        cfg.Database.URL,
			VectorSize: cfg.Vector.Dimensions,
		}
		if cfg.Vector.Pgvector != nil {
			if cfg.Vector.Pgvector.URL != "" {
				pgCfg.URL = cfg.Vector.Pgvector.URL
			}
			pgCfg.Table = cfg.Vector.Pgvector.Table
		}
		store, err := pgvector.NewStore(pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pgvector store")
		}
		return store

	default:
		log.Fatal().Str("backend", cfg.Vector.Backend).Msg("unknown vector backend (use: chroma, qdrant, or pgvector)")
		return nil
	}
}

// seedAIServices constructs the embedding and chat services from static
// configuration. Missing provider configuration degrades the affected
// features instead of failing startup.
func seedAIServices(cfg *config.Config, factory *ai.Factory, services *runtime.Services, log zerolog.Logger) {
	embedSettings := cfg.EmbeddingSettings()
	if embedSettings.IsConfigured() {
		svc, err := factory.CreateEmbeddingService(embedSettings)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create embedding service")
		} else {
			services.SetEmbeddingService(svc)
		}
	} else {
		log.Warn().Msg("embedding provider not configured, indexing and search disabled")
	}

	chatSettings := cfg.ChatSettings()
	if chatSettings.IsConfigured() {
		svc, err := factory.CreateChatService(chatSettings)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create chat service")
		} else {
			services.SetChatService(svc)
		}
	} else {
		log.Warn().Msg("chat provider not configured, answering disabled")
	}
}

func runAPI(
	ctx context.Context,
	cfg *config.Config,
	authService driving.AuthService,
	ingestService driving.IngestService,
	ragService driving.RAGService,
	toolService driving.ToolService,
	taskQueue driven.TaskQueue,
	db *postgres.DB,
	cache *redisadapter.Cache,
	m *metrics.Metrics,
	log zerolog.Logger,
) {
	var redisPinger httpadapter.Pinger
	if cache != nil {
		redisPinger = cache
	}

	server := httpadapter.NewServer(
		httpadapter.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			Version:        version,
			MaxUploadBytes: cfg.Processor.MaxFileSizeBytes,
			Retrieval: httpadapter.RetrievalDefaults{
				TopK:           cfg.Retrieval.TopK,
				ScoreThreshold: cfg.Retrieval.Threshold,
				IncludeSources: cfg.Retrieval.IncludeSources,
			},
		},
		authService,
		ingestService,
		ragService,
		toolService,
		taskQueue,
		db,
		redisPinger,
		m,
		log,
	)

	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// runWorkerMode starts the background task worker and blocks until the
// context is cancelled.
func runWorkerMode(
	ctx context.Context,
	cfg *config.Config,
	taskQueue driven.TaskQueue,
	ingestService driving.IngestService,
	m *metrics.Metrics,
	log zerolog.Logger,
) {
	w := worker.New(worker.Config{
		TaskQueue:      taskQueue,
		Ingest:         ingestService,
		Logger:         log,
		Metrics:        m,
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start worker")
	}
	log.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("worker started")

	<-ctx.Done()

	w.Stop()
	log.Info().Msg("worker stopped")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
