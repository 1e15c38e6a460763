// Command ragcore-ingest bulk-loads documents into the index from the
// command line, either directly or via the background task queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/adapters/driven/ai"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/chroma"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/pgvector"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/postgres"
	"github.com/archivist-labs/ragcore/internal/adapters/driven/qdrant"
	postgresqueue "github.com/archivist-labs/ragcore/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/archivist-labs/ragcore/internal/adapters/driven/queue/redis"
	"github.com/archivist-labs/ragcore/internal/config"
	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
	"github.com/archivist-labs/ragcore/internal/core/services"
	"github.com/archivist-labs/ragcore/internal/extractors"
	"github.com/archivist-labs/ragcore/internal/runtime"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	source := flag.String("source", "", "source label for the ingested documents")
	async := flag.Bool("async", false, "enqueue files for background ingestion instead of processing directly")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ragcore-ingest [flags] <file>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	ctx := context.Background()
	ingest, cleanup := buildIngestService(ctx, cfg, *async)
	defer cleanup()

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	failures := 0
	for _, arg := range flag.Args() {
		if *async {
			path, err := filepath.Abs(arg)
			if err == nil {
				_, err = ingest.EnqueueFile(ctx, path, *source)
			}
			if err != nil {
				red.Printf("✗ %s: %v\n", arg, err)
				failures++
				continue
			}
			green.Printf("✓ %s enqueued\n", arg)
			continue
		}

		content, err := os.ReadFile(arg)
		if err != nil {
			red.Printf("✗ %s: %v\n", arg, err)
			failures++
			continue
		}

		result, err := ingest.IngestFile(ctx, driving.FileUpload{
			Filename: filepath.Base(arg),
			Content:  content,
			Source:   *source,
		})
		if err != nil {
			red.Printf("✗ %s: %v\n", arg, err)
			failures++
			continue
		}
		green.Printf("✓ %s (%d chunks)\n", arg, result.ChunkCount)
	}

	if failures > 0 {
		red.Printf("%d of %d files failed\n", failures, flag.NArg())
		os.Exit(1)
	}
	green.Printf("%d files processed\n", flag.NArg())
}

// buildIngestService wires the minimal stack needed for ingestion.
// In async mode only the task queue is exercised, but the full service
// is built either way so direct and queued paths behave identically.
func buildIngestService(ctx context.Context, cfg *config.Config, needQueue bool) (driving.IngestService, func()) {
	log := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Database.URL))
	if err != nil {
		fatal("failed to connect to database: %v", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		fatal("failed to initialize schema: %v", err)
	}

	cleanup := func() { db.Close() }

	var taskQueue driven.TaskQueue
	if needQueue {
		if cfg.Redis.URL != "" {
			opts, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				cleanup()
				fatal("failed to parse redis URL: %v", err)
			}
			client := redis.NewClient(opts)
			taskQueue, err = redisqueue.NewQueue(client, fmt.Sprintf("ingest-cli-%d", os.Getpid()))
			if err != nil {
				cleanup()
				fatal("failed to create task queue: %v", err)
			}
		} else {
			taskQueue = postgresqueue.NewQueue(db.DB)
		}
	}

	runtimeServices := runtime.NewServices(domain.NewRuntimeConfig(cfg.Vector.Backend, "cli"))
	embedSettings := cfg.EmbeddingSettings()
	if embedSettings.IsConfigured() {
		if svc, err := ai.NewFactory().CreateEmbeddingService(embedSettings); err == nil {
			runtimeServices.SetEmbeddingService(svc)
		}
	}

	extractorRegistry := extractors.NewRegistry()
	extractorRegistry.Register(&extractors.TextExtractor{})
	extractorRegistry.Register(&extractors.PDFExtractor{})
	extractorRegistry.Register(&extractors.DOCXExtractor{})

	processor := services.NewProcessor(services.ProcessorConfig{
		MaxFileSizeBytes: cfg.Processor.MaxFileSizeBytes,
		ChunkSize:        cfg.Processor.ChunkSize,
		ChunkOverlap:     cfg.Processor.ChunkOverlap,
	}, extractorRegistry)

	indexer := services.NewIndexer(buildVectorIndex(cfg), runtimeServices)
	if err := indexer.Initialize(ctx); err != nil {
		log.Warn().Err(err).Msg("vector collection initialization failed")
	}

	return services.NewIngestService(processor, indexer, postgres.NewDocumentStore(db), taskQueue, log), cleanup
}

func buildVectorIndex(cfg *config.Config) driven.VectorIndex {
	switch cfg.Vector.Backend {
	case "chroma":
		chromaCfg := chroma.DefaultConfig("http://localhost:8000")
		if cfg.Vector.Chroma != nil && cfg.Vector.Chroma.URL != "" {
			chromaCfg.BaseURL = cfg.Vector.Chroma.URL
		}
		if cfg.Vector.Chroma != nil && cfg.Vector.Chroma.Collection != "" {
			chromaCfg.Collection = cfg.Vector.Chroma.Collection
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
			fatal("failed to create qdrant store: %v", err)
		}
		return store

	case "pgvector":
		pgCfg := pgvector.Config{URL: cfg.Database.URL, VectorSize: cfg.Vector.Dimensions}
		if cfg.Vector.Pgvector != nil {
			if cfg.Vector.Pgvector.URL != "" {
				pgCfg.URL = cfg.Vector.Pgvector.URL
			}
			pgCfg.Table = cfg.Vector.Pgvector.Table
		}
		store, err := pgvector.NewStore(pgCfg)
		if err != nil {
			fatal("failed to create pgvector store: %v", err)
		}
		return store

	default:
		fatal("unknown vector backend %q (use: chroma, qdrant, or pgvector)", cfg.Vector.Backend)
		return nil
	}
}

func fatal(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
