// Package main is the Kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/config"
	"github.com/fitcoach/kotae/internal/embedding"
	"github.com/fitcoach/kotae/internal/eval"
	"github.com/fitcoach/kotae/internal/generate"
	"github.com/fitcoach/kotae/internal/ingest"
	"github.com/fitcoach/kotae/internal/keyword"
	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/internal/rag"
	"github.com/fitcoach/kotae/internal/retrieval"
	"github.com/fitcoach/kotae/internal/server"
	"github.com/fitcoach/kotae/internal/storage"
	"github.com/fitcoach/kotae/internal/vector"
	"github.com/fitcoach/kotae/internal/watcher"
	"github.com/fitcoach/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

const (
	chunksFile  = "chunks.db"
	vectorsFile = "vectors.bin"
)

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory so running from the project dir
// picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "build":
		runBuild()
	case "eval":
		runEval()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Storage.WatchArtifact {
		artifactWatcher := watcher.NewArtifactWatcher(
			cfg.Storage.ArtifactPath,
			vectorsFile,
			func() {
				path := filepath.Join(cfg.Storage.ArtifactPath, vectorsFile)
				idx, loadErr := vector.LoadMemoryIndex(path, components.Embedder.ModelID(), cfg.Embedding.Dimensions)
				if loadErr != nil {
					logger.Error("artifact reload failed, keeping current index", zap.Error(loadErr))
					return
				}
				old := components.Holder.Swap(idx)
				_ = old.Close()
				logger.Info("index swapped", zap.Int("vectors", idx.Size()))
			},
			logger,
		)
		if err := artifactWatcher.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start artifact watcher", zap.Error(err))
		}
		defer artifactWatcher.Stop()
	}

	srv := server.NewServer(components.Orchestrator, components.Store, components.Holder, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	k := fs.Int("k", 0, "number of chunks to retrieve (0 = config default)")
	category := fs.String("category", "", "restrict retrieval to one category")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	query := &models.AskQuery{Query: question, K: *k}
	if *category != "" {
		parsed, err := models.ParseCategory(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		query.CategoryFilter = string(parsed)
	}

	answer, err := components.Orchestrator.Answer(context.Background(), query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed (%s): %v\n", rag.ErrorKind(err), err)
		os.Exit(1)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range answer.Citations {
			fmt.Printf("  [%d] %s: %s\n", c.Marker, c.SourceID, c.Excerpt)
		}
	}
	fmt.Printf("\n(%d ms)\n", answer.LatencyMS)
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpusDir := fs.String("corpus", "", "corpus directory (pdf/md/txt)")
	outDir := fs.String("out", "", "artifact output directory (default: storage.artifact_path)")
	_ = fs.Parse(os.Args[2:])

	if *corpusDir == "" {
		fmt.Println("Usage: kotae build -corpus <dir> [-out <dir>]")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	target := *outDir
	if target == "" {
		target = cfg.Storage.ArtifactPath
	}
	if target == "" {
		fmt.Fprintln(os.Stderr, "No output directory: set -out or storage.artifact_path")
		os.Exit(1)
	}

	embedder := newEmbedder(cfg, logger)
	defer embedder.Close()

	builder := ingest.NewBuilder(embedder, cfg, logger)
	start := time.Now()
	result, err := builder.Build(context.Background(), *corpusDir, target)
	if err != nil {
		logger.Fatal("Build failed", zap.Error(err))
	}
	fmt.Printf("Built index artifact: %d source(s), %d chunk(s) in %s\n",
		result.Sources, result.Chunks, time.Since(start).Round(time.Millisecond))
	for _, skipped := range result.Skipped {
		fmt.Printf("  skipped: %s\n", skipped)
	}
	fmt.Printf("Artifact written to %s\n", target)
}

func runEval() {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	labelsPath := fs.String("labels", "", "labeled query set (jsonl)")
	k := fs.Int("k", 0, "retrieval depth to score (0 = config top_k)")
	_ = fs.Parse(os.Args[2:])

	if *labelsPath == "" {
		fmt.Println("Usage: kotae eval -labels <file> [-k N]")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	queries, err := eval.LoadLabeledQueries(*labelsPath)
	if err != nil {
		logger.Fatal("Failed to load query set", zap.Error(err))
	}

	depth := *k
	if depth <= 0 {
		depth = cfg.Retrieval.TopK
	}
	runID := uuid.NewString()
	logger.Info("evaluation starting",
		zap.String("run_id", runID),
		zap.Int("queries", len(queries)),
		zap.Int("k", depth))

	evaluator := eval.NewEvaluator(components.Orchestrator, depth, logger)
	report, err := evaluator.Run(context.Background(), queries)
	if err != nil {
		logger.Fatal("Evaluation failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Fatal("Failed to encode report", zap.Error(err))
	}
}

// Components holds initialized services.
type Components struct {
	Store        storage.Store
	Embedder     embedding.Embedder
	Holder       *vector.Holder
	KeywordIndex keyword.Index
	Orchestrator *rag.Orchestrator
	QueryLog     *rag.QueryLog
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Holder != nil {
		_ = c.Holder.Get().Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.QueryLog != nil {
		_ = c.QueryLog.Close()
	}
}

// newEmbedder returns the ONNX encoder when the model loads, the deterministic
// mock otherwise. The mock keeps development and tests working without the
// model file; a mock-built artifact is rejected at serving time by the model
// fingerprint check if the real encoder comes back.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.ModelName,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX encoder unavailable, using mock embedder", zap.Error(err))
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	return onnxEmbedder
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if cfg.Storage.ArtifactPath == "" {
		return nil, fmt.Errorf("%w: storage.artifact_path not set", rag.ErrIndexUnavailable)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(cfg.Storage.ArtifactPath, chunksFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder := newEmbedder(cfg, logger)

	vectorsPath := filepath.Join(cfg.Storage.ArtifactPath, vectorsFile)
	idx, err := vector.LoadMemoryIndex(vectorsPath, embedder.ModelID(), cfg.Embedding.Dimensions)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		if errors.Is(err, vector.ErrModelMismatch) {
			return nil, fmt.Errorf("%w: artifact built with a different embedding model, rebuild required: %v",
				rag.ErrIndexUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", rag.ErrIndexUnavailable, err)
	}
	holder := vector.NewHolder(idx)

	keywordIndex, err := buildKeywordIndex(store, logger)
	if err != nil {
		logger.Warn("keyword index unavailable, similarity-only ranking", zap.Error(err))
		keywordIndex = nil
	}

	retriever := retrieval.NewRetriever(embedder, holder, store, keywordIndex, &cfg.Retrieval, logger)

	generator := generate.NewClient(&generate.Config{
		APIKey:      config.APIKey(),
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Timeout:     time.Duration(cfg.Generation.TimeoutMS) * time.Millisecond,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Policy: generate.DefaultPolicy(
			cfg.Generation.Retries,
			time.Duration(cfg.Generation.BackoffMS)*time.Millisecond,
		),
		Logger: logger,
	})

	var queryLog *rag.QueryLog
	if cfg.Logs.QueryLogPath != "" {
		queryLog, err = rag.NewQueryLog(cfg.Logs.QueryLogPath)
		if err != nil {
			logger.Warn("query log disabled", zap.Error(err))
		}
	}

	orchestrator := rag.NewOrchestrator(retriever, generator, cfg, queryLog, logger)

	logger.Info("pipeline initialized",
		zap.Int("vectors", idx.Size()),
		zap.String("embedding_model", embedder.ModelID()),
		zap.String("generation_model", cfg.Generation.Model))

	return &Components{
		Store:        store,
		Embedder:     embedder,
		Holder:       holder,
		KeywordIndex: keywordIndex,
		Orchestrator: orchestrator,
		QueryLog:     queryLog,
	}, nil
}

// buildKeywordIndex loads every chunk into an in-memory bleve index. The
// keyword side is derived state; it rebuilds from the store on every start.
func buildKeywordIndex(store storage.Store, logger *zap.Logger) (keyword.Index, error) {
	keywordIndex, err := keyword.NewBleveIndex()
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	chunks, err := store.ListChunks(ctx)
	if err != nil {
		_ = keywordIndex.Close()
		return nil, err
	}
	for _, chunk := range chunks {
		if err := keywordIndex.Index(ctx, chunk.ID, chunk.Text); err != nil {
			_ = keywordIndex.Close()
			return nil, err
		}
	}
	logger.Debug("keyword index built", zap.Int("chunks", len(chunks)))
	return keywordIndex, nil
}

func printUsage() {
	fmt.Println(`kotae - Grounded fitness Q&A over a curated evidence corpus

Usage:
  kotae server [flags]              Start the HTTP API
  kotae ask [flags] <question>      Answer one question from the CLI
  kotae build [flags]               Build the index artifact from a corpus
  kotae eval [flags]                Score retrieval against a labeled set
  kotae version                     Show version
  kotae help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path
  --k int            Number of chunks to retrieve (default: config top_k)
  --category string  Restrict retrieval to a category (training, nutrition, recovery, exercise-science, other)

Build Flags:
  --config string    Config file path
  --corpus string    Corpus directory containing pdf/md/txt documents
  --out string       Artifact output directory (default: storage.artifact_path)

Eval Flags:
  --config string    Config file path
  --labels string    Labeled query set, one JSON object per line
  --k int            Retrieval depth to score (default: config top_k)

Examples:
  kotae build --corpus ./corpus
  kotae server
  kotae ask "how much protein per day for muscle growth?"
  kotae ask --category nutrition "is creatine worth taking?"
  kotae eval --labels eval/queries.jsonl`)
}
