// Package main is the unionkb CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/answer"
	"github.com/nzila/unionkb/internal/cli"
	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/embedding"
	"github.com/nzila/unionkb/internal/index"
	"github.com/nzila/unionkb/internal/ingest"
	"github.com/nzila/unionkb/internal/keyword"
	"github.com/nzila/unionkb/internal/llm"
	"github.com/nzila/unionkb/internal/models"
	"github.com/nzila/unionkb/internal/prompt"
	"github.com/nzila/unionkb/internal/ratelimit"
	"github.com/nzila/unionkb/internal/search"
	"github.com/nzila/unionkb/internal/server"
	"github.com/nzila/unionkb/internal/storage"
	"github.com/nzila/unionkb/internal/vector"
	"github.com/nzila/unionkb/internal/watcher"
	"github.com/nzila/unionkb/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/unionkb/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory wins, so running from the project dir uses the
// project's config.
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
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "usage":
		runUsage()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("unionkb version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	intake := watcher.NewIntake(components.Ingestor, components.Indexer, cfg.Watch.OrganizationID, logger)
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		intake.HandleFile,
		intake.HandleRemove,
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Ingestor,
		components.Indexer,
		components.Engine,
		components.Pipeline,
		components.Limiter,
		components.Storage,
		cfg,
		logger,
		server.WithWatcher(watchSvc, resolvedConfigPath),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" && components.VectorIndex != nil {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jurisdiction := fs.String("jurisdiction", "", "jurisdiction tag for the document(s)")
	docType := fs.String("type", "", "document type (contract, policy, ...)")
	organization := fs.String("org", "", "organization id")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: unionkb ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	meta := models.DocumentMetadata{
		Source:         "cli",
		Type:           *docType,
		Jurisdiction:   *jurisdiction,
		OrganizationID: *organization,
	}

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := ingestDirectory(ctx, components, path, cfg.Watch.Extensions, meta)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	doc, err := ingestFile(ctx, components, path, meta)
	if err != nil {
		fmt.Printf("Ingesting failed: %v\n", err)
		os.Exit(1)
	}
	if doc.IsDuplicate {
		fmt.Printf("Skipped duplicate content: %s\n", path)
		return
	}
	fmt.Printf("Document ingested: %s (quality %.0f)\n", doc.ID, doc.Quality.Score)
}

func ingestFile(ctx context.Context, c *Components, path string, meta models.DocumentMetadata) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := c.Ingestor.Ingest(ctx, data, "", filepath.Base(path), meta)
	if err != nil {
		return nil, err
	}
	if !doc.IsDuplicate {
		if _, err := c.Indexer.AddDocuments(ctx, []*models.Document{doc}); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func ingestDirectory(ctx context.Context, c *Components, dir string, extensions []string, meta models.DocumentMetadata) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if len(extensions) > 0 {
			ext := strings.ToLower(filepath.Ext(path))
			matched := false
			for _, e := range extensions {
				if strings.EqualFold(strings.TrimPrefix(e, "."), strings.TrimPrefix(ext, ".")) {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}
		doc, err := ingestFile(ctx, c, path, meta)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", path, err)
			return nil
		}
		if !doc.IsDuplicate {
			count++
		}
		return nil
	})
	return count, err
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct storage access)`)
	topK := fs.Int("top-k", 10, "number of results")
	alpha := fs.Float64("alpha", -1, "semantic/keyword blend, 0..1 (-1 = configured default)")
	jurisdiction := fs.String("jurisdiction", "", "filter results to a jurisdiction")
	docType := fs.String("type", "", "filter results to a document type")
	rerank := fs.Bool("rerank", false, "re-rank results by query term density")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: unionkb search [flags] <query>")
		os.Exit(1)
	}
	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryStr == "" {
		fmt.Println("Usage: unionkb search [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := &models.SearchQuery{
		Query:         queryStr,
		TopK:          *topK,
		Jurisdiction:  *jurisdiction,
		Type:          *docType,
		RerankEnabled: *rerank,
	}
	if *alpha >= 0 {
		query.Alpha = alpha
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		_, logger, components := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()
		response, err = components.Engine.Search(context.Background(), query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: unionkb delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	if _, err := components.Storage.GetDocument(ctx, docID); err != nil {
		fmt.Printf("Document not found: %s\n", docID)
		os.Exit(1)
	}
	if _, err := components.Indexer.DeleteDocuments(ctx, []string{docID}); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runUsage() {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	reset := fs.Bool("reset", false, "reset the tenant's window counters")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: unionkb usage [flags] <tenant>")
		os.Exit(1)
	}
	tenant := fs.Arg(0)
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	if *reset {
		if err := components.Limiter.ResetLimits(ctx, tenant); err != nil {
			fmt.Printf("Reset failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Limits reset for %s\n", tenant)
		return
	}
	stats, err := components.Limiter.GetUsageStats(ctx, tenant)
	if err != nil {
		fmt.Printf("Usage lookup failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteUsageStats(os.Stdout, stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents        int64  `json:"documents"`
	Chunks           int64  `json:"chunks"`
	VectorIndexSize  int    `json:"vector_index_size"`
	KeywordIndexSize int    `json:"keyword_index_size"`
	DiskUsageBytes   *int64 `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct storage access)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, logger, components := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:        docCount,
			Chunks:           chunkCount,
			VectorIndexSize:  components.Engine.VectorIndexSize(),
			KeywordIndexSize: components.Engine.KeywordDocCount(),
		}
		diskBytes, err := storage.DiskUsageBytes(
			cfg.Storage.DatabasePath,
			cfg.Storage.CounterDBPath,
			cfg.Storage.VectorIndexPath,
		)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:          %d\n", status.Documents)
		fmt.Printf("chunks:             %d\n", status.Chunks)
		fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
		fmt.Printf("keyword_index_size: %d\n", status.KeywordIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.KeywordIndex
	Counters     ratelimit.CounterStore
	Limiter      *ratelimit.Limiter
	Ingestor     *ingest.Ingestor
	Indexer      *index.Indexer
	Engine       *search.Engine
	Pipeline     *answer.Pipeline
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Counters != nil {
		_ = c.Counters.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.NewEmbedder(
		cfg.Embedding.Provider,
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vectorIndex, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	keywordIndex := keyword.NewBM25Index()

	counters, err := ratelimit.NewSQLiteCounterStore(cfg.Storage.CounterDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize counter store: %w", err)
	}
	limiterOpts := []ratelimit.LimiterOption{ratelimit.WithLogger(logger)}
	limiter := ratelimit.NewLimiter(counters, ratelimit.NewMemoryBudgetStore(), &cfg.RateLimit, limiterOpts...)

	registry := prompt.NewRegistry()
	if err := prompt.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("failed to register templates: %w", err)
	}

	var (
		ingestOpts []ingest.IngestorOption
		idxOpts    []index.IndexerOption
		engineOpts []search.EngineOption
	)
	if debug {
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
		idxOpts = append(idxOpts, index.WithLogger(logger))
		engineOpts = append(engineOpts, search.WithLogger(logger))
	}
	ingestor := ingest.NewIngestor(store, ingestOpts...)
	idx := index.NewIndexer(store, embedder, vectorIndex, keywordIndex, &cfg.Search, idxOpts...)
	engine := search.NewEngine(store, embedder, vectorIndex, keywordIndex, &cfg.Search, engineOpts...)

	pipeline := answer.NewPipeline(
		engine,
		prompt.NewResolver(registry),
		limiter,
		&llm.StaticProvider{},
		&cfg.Answer,
		answer.WithLogger(logger),
	)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		KeywordIndex: keywordIndex,
		Counters:     counters,
		Limiter:      limiter,
		Ingestor:     ingestor,
		Indexer:      idx,
		Engine:       engine,
		Pipeline:     pipeline,
	}, nil
}

func mustInitialize(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return cfg, logger, components
}

func printUsage() {
	fmt.Println(`unionkb - Retrieval and generation core for union knowledge bases

Usage:
  unionkb server [flags]            Start the HTTP server
  unionkb ingest [flags] <path>     Ingest a document or directory
  unionkb search [flags] <query>    Hybrid search over indexed chunks
  unionkb delete [flags] <id>       Delete a document and its chunks
  unionkb usage [flags] <tenant>    Show or reset a tenant's usage
  unionkb status [flags]            Show storage and index status
  unionkb version                   Show version
  unionkb help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/unionkb/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string        Config file path
  --jurisdiction string  Jurisdiction tag applied to ingested documents
  --type string          Document type (contract, policy, ...)
  --org string           Organization id

Search Flags:
  --config string        Config file path (direct storage mode)
  --server string        Server URL (default: http://localhost:8080); empty for direct storage
  --top-k int            Number of results (default: 10)
  --alpha float          Semantic/keyword blend 0..1 (default: configured value)
  --jurisdiction string  Filter to a jurisdiction
  --type string          Filter to a document type
  --rerank               Re-rank by query term density
  --output string        Output format: text or json

Usage Flags:
  --config string    Config file path
  --reset            Reset the tenant's window counters
  --output string    Output format: text or json

Status Flags:
  --config string    Config file path (direct storage mode)
  --server string    Server URL (default: http://localhost:8080); empty for direct storage
  --output string    Output format: text or json

Examples:
  unionkb server
  unionkb ingest --jurisdiction california --type contract cba-2026.pdf
  unionkb search "grievance filing deadline"
  unionkb search --alpha 0 --jurisdiction federal overtime
  unionkb usage local-817
  unionkb usage --reset local-817
  unionkb status --output json`)
}
