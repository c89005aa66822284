// Package main is the assist CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/notely/assist/internal/ai"
	"github.com/notely/assist/internal/broadcast"
	"github.com/notely/assist/internal/chat"
	"github.com/notely/assist/internal/cli"
	"github.com/notely/assist/internal/config"
	"github.com/notely/assist/internal/export"
	"github.com/notely/assist/internal/extract"
	"github.com/notely/assist/internal/intent"
	"github.com/notely/assist/internal/knowledge"
	"github.com/notely/assist/internal/models"
	"github.com/notely/assist/internal/querylog"
	"github.com/notely/assist/internal/server"
	"github.com/notely/assist/internal/storage"
	"github.com/notely/assist/internal/vector"
	"github.com/notely/assist/internal/watcher"
	"github.com/notely/assist/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/assist/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
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
	switch os.Args[1] {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "upload":
		runUpload()
	case "docs":
		runDocs()
	case "export":
		runExport()
	case "version", "--version", "-v":
		fmt.Printf("assist version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: assist <command> [flags]

Commands:
  server    Run the assist HTTP server
  ask       Ask the assistant a question
  upload    Upload a document to the knowledge base
  docs      List knowledge base documents
  export    Download the query log as CSV
  version   Print version
  help      Show this help
`)
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
		zap.Bool("debug", debugMode))

	ctx := context.Background()

	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer st.Close()

	embedder, generator, err := buildProviders(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	index, err := vector.NewMemory(cfg.AI.EmbeddingDimensions)
	if err != nil {
		logger.Fatal("Failed to create vector index", zap.Error(err))
	}
	ks, err := knowledge.NewStore(st, embedder, index,
		cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, knowledge.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create knowledge store", zap.Error(err))
	}
	if n, err := ks.LoadIndex(ctx); err != nil {
		logger.Fatal("Failed to rebuild vector index", zap.Error(err))
	} else {
		logger.Info("index ready", zap.Int("chunks", n))
	}

	orchestrator := chat.NewOrchestrator(
		intent.NewClassifier(intent.DefaultRules()),
		ks,
		generator,
		cfg.RAG.TopK,
		time.Duration(cfg.AI.GenerationTimeoutMS)*time.Millisecond,
		chat.WithLogger(logger),
	)
	log := querylog.NewLog(st, querylog.WithLogger(logger))
	broadcaster := broadcast.NewBroadcaster(cfg.Analytics.StreamBufferSize, broadcast.WithLogger(logger))
	defer broadcaster.Close()
	exporter := export.NewStreamer(log, cfg.Analytics.ExportPageSize, export.WithLogger(logger))

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Ingest.Directories) > 0 {
		watchSvc = watcher.NewWatcher(
			cfg.Ingest.Directories,
			cfg.Ingest.Extensions,
			ingestFunc(ks, logger),
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start ingest watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(ks, orchestrator, log, broadcaster, exporter, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// buildProviders returns the embedding and generation providers named by the
// config. The mock provider needs no credentials and is meant for development.
func buildProviders(ctx context.Context, cfg *config.Config) (ai.Embedder, ai.Generator, error) {
	if cfg.AI.Provider == "mock" {
		return ai.NewMockEmbedder(cfg.AI.EmbeddingDimensions), &ai.MockGenerator{}, nil
	}
	apiKey := os.Getenv(cfg.AI.APIKeyEnv)
	if apiKey == "" {
		return nil, nil, fmt.Errorf("environment variable %s is not set", cfg.AI.APIKeyEnv)
	}
	gemini, err := ai.NewGemini(ctx, apiKey,
		ai.WithGenerationModel(cfg.AI.GenerationModel),
		ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
		ai.WithDimensions(cfg.AI.EmbeddingDimensions),
	)
	if err != nil {
		return nil, nil, err
	}
	return ai.NewCachedEmbedder(gemini, cfg.AI.EmbeddingCacheSize), gemini, nil
}

// ingestFunc extracts a dropped file and adds it to the knowledge base.
func ingestFunc(ks *knowledge.Store, logger *zap.Logger) func(path string) {
	extractor := extract.NewExtractor()
	return func(path string) {
		text, err := extractor.Extract(path)
		if err != nil {
			logger.Warn("ingest extract failed", zap.String("path", path), zap.Error(err))
			return
		}
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, _, err := ks.Add(context.Background(), title, path, text); err != nil {
			logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func runAsk() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	channel := fs.String("channel", "cli", "channel label recorded in the query log")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: assist ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]string{"message": query, "channel": *channel})
	var reply cli.ChatReply
	if err := postJSON(*serverURL+"/chat", body, &reply); err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteChatReply(os.Stdout, &reply, format)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	title := fs.String("title", "", "document title (default: file name)")
	source := fs.String("source", "", "origin label (default: file path)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: assist upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	text, err := extract.NewExtractor().Extract(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extract failed: %v\n", err)
		os.Exit(1)
	}
	if *title == "" {
		*title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if *source == "" {
		*source = path
	}

	body, _ := json.Marshal(map[string]string{"title": *title, "content": text, "source": *source})
	var resp struct {
		Doc    *models.Document `json:"doc"`
		Chunks int              `json:"chunks"`
	}
	if err := postJSON(*serverURL+"/rag/upload", body, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteUploadResult(os.Stdout, resp.Doc, resp.Chunks, format)
}

func runDocs() {
	fs := flag.NewFlagSet("docs", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var resp struct {
		Docs []*models.Document `json:"docs"`
	}
	if err := getJSON(*serverURL+"/rag/docs", &resp); err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteDocuments(os.Stdout, resp.Docs, format)
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	intentFilter := fs.String("intent", "", "filter by intent")
	channelFilter := fs.String("channel", "", "filter by channel")
	search := fs.String("search", "", "filter by text in query or reply")
	start := fs.String("start", "", "start time (RFC 3339)")
	end := fs.String("end", "", "end time (RFC 3339)")
	out := fs.String("out", "", "write to file instead of stdout")
	_ = fs.Parse(os.Args[2:])

	params := url.Values{}
	for key, val := range map[string]string{
		"intent": *intentFilter, "channel": *channelFilter, "search": *search,
		"start": *start, "end": *end,
	} {
		if val != "" {
			params.Set(key, val)
		}
	}
	exportURL := *serverURL + "/analytics/export"
	if len(params) > 0 {
		exportURL += "?" + params.Encode()
	}

	resp, err := http.Get(exportURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Export failed: server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		dst = f
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
}

// argsReorder moves flags (and their values) that appear after positional
// arguments to the front so flag.Parse sees them; Go's flag package stops at
// the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func postJSON(url string, body []byte, out any) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(url string, out any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
