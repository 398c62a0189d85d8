// Package main is the doctext CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

	"github.com/hyperjump/doctext/internal/cli"
	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/server"
	"github.com/hyperjump/doctext/internal/storage"
	"github.com/hyperjump/doctext/internal/watcher"
	"github.com/hyperjump/doctext/internal/workpool"
	"github.com/hyperjump/doctext/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/doctext/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists, and a missing default file falls
// back to built-in defaults plus environment overrides. Returns the config and
// the path that was loaded ("" when none was).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
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
		printUsage(os.Stdout)
		os.Exit(1)
	}
	defer workpool.Shutdown()

	command := os.Args[1]
	args := os.Args[2:]
	code := 0
	switch command {
	case "extract":
		code = runExtract(args, os.Stdin, os.Stdout, os.Stderr)
	case "server":
		runServer(args)
	case "watch":
		runWatch(args)
	case "list":
		code = runList(args, os.Stdout, os.Stderr)
	case "delete":
		code = runDelete(args, os.Stdout, os.Stderr)
	case "status":
		runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("doctext version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		code = 1
	}
	if code != 0 {
		workpool.Shutdown()
		os.Exit(code)
	}
}

// argsReorder moves every flag (and its value) in front of the positional
// arguments so that flag.Parse sees them. Go's flag package stops at the first
// non-flag argument, so "doctext extract --format text a.pdf --prefer-ocr"
// would otherwise leave --prefer-ocr unparsed. fs decides which flags take a
// value: boolean flags never consume the next argument. A lone "-" (stdin) is
// positional, and "--" is kept as the terminator in front of the positionals.
func argsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			flags = append(flags, "--")
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positionals = append(positionals, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") || isBoolFlag(fs, name) {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positionals...)
}

func isBoolFlag(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func runExtract(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	preferOCR := fs.Bool("prefer-ocr", false, "try OCR strategies before text-layer strategies")
	format := fs.String("format", string(cli.OutputJSON), "output format: json or text")
	maxChars := fs.Int("max-chars", 0, "truncate text output to this many characters (0 = no limit)")
	name := fs.String("name", "", "document name when reading from stdin (its extension drives detection)")
	store := fs.Bool("store", false, "save the result to the configured database")
	debug := fs.Bool("debug", false, "log every extraction attempt")
	if err := fs.Parse(argsReorder(fs, args)); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: doctext extract [flags] <file|->")
		return 1
	}
	outFormat, err := cli.ParseOutputFormat(*format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logger, err := utils.NewCLILogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	src, sourcePath := extract.FromPath(fs.Arg(0)), fs.Arg(0)
	if fs.Arg(0) == "-" {
		src, sourcePath = extract.FromReader(stdin), ""
	} else if abs, err := filepath.Abs(sourcePath); err == nil {
		sourcePath = abs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	start := time.Now()
	res, err := extract.Load(ctx, src, *name,
		extract.WithOCRConfig(cfg.OCR),
		extract.WithPreferOCR(*preferOCR || cfg.Extract.PreferOCR),
		extract.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	elapsed := time.Since(start)

	if *store {
		st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer st.Close()
		if err := st.SaveResult(ctx, storage.NewRecord(res, sourcePath, elapsed)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	if err := cli.WriteResult(stdout, res.Envelope(elapsed), outFormat, *maxChars); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (extraction attempts, watcher events, etc.)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	pool := workpool.NewLazy(cfg.Extract.Workers)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchSvc, err := startWatcher(ctx, cfg, store, pool, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}

	srv := server.NewServer(cfg, logger,
		server.WithStorage(store),
		server.WithWatch(watchSvc, resolvedConfigPath),
		server.WithExecutor(pool),
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// startWatcher starts a watcher over cfg.Watch.Directories that extracts
// matching files into store and cfg.Watch.OutputDir.
func startWatcher(ctx context.Context, cfg *config.Config, store storage.Storage, pool workpool.Executor, logger *zap.Logger, debug bool) (*watcher.Watcher, error) {
	loader := extract.NewLoader(
		extract.WithOCRConfig(cfg.OCR),
		extract.WithPreferOCR(cfg.Extract.PreferOCR),
		extract.WithExecutor(pool),
		extract.WithLogger(logger),
	)
	proc := watcher.NewProcessor(loader, store, cfg.Watch.OutputDir, logger)
	opts := []watcher.Option{watcher.WithIgnore(cfg.Watch.OutputDir)}
	if debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	w := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		proc.OnChange(ctx),
		proc.OnRemove(ctx),
		opts...,
	)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	go w.SyncExistingFiles()
	return w, nil
}

func runWatch(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: doctext watch <run|add|remove|list> [path]")
		fmt.Println("  doctext watch run [dirs...]     Extract files in directories as they change")
		fmt.Println("  doctext watch add <path>        Add directory to a running server's watch list")
		fmt.Println("  doctext watch remove <path>     Remove directory from a running server's watch list")
		fmt.Println("  doctext watch list              List a running server's watched directories")
		os.Exit(1)
	}
	sub := args[0]
	if sub == "run" {
		runWatchLocal(args[1:])
		return
	}
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(argsReorder(fs, args[1:]))
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: doctext watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: doctext watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// runWatchLocal runs watch mode in the foreground without the HTTP server.
func runWatchLocal(args []string) {
	fs := flag.NewFlagSet("watch run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputDir := fs.String("output", "", "directory for <file>.txt and <file>.json results (overrides config)")
	noStore := fs.Bool("no-store", false, "do not save results to the database")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(fs, args))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		cfg.Watch.Directories = nil
		for _, d := range fs.Args() {
			abs, _ := filepath.Abs(d)
			cfg.Watch.Directories = append(cfg.Watch.Directories, abs)
		}
	}
	if *outputDir != "" {
		cfg.Watch.OutputDir, _ = filepath.Abs(*outputDir)
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Fprintln(os.Stderr, "No directories to watch; pass them as arguments or set watch.directories")
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var store storage.Storage
	if !*noStore {
		st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			logger.Fatal("Failed to open storage", zap.Error(err))
		}
		defer st.Close()
		store = st
	}
	pool := workpool.NewLazy(cfg.Extract.Workers)
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	w, err := startWatcher(ctx, cfg, store, pool, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	logger.Info("watching", zap.Strings("directories", w.Directories()), zap.String("output_dir", cfg.Watch.OutputDir))
	<-ctx.Done()
	w.Stop()
	logger.Info("Shutting down...")
}

func runList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 20, "number of results")
	offset := fs.Int("offset", 0, "number of results to skip")
	format := fs.String("output", string(cli.OutputText), "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	outFormat, err := cli.ParseOutputFormat(*format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	st, err := openStorage(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer st.Close()

	ctx := context.Background()
	recs, err := st.ListResults(ctx, *offset, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	total, err := st.CountResults(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := cli.WriteRecords(stdout, recs, total, outFormat); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runDelete(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	if err := fs.Parse(argsReorder(fs, args)); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: doctext delete [flags] <document-id>")
		return 1
	}
	st, err := openStorage(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer st.Close()
	if err := st.DeleteResult(context.Background(), fs.Arg(0)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Result deleted: %s\n", fs.Arg(0))
	return 0
}

func openStorage(configPath string) (*storage.SQLiteStorage, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(args)

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed: server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: decode response: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(status)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `doctext - Extract text from PDFs, scans, images and office documents

Usage:
  doctext extract [flags] <file|->    Extract text from a file (or stdin)
  doctext server [flags]              Start the HTTP server (and configured watchers)
  doctext watch run [flags] [dirs]    Extract files as they change
  doctext watch <add|remove|list>     Manage a running server's watched directories
  doctext list [flags]                List stored results
  doctext delete [flags] <id>         Delete a stored result
  doctext status [flags]              Show a running server's status
  doctext version                     Show version
  doctext help                        Show this help

Extract Flags:
  --config string    Config file path (default: /usr/local/etc/doctext/config.yaml)
  --prefer-ocr       Try OCR strategies first
  --format string    Output format: json or text (default: json)
  --max-chars int    Truncate text output (default: no limit)
  --name string      Document name for stdin input, e.g. scan.pdf
  --store            Save the result to the database
  --debug            Log every extraction attempt to stderr

Server Flags:
  --config string    Config file path (default: /usr/local/etc/doctext/config.yaml)
  --debug            Enable debug logging

Watch Run Flags:
  --config string    Config file path
  --output string    Directory for extracted .txt and .json files
  --no-store         Do not save results to the database

Environment:
  OCR_LANG, OCR_DPI, TESSERACT_CMD, PDFTOPPM_CMD, DOCTEXT_PREFER_OCR

Examples:
  doctext extract report.pdf
  doctext extract --prefer-ocr --format text scan.pdf
  cat notes.docx | doctext extract --name notes.docx -
  doctext server
  curl -F file=@scan.png 'http://localhost:8080/gettext?prefer_ocr=true'
  doctext watch run --output ./text ~/Documents/inbox
  doctext list --output json`)
}
