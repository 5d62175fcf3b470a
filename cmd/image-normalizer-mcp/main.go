package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/ironsheep/image-normalizer-mcp/internal/config"
	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/pipeline"
	"github.com/ironsheep/image-normalizer-mcp/internal/scan"
	"github.com/ironsheep/image-normalizer-mcp/internal/server"
	"github.com/ironsheep/image-normalizer-mcp/internal/watcher"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const configEnv = "IMAGE_NORMALIZER_CONFIG"

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-normalizer-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "image-normalizer-mcp: %v\n", err)
		os.Exit(2)
	}

	// Logging goes to stderr (stdout is for MCP protocol)
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "image-normalizer",
		Level:  cfg.Level(),
		Output: os.Stderr,
	})

	if err := run(cfg, logger, os.Args[1:]); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("image-normalizer-mcp - normalize raster images for consistent storage")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  image-normalizer-mcp                       Run the MCP server on stdin/stdout")
	fmt.Println("  image-normalizer-mcp normalize <path>...   Normalize files and directories")
	fmt.Println("  image-normalizer-mcp watch [dir]           Normalize images as they arrive in dir")
	fmt.Println("  image-normalizer-mcp formats               List decodable file extensions")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  IMAGE_NORMALIZER_CONFIG=path.yaml|path.toml   Configuration file")
	fmt.Println("  IMAGE_NORMALIZER_LOG_LEVEL=debug              trace, debug, info, warn, error, off")
	fmt.Println("  IMAGE_NORMALIZER_QUALITY=95                   JPEG quality 1-100")
	fmt.Println("  IMAGE_NORMALIZER_GREYSCALE=true               Convert output to greyscale")
	fmt.Println("  IMAGE_NORMALIZER_ALLOW_UPSCALE=true           Scale small images up to the reference")
	fmt.Println("  IMAGE_NORMALIZER_REFERENCE_WIDTH/HEIGHT       Reference size (default 1920x1080)")
	fmt.Println("  IMAGE_NORMALIZER_OUTPUT_DIR=dir               Write results here instead of in place")
	fmt.Println("  IMAGE_NORMALIZER_RECURSIVE=true               Descend into subdirectories")
	fmt.Println("  IMAGE_NORMALIZER_WORKERS=4                    Parallel workers (default: CPUs)")
	fmt.Println("  IMAGE_NORMALIZER_WATCH_DIR=dir                Directory for the watch command")
	fmt.Println("  IMAGE_NORMALIZER_WATCH_DEBOUNCE_MS=500        Quiet period before a file is handled")
	fmt.Println()
	fmt.Println("Without a command the server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

// loadConfig reads the optional config file and applies the environment.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if path := os.Getenv(configEnv); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func run(cfg *config.Config, logger hclog.Logger, args []string) error {
	if err := imaging.DefaultEncoder().Ready(); err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		logger.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)
		srv := server.New(server.Options{Logger: logger, Pipeline: opts, Version: Version})
		return srv.Run()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "normalize":
		if len(args) < 2 {
			return errors.New("normalize: at least one file or directory is required")
		}
		return normalize(ctx, cfg, pipeline.New(opts, logger), args[1:])
	case "watch":
		dir := cfg.Watch.Dir
		if len(args) > 1 {
			dir = args[1]
		}
		if dir == "" {
			return errors.New("watch: no directory given and watch.dir is not set")
		}
		return watch(ctx, cfg, opts, logger, dir)
	case "formats":
		for _, ext := range imaging.Formats().Extensions() {
			fmt.Println(ext)
		}
		return nil
	default:
		return errors.Errorf("unknown command %q (see --help)", args[0])
	}
}

// normalize expands directories, runs the batch and prints the report as JSON.
func normalize(ctx context.Context, cfg *config.Config, n *pipeline.Normalizer, targets []string) error {
	var paths []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return errors.Wrapf(err, "stat %s", target)
		}
		if !info.IsDir() {
			paths = append(paths, target)
			continue
		}
		found, err := scan.SupportedImages(target, cfg.Recursive, nil)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}

	report := n.NormalizeAll(ctx, paths, cfg.Workers)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "write report")
	}
	if len(report.Failed) > 0 {
		return errors.Errorf("%d of %d images failed", len(report.Failed), report.Total())
	}
	return nil
}

// watch normalizes every image that lands in dir until interrupted. Output
// goes to output_dir, or a "normalized" subdirectory so results never
// retrigger the watcher.
func watch(ctx context.Context, cfg *config.Config, opts pipeline.Options, logger hclog.Logger, dir string) error {
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(dir, "normalized")
	}
	check := *cfg
	check.Watch.Dir = dir
	check.OutputDir = opts.OutputDir
	if err := check.Validate(); err != nil {
		return err
	}

	n := pipeline.New(opts, logger)
	w, err := watcher.New(dir, func(path string) error {
		_, err := n.NormalizeFile(path)
		return err
	}, watcher.Options{Debounce: cfg.Debounce(), Logger: logger})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("signal received, stopping watcher")
			return w.Stop()
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Err == nil {
				logger.Info("normalized", "path", ev.Path, "output", n.OutputPath(ev.Path))
			}
		}
	}
}
