package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/docsweep/docsweep/internal/config"
	"github.com/docsweep/docsweep/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the execution mode
func setupLogging(cfg *config.Config) {
	// Stdio carries the MCP protocol, so all logging goes to stderr.
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.IsStdioMode() && !cfg.IsDebug() {
		// Quiet stdio sessions unless debugging: protocol noise is worse
		// than missing logs.
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// runStdioMode serves MCP over standard I/O until the parent closes stdin
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	if err := server.Run(ctx); err != nil {
		logrus.WithError(err).Error("server error")
		os.Exit(1)
	}
}

// runOnce processes the documents named on the command line and exits
func runOnce(ctx context.Context, cancel context.CancelFunc, service *mcp.Service) {
	paths := pflag.Args()
	if len(paths) == 0 {
		logrus.Fatal("run mode needs at least one document path argument")
	}

	// Graceful stop on SIGINT/SIGTERM: the current batch finishes, the
	// next one sees the cancelled context.
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		logrus.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	failed := 0
	for _, path := range paths {
		log := logrus.WithField("document", path)
		for {
			summary, done, err := service.RedactDocument(ctx, "cli", path, mcp.RedactOptions{})
			if err != nil {
				log.WithError(err).Error("document failed")
				failed++
				break
			}
			fmt.Fprintln(os.Stdout, summary)
			if done {
				break
			}
		}
	}

	fmt.Fprintf(os.Stdout, "%d/%d documents processed\n", len(paths)-failed, len(paths))
	if failed > 0 {
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		logrus.Debugf("Starting with configuration: %s", cfg.String())
	}

	// Create the pipeline service
	service := mcp.NewService(cfg)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsRunMode() {
		runOnce(ctx, cancel, service)
		return
	}

	server, err := mcp.NewServer(cfg, service)
	if err != nil {
		logrus.Fatalf("Failed to create MCP server: %v", err)
	}
	runStdioMode(ctx, cancel, server)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("docsweep\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
