// Package cmd contains the wavechat entry points: the HTTP API server,
// the migration runner and version/help output.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/wavechat/wavechat/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point. It routes the first argument to a
// command; without arguments the server starts.
//
// Design: following the pattern of kubectl, hugo and similar tools,
// all application logic lives in the cmd package and main.go stays a
// minimal entry point.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersionInfo()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			return runServe()
		case "migrate":
			return runMigrate()
		default:
			printHelp()
			return fmt.Errorf("unknown command: %s", os.Args[1])
		}
	}

	return runServe()
}

// initLogger builds the process-wide logger. DEBUG in the environment
// (any value) lowers the level to debug; logs go to stderr.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	logger := log.New(cfg)
	slog.SetDefault(logger)
	return logger
}

func printHelp() {
	fmt.Println("wavechat - multi-model AI chat service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wavechat              Start the HTTP API server (default)")
	fmt.Println("  wavechat serve        Start the HTTP API server")
	fmt.Println("  wavechat migrate      Apply database migrations and exit")
	fmt.Println("  wavechat --version    Show version information")
	fmt.Println("  wavechat --help       Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  HMAC_SECRET                 Required: signs session cookies (32+ bytes)")
	fmt.Println("  DATABASE_URL                Optional: postgres:// connection URL")
	fmt.Println("  WAVECHAT_LISTEN_ADDR        Optional: listen address (default :8080)")
	fmt.Println("  WAVECHAT_CORS_ORIGINS       Optional: allowed browser origins")
	fmt.Println("  WAVECHAT_UPSTREAM_BASE_URL  Optional: WaveSpeed API base URL")
	fmt.Println("  DEBUG                       Optional: enable debug logging")
	fmt.Println()
	fmt.Println("The WaveSpeed API key is stored in the settings table and managed")
	fmt.Println("through the admin panel, not the environment.")
}
