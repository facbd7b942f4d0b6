package testsubmissions

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the submission load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Submission Load Tool
====================

A concurrent tool for exercising the submission pipeline end to end with
synthetic echocardiogram clips.

Usage:
  go run cmd/test-submissions/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -submissions int
        Number of submissions to create (default 200)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -estimate-ratio float
        Share of submissions that record a blind estimate (default 0.8)
  -poll-interval duration
        Delay between status polls (default 250ms)
  -poll-timeout duration
        Per-submission wait for a terminal state (default 2m)
  -clips string
        Directory for generated clips (default: a fresh temp dir)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-submissions/main.go

  # Heavier run against a remote deployment
  go run cmd/test-submissions/main.go -submissions 2000 -workers 16 -url http://staging:9080

  # All submissions blind-estimated
  go run cmd/test-submissions/main.go -estimate-ratio 1.0 -verbose
`)
}
