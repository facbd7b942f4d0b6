package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/testsubmissions"
)

// Default configuration constants.
const (
	defaultSubmissions   = 200
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultEstimateRatio = 0.8
	defaultPollInterval  = 250 * time.Millisecond
	defaultPollTimeout   = 2 * time.Minute
	defaultTestTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		submissions   = flag.Int("submissions", defaultSubmissions, "Number of submissions to create")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		estimateRatio = flag.Float64("estimate-ratio", defaultEstimateRatio, "Share of submissions that record a blind estimate")
		pollInterval  = flag.Duration("poll-interval", defaultPollInterval, "Delay between status polls")
		pollTimeout   = flag.Duration("poll-timeout", defaultPollTimeout, "Per-submission wait for a terminal state")
		clipDir       = flag.String("clips", "", "Directory for generated clips (default: a fresh temp dir)")
		logFile       = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testsubmissions.ShowHelp()
		return
	}

	if err := testsubmissions.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testsubmissions.Config{
		BaseURL:        *baseURL,
		NumSubmissions: *submissions,
		Workers:        *workers,
		Timeout:        *timeout,
		EstimateRatio:  *estimateRatio,
		PollInterval:   *pollInterval,
		PollTimeout:    *pollTimeout,
		ClipDir:        *clipDir,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if err := testsubmissions.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
