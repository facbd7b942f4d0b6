package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/clipsource"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/http/api"
	app "github.com/webbjeremy-ops/echonet-modal-deployment/internal/app"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/config"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/retry"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(serviceOptions(cfg, log)...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// serviceOptions translates the loaded configuration into service options.
func serviceOptions(cfg *config.Config, log logger.Logger) []app.Option {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.RunQueueSize),
		app.WithTargetSpec(ingest.TargetSpec{
			Width:  cfg.FrameWidth,
			Height: cfg.FrameHeight,
			FPS:    cfg.FrameRate,
			Frames: cfg.ClipFrames,
		}),
		app.WithTriageSampleFrames(cfg.TriageSampleFrames),
		app.WithTriageConfidenceFloor(cfg.TriageConfidenceFloor),
		app.WithCapabilityEndpoints(cfg.ClassifierEndpoint, cfg.QuantifierEndpoint),
		app.WithCapabilityTimeout(time.Duration(cfg.CapabilityTimeoutMS) * time.Millisecond),
		app.WithRetryPolicy(retry.Policy{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
			MaxDelay:  time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond,
		}),
		app.WithColdStartPolicy(retry.Policy{
			Attempts:  cfg.ColdStartAttempts,
			BaseDelay: time.Duration(cfg.ColdStartBaseMS) * time.Millisecond,
			MaxDelay:  time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond * 3,
		}),
		app.WithFfmpegPath(cfg.FfmpegPath),
		app.WithScratchDir(cfg.ScratchDir),
	}
	if cfg.S3Endpoint != "" {
		opts = append(opts, app.WithObjectStore(clipsource.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		}))
	}
	return opts
}
