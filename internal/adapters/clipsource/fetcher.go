// Package clipsource fetches clip bytes from their opaque locators into
// run-scoped scratch files. Storage and auth mechanisms are external
// collaborators; this package only moves bytes.
package clipsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// Default fetcher configuration constants.
const (
	defaultFetchTimeout = 30 * time.Second
	scratchPattern      = "clip-*.bin"
)

// Fetcher resolves a clip locator to a local scratch file. The returned
// cleanup must be called when the run ends; it removes the scratch file.
type Fetcher interface {
	Fetch(ctx context.Context, clipRef string) (path string, cleanup func(), err error)
}

// MultiFetcher routes locators by scheme: http/https, s3, and bare paths or
// file:// locators for local clips.
type MultiFetcher struct {
	http       *HTTPFetcher
	object     Fetcher
	scratchDir string
	log        logger.Logger
}

// Option applies a configuration option to the MultiFetcher.
type Option func(*MultiFetcher)

// WithObjectFetcher installs the s3:// locator backend.
func WithObjectFetcher(f Fetcher) Option {
	return func(m *MultiFetcher) {
		if f != nil {
			m.object = f
		}
	}
}

// WithScratchDir sets the directory for downloaded clips. Empty means the
// OS temp dir.
func WithScratchDir(dir string) Option {
	return func(m *MultiFetcher) {
		m.scratchDir = dir
	}
}

// WithFetchTimeout bounds a single HTTP download.
func WithFetchTimeout(d time.Duration) Option {
	return func(m *MultiFetcher) {
		if d > 0 {
			m.http.client.Timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(m *MultiFetcher) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMultiFetcher creates the routing fetcher.
func NewMultiFetcher(opts ...Option) *MultiFetcher {
	m := &MultiFetcher{
		http: &HTTPFetcher{client: &http.Client{Timeout: defaultFetchTimeout}},
		log:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.http.scratchDir = m.scratchDir
	return m
}

// Fetch resolves clipRef to a scratch file.
func (m *MultiFetcher) Fetch(ctx context.Context, clipRef string) (string, func(), error) {
	switch {
	case strings.HasPrefix(clipRef, "http://"), strings.HasPrefix(clipRef, "https://"):
		return m.http.Fetch(ctx, clipRef)
	case strings.HasPrefix(clipRef, "s3://"):
		if m.object == nil {
			return "", nil, fmt.Errorf("%w: no object-storage backend configured for %s", ErrUnsupportedLocator, clipRef)
		}
		return m.object.Fetch(ctx, clipRef)
	case strings.HasPrefix(clipRef, "file://"):
		return localClip(strings.TrimPrefix(clipRef, "file://"))
	case !strings.Contains(clipRef, "://"):
		return localClip(clipRef)
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, clipRef)
	}
}

// localClip serves a clip already on disk. No cleanup: the file is not ours.
func localClip(path string) (string, func(), error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrClipUnavailable, err)
	}
	return path, func() {}, nil
}

// HTTPFetcher downloads a clip over HTTP to a scratch file that the cleanup
// always removes, so no raw video outlives its run.
type HTTPFetcher struct {
	client     *http.Client
	scratchDir string
}

// Fetch downloads clipRef.
func (f *HTTPFetcher) Fetch(ctx context.Context, clipRef string) (string, func(), error) {
	if _, err := url.ParseRequestURI(clipRef); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnsupportedLocator, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clipRef, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnsupportedLocator, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", model.ErrTransientExternal, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", nil, fmt.Errorf("%w: clip source returned %d", model.ErrTransientExternal, resp.StatusCode)
	default:
		return "", nil, fmt.Errorf("%w: clip source returned %d", ErrClipUnavailable, resp.StatusCode)
	}

	return spool(resp.Body, f.scratchDir)
}

// spool copies src to a scratch file and returns its path plus cleanup.
func spool(src io.Reader, dir string) (string, func(), error) {
	tmp, err := os.CreateTemp(dir, scratchPattern)
	if err != nil {
		return "", nil, err
	}
	n, err := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("%w: %w", model.ErrTransientExternal, err)
	}
	metrics.RecordClipBytes(int(n))
	path := tmp.Name()
	return path, func() { _ = os.Remove(path) }, nil
}
