package clipsource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
)

// S3Fetcher resolves s3://bucket/key locators against an S3-compatible
// object store.
type S3Fetcher struct {
	client     *minio.Client
	scratchDir string
}

// S3Config carries the object-store connection settings.
type S3Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	ScratchDir string
}

// NewS3Fetcher connects to the object store.
func NewS3Fetcher(cfg S3Config) (*S3Fetcher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &S3Fetcher{client: client, scratchDir: cfg.ScratchDir}, nil
}

// Fetch downloads the object behind an s3://bucket/key locator.
func (f *S3Fetcher) Fetch(ctx context.Context, clipRef string) (string, func(), error) {
	bucket, key, err := splitLocator(clipRef)
	if err != nil {
		return "", nil, err
	}

	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", model.ErrTransientExternal, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on first read inside spool.
	path, cleanup, err := spool(obj, f.scratchDir)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket") {
			return "", nil, fmt.Errorf("%w: %s", ErrClipUnavailable, clipRef)
		}
		return "", nil, err
	}
	return path, cleanup, nil
}

// splitLocator parses s3://bucket/key.
func splitLocator(clipRef string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(clipRef, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedLocator, clipRef)
	}
	return bucket, key, nil
}
