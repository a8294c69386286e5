package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/core"
)

// MediaFetcher downloads photos through the Bot API file endpoint
type MediaFetcher struct {
	api    API
	client *http.Client
	logger *zap.Logger
}

// NewMediaFetcher creates a fetcher. Downloads are retried on transport
// errors and 5xx responses.
func NewMediaFetcher(api API, retries int, logger *zap.Logger) *MediaFetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.Logger = nil
	return &MediaFetcher{
		api:    api,
		client: rc.StandardClient(),
		logger: logger,
	}
}

// Fetch stores the file as dir/<file id>-<random>.jpg and returns its path.
// Every call gets its own file, so two messages carrying the same photo never
// share one.
func (f *MediaFetcher) Fetch(ctx context.Context, ref core.MediaRef, dir string) (string, error) {
	link, err := f.api.GetFileDirectURL(ref.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file %s: %w", ref.FileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file %s: %w", ref.FileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file %s: status %d", ref.FileID, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}
	out, err := os.CreateTemp(dir, filepath.Base(ref.FileID)+"-*.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to create photo file in %s: %w", dir, err)
	}
	path := out.Name()
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	f.logger.Debug("Photo downloaded", zap.String("path", path), zap.Int64("bytes", n))
	return path, nil
}
