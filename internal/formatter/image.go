package formatter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
)

// leveledLogger adapts a charm logger to [retryablehttp.LeveledLogger].
type leveledLogger struct {
	l *log.Logger
}

func (ll leveledLogger) Error(msg string, kv ...any) { ll.l.Error(msg, kv...) }
func (ll leveledLogger) Info(msg string, kv ...any)  { ll.l.Debug(msg, kv...) }
func (ll leveledLogger) Debug(msg string, kv ...any) { ll.l.Debug(msg, kv...) }
func (ll leveledLogger) Warn(msg string, kv ...any)  { ll.l.Warn(msg, kv...) }

// NewImageClient creates the retrying HTTP client used for cover downloads.
func NewImageClient(logger *log.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	if logger != nil {
		client.Logger = leveledLogger{logger}
	} else {
		client.Logger = nil
	}
	return client
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *retryablehttp.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = NewImageClient(nil)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// SaveCover downloads url to path once. An existing file is kept and reported as not written.
func SaveCover(ctx context.Context, client *retryablehttp.Client, url, path string) (bool, error) {
	if url == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	data, err := DownloadImage(ctx, client, url)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return false, fmt.Errorf("failed to save cover image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("failed to save cover image: %w", err)
	}
	return true, nil
}
