// Package images downloads photos given by URL instead of by upload.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/facereader/facereader/internal/models"
)

// Fetcher retrieves remote photos with a size cap
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// Remote is a downloaded photo before validation
type Remote struct {
	Data        []byte
	Filename    string
	ContentType string
}

// NewFetcher creates a new image fetcher
func NewFetcher(maxBytes int64) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxBytes: maxBytes,
	}
}

// Fetch downloads rawURL. Bodies larger than MaxBytes fail with
// ErrFileTooLarge without reading the rest of the response.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Remote, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Remote{}, models.ErrBadRequest.WithError(fmt.Errorf("invalid image url: %q", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Remote{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Remote{}, models.ErrUpstream.WithError(fmt.Errorf("failed to fetch image: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Remote{}, models.ErrUpstream.WithError(fmt.Errorf("image URL returned status %d", resp.StatusCode))
	}

	limit := f.MaxBytes
	if resp.ContentLength > 0 && limit > 0 && resp.ContentLength > limit {
		return Remote{}, models.ErrFileTooLarge.WithError(fmt.Errorf("content length %d exceeds %d", resp.ContentLength, limit))
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Remote{}, models.ErrUpstream.WithError(fmt.Errorf("failed to read image data: %w", err))
	}
	if limit > 0 && int64(len(data)) > limit {
		return Remote{}, models.ErrFileTooLarge.WithError(fmt.Errorf("image exceeds %d bytes", limit))
	}

	filename := path.Base(u.Path)
	if filename == "." || filename == "/" {
		filename = "image"
	}

	slog.Debug("Fetched remote image", "url", u.Redacted(), "bytes", len(data), "content_type", resp.Header.Get("Content-Type"))
	return Remote{Data: data, Filename: filename, ContentType: resp.Header.Get("Content-Type")}, nil
}
