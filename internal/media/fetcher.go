// Package media retrieves previously uploaded images for inference.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/storage"
)

// maxImageBytes caps how much image data is read into memory per fetch.
const maxImageBytes = 20 << 20 // 20 MB

// Image is a fetched source photo ready for the inference call.
type Image struct {
	MimeType string
	Data     []byte
}

// Fetcher retrieves an image by URL. Implementations fail fast: the
// image is required input, so retry policy belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) (Image, error)
}

// HTTPFetcher fetches images over HTTP with a bounded timeout.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout defaults to 15s.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a single GET. Non-2xx responses, empty bodies, and
// non-image content types all fail the fetch; there is no retry.
func (f *HTTPFetcher) Fetch(ctx context.Context, imageURL string) (Image, error) {
	const op = "media.fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, domain.Invalid(op, "image_url is not a valid URL")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Image{}, domain.Upstream(err, op, "Failed to fetch image")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Image{}, domain.Upstream(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			op, fmt.Sprintf("Failed to fetch image: HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return Image{}, domain.Upstream(err, op, "Failed to read image data")
	}
	if len(data) == 0 {
		return Image{}, domain.Upstream(fmt.Errorf("empty response body"), op, "Image is empty")
	}
	if len(data) > maxImageBytes {
		return Image{}, domain.Invalid(op, "Image exceeds the 20 MB size limit")
	}

	mimeType := storage.DetectContentType(resp.Header.Get("Content-Type"), imageURL, nil)
	if mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !storage.IsImage(mimeType) {
		return Image{}, domain.Upstream(
			fmt.Errorf("content type %q is not an image", mimeType),
			op, "Fetched object is not an image")
	}

	return Image{MimeType: mimeType, Data: data}, nil
}
