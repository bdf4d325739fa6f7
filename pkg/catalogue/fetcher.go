package catalogue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Fetcher downloads catalogue blobs from a remote object store.
type Fetcher interface {
	Fetch(ctx context.Context, blobPath string) ([]byte, error)
}

// HTTPFetcher reads blobs from a publicly served container, e.g. an Azure static
// website "$web" container or any bucket behind a CDN.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, blobPath string) ([]byte, error) {
	if f.BaseURL == "" {
		return nil, fmt.Errorf("no base url configured: %w", ErrRemoteUnavailable)
	}

	url := fmt.Sprintf("%s/%s", f.BaseURL, strings.TrimLeft(blobPath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", blobPath, err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d: %w", blobPath, resp.StatusCode, ErrRemoteUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", blobPath, err, ErrRemoteUnavailable)
	}
	return data, nil
}
