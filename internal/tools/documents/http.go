package documents

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kycgate/internal/tools"
	"kycgate/pkg/platform/sentinel"
)

// HTTPFetcher resolves http(s):// locators with a HEAD request.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Stat issues HEAD against the locator.
func (f *HTTPFetcher) Stat(ctx context.Context, loc Locator) (ObjectInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, loc.Raw, nil)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create head request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return ObjectInfo{}, err
	}
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ObjectInfo{}, fmt.Errorf("%s: %w", loc.Raw, sentinel.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ObjectInfo{}, tools.NewFailure(tools.CapabilityDocumentAnalysis, tools.FailureAuthentication, "document store denied access", nil)
	case resp.StatusCode >= 500:
		return ObjectInfo{}, tools.NewFailure(tools.CapabilityDocumentAnalysis, tools.FailureTransport, fmt.Sprintf("document store unavailable (status %d)", resp.StatusCode), nil)
	case resp.StatusCode >= 300:
		return ObjectInfo{}, tools.NewFailure(tools.CapabilityDocumentAnalysis, tools.FailureBadData, fmt.Sprintf("unexpected document status %d", resp.StatusCode), nil)
	}

	info := ObjectInfo{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.UpdatedAt = t
		}
	}
	if info.Size < 0 {
		info.Size = 0
	}
	return info, nil
}
