// backend/scraper/fetch.go
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/openharvest/portal/backend/config"
)

// newClient builds the outbound HTTP client. Transient upstream failures
// (timeouts, 5xx) are retried with exponential backoff up to the
// configured retry count; 4xx responses are not retried.
func newClient(timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = config.AppConfig.HTTP.RetryMax
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 15 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	return client
}

// shapeHeaders makes the request look like a regular browser session.
// Several portals block requests carrying the Go default User-Agent.
func shapeHeaders(req *retryablehttp.Request) {
	req.Header.Set("User-Agent", config.AppConfig.HTTP.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if base := config.AppConfig.Portal.BaseURL; base != "" {
		req.Header.Set("Referer", base)
	}
}

// FetchBytes GETs a URL and returns the full response body.
func FetchBytes(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	shapeHeaders(req)

	resp, err := newClient(timeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to GET %s: status code %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", url, err)
	}
	return body, nil
}

// FetchJSON GETs a URL and unmarshals the JSON response into v.
func FetchJSON(ctx context.Context, url string, v interface{}) error {
	body, err := FetchBytes(ctx, url, config.AppConfig.HTTP.RequestTimeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from %s: %w", url, err)
	}
	return nil
}

// FetchRange issues a partial read of the first chunkBytes of a resource
// and returns the chunk plus the total content length when the server
// reports one. Used to estimate record counts without a full download.
func FetchRange(ctx context.Context, url string, chunkBytes int64) (chunk []byte, totalLength int64, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build range request for %s: %w", url, err)
	}
	shapeHeaders(req)
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", chunkBytes-1))

	resp, err := newClient(config.AppConfig.HTTP.RequestTimeout).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to GET range of %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Content-Range: bytes 0-65535/1048576
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if idx := strings.LastIndex(cr, "/"); idx >= 0 {
				if total, perr := strconv.ParseInt(cr[idx+1:], 10, 64); perr == nil {
					totalLength = total
				}
			}
		}
	case http.StatusOK:
		// Server ignored the Range header; read at most chunkBytes anyway.
		totalLength = resp.ContentLength
	default:
		return nil, 0, fmt.Errorf("failed to GET range of %s: status code %d", url, resp.StatusCode)
	}

	chunk, err = io.ReadAll(io.LimitReader(resp.Body, chunkBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read range chunk from %s: %w", url, err)
	}
	if totalLength <= 0 {
		totalLength = int64(len(chunk))
	}
	return chunk, totalLength, nil
}
