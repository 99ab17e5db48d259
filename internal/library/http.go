package library

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/tunesync/internal/shared"
)

const defaultUserAgent = "tunesync/0.1.0 (https://github.com/desertthunder/tunesync)"

// requester sends paced JSON GET requests for a backend.
type requester struct {
	client    *http.Client
	pacer     *Pacer
	userAgent string
}

func newRequester(client *http.Client, pacer *Pacer, userAgent string) *requester {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &requester{client: client, pacer: pacer, userAgent: userAgent}
}

// getJSON waits on the pacer, fetches rawURL and decodes the body into result.
func (r *requester) getJSON(ctx context.Context, rawURL string, result any) error {
	if err := r.pacer.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status %d", shared.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
