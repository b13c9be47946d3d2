// Package remote fetches a profile from another folio instance (or any
// server speaking the same JSON contract) over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/folio/internal/profile"
)

// ProfilePath is the route serving the profile JSON.
const ProfilePath = "/api/profile"

const maxBodySize = 1 << 20 // 1MB

// StatusError is returned when the remote answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned status %d", e.Code)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}

// Client is a profile.Provider backed by an HTTP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting baseURL. A nil httpClient gets a client
// with a 15 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchProfile requests the profile, decodes it and validates it.
func (c *Client) FetchProfile(ctx context.Context) (profile.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ProfilePath, nil)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("creating profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("requesting profile: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodySize)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return profile.Profile{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var p profile.Profile
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return profile.Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	if err := profile.Validate(ctx, p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// IsRunning returns true if the remote answers GET /health with 200.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
