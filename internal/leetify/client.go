// Package leetify fetches player profiles from the Leetify public API.
package leetify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/verte-zerg/leetboard/internal/model"
)

const (
	// KeyHeader carries the static API credential.
	KeyHeader = "_leetify_key"

	profilePath      = "/v3/profile"
	userAgent        = "leetboard"
	maxErrorBodySize = 512
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Now defaults to time.Now.
	Now func() time.Time
}

// Client performs profile lookups. It never retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// FetchError reports a failed profile fetch for one identity.
type FetchError struct {
	Identity   int64
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch profile %d: status %d: %s", e.Identity, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch profile %d: %s", e.Identity, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type profileResponse struct {
	Name   string        `json:"name"`
	Rating model.Metrics `json:"rating"`
	Stats  model.Metrics `json:"stats"`
}

// New constructs a Client.
func New(cfg Config) *Client {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: NewLoggingRoundTripper(transport),
		},
		now: now,
	}
}

// FetchProfile requests the profile for identity and returns it as-is.
// Any failure is a *FetchError.
func (c *Client) FetchProfile(ctx context.Context, identity int64) (model.PlayerRecord, error) {
	endpoint, err := c.profileURL(identity)
	if err != nil {
		return model.PlayerRecord{}, &FetchError{Identity: identity, Message: "invalid base url", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PlayerRecord{}, &FetchError{Identity: identity, Message: "failed to build request", Err: err}
	}
	req.Header.Set(KeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.PlayerRecord{}, &FetchError{Identity: identity, Message: transportMessage(err), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return model.PlayerRecord{}, &FetchError{Identity: identity, StatusCode: resp.StatusCode, Message: msg}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.PlayerRecord{}, &FetchError{Identity: identity, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}
	var profile profileResponse
	if err := json.Unmarshal(payload, &profile); err != nil {
		return model.PlayerRecord{}, &FetchError{Identity: identity, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
	}

	return model.PlayerRecord{
		Identity:    identity,
		DisplayName: profile.Name,
		Rating:      profile.Rating,
		Stats:       profile.Stats,
		Payload:     json.RawMessage(payload),
		FetchedAt:   c.now().UTC(),
	}, nil
}

func (c *Client) profileURL(identity int64) (string, error) {
	u, err := url.Parse(c.baseURL + profilePath)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("id", strconv.FormatInt(identity, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if (errors.As(err, &urlErr) && urlErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return err.Error()
}
