// Package api provides the HTTP transport for the to-do service: a thin
// JSON-over-HTTP client and the authenticated request pipeline that wraps it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:3000"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the root of the remote API (e.g. "https://api.example.com").
	// Defaults to the local development server when empty.
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	// Timeout semantics are delegated entirely to this transport.
	HTTPClient *http.Client
	// Logger is used for structured logging.
	Logger zerolog.Logger
	// RequestsPerSecond throttles outbound calls when > 0.
	RequestsPerSecond float64
}

// Client is an unauthenticated JSON client for the remote API. Authorization
// concerns live in Pipeline; the Client only knows how to dispatch a request
// and normalize the response.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	limiter    *rate.Limiter
}

// NewClient creates a Client for the given configuration.
func NewClient(config ClientConfig) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, errors.Errorf("[NewClient] base URL %q must use http or https scheme", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     config.Logger,
		limiter:    limiter,
	}, nil
}

// Do sends a JSON request and decodes a successful response into out.
// bearer is attached as an Authorization header when non-empty. body and out
// may each be nil. On a non-2xx response the returned error is a *Error; when
// no response was received at all the error matches ErrNetwork.
func (c *Client) Do(ctx context.Context, method, path, bearer string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "[Client.Do] rate limiter")
		}
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.Do] encode request body")
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return errors.Wrap(err, "[Client.Do] create request")
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("request failed without a response")
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		if out != nil && len(responseBody) > 0 {
			if err := json.Unmarshal(responseBody, out); err != nil {
				return errors.Wrapf(err, "[Client.Do] decode response from %s %s", method, path)
			}
		}
		return nil
	}

	apiErr := &Error{
		StatusCode: response.StatusCode,
		Message:    extractMessage(responseBody, response.StatusCode),
	}
	c.logger.Debug().Int("status", response.StatusCode).Str("method", method).Str("path", path).Msg(apiErr.Message)
	return apiErr
}

// extractMessage pulls a human-readable failure message out of a response:
// the JSON body's "message" or "error" field, then the status text, then a
// generic fallback.
func extractMessage(body []byte, statusCode int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return "request failed"
}
