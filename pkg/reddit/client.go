package reddit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/metrics"
)

// ClientConfig configures a Client
type ClientConfig struct {
	// BaseURL is the OAuth host. Defaults to OAuthBaseURL.
	BaseURL string
	// UserAgent must be unique per application or Reddit rejects the call
	UserAgent string
	// Timeout bounds a single HTTP exchange when the caller sets no deadline
	Timeout time.Duration
	// HTTPClient overrides the underlying client; Timeout is ignored when set
	HTTPClient *http.Client
}

// Client is the authenticated Reddit transport. The bearer token is passed
// per call and never stored.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a new Reddit API client
func NewClient(cfg ClientConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = OAuthBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = UserAgentString("", "", "")
	}

	return &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// BaseURL returns the OAuth host this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UserAgent returns the User-Agent sent on every request
func (c *Client) UserAgent() string {
	return c.headers["User-Agent"]
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// doRequest sends req with the client headers and the bearer token.
// endpoint is a short label used for logs and metrics.
func (c *Client) doRequest(req *http.Request, endpoint, token string) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method":   req.Method,
		"endpoint": endpoint,
		"url":      req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveRequest(endpoint, 0, duration)
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"endpoint": endpoint,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, classifyTransportError(req.Context(), err)
	}

	metrics.ObserveRequest(endpoint, resp.StatusCode, duration)
	logger.LogRequest(c.logger, req.Method, endpoint, resp.StatusCode, duration)

	return resp, nil
}

// classifyTransportError maps a failed round trip to a typed error
func classifyTransportError(ctx context.Context, err error) error {
	switch {
	case stderrors.Is(ctx.Err(), context.Canceled):
		return errs.Wrap(errs.ErrorTypeCancelled, 0, "request cancelled", ctx.Err())
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded), stderrors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrorTypeTimeout, 0, "request timeout", err)
	}

	var netErr interface{ Timeout() bool }
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errs.Wrap(errs.ErrorTypeTimeout, 0, "request timeout", err)
	}
	return errs.Wrap(errs.ErrorTypeNetwork, 0, "network error", err)
}

// checkResponseStatus turns a non-2xx response into a typed error
func (c *Client) checkResponseStatus(resp *http.Response, endpoint string) error {
	apiErr := errs.FromStatus(resp.StatusCode)
	if apiErr == nil {
		return nil
	}

	fields := map[string]interface{}{
		"status":   resp.StatusCode,
		"endpoint": endpoint,
	}
	switch apiErr.Type {
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("authentication error", fields)
	case errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("resource not found", fields)
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", fields)
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
	}
	return apiErr
}

// getJSON performs an authenticated GET and decodes the JSON body into target
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL, token string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeValidation, 0, "failed to create request", err)
	}

	resp, err := c.doRequest(req, endpoint, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp, endpoint); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.Wrap(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON", err)
	}

	return nil
}

// postForm performs an authenticated form POST. The response body is discarded.
func (c *Client) postForm(ctx context.Context, endpoint, rawURL, token string, form url.Values) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, errs.Wrap(errs.ErrorTypeValidation, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doRequest(req, endpoint, token)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, c.checkResponseStatus(resp, endpoint)
}
