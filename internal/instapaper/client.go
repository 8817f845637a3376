package instapaper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/njoerd114/linkpaper/internal/model"
)

const (
	// defaultBaseURL is the Instapaper Simple API root.
	defaultBaseURL = "https://www.instapaper.com"

	addPath          = "/api/add"
	authenticatePath = "/api/authenticate"
)

// Client talks to the Instapaper Simple API with HTTP Basic Auth. Create one
// with [NewClient].
type Client struct {
	baseURL     string
	username    string
	password    string
	hc          *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	log         *slog.Logger
}

// NewClient creates a Client. timeout bounds each individual HTTP request.
// maxRetries is the number of additional attempts after the first for
// transient failures (HTTP 5xx, timeouts, connection errors).
func NewClient(username, password string, timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		username: username,
		password: password,
		hc:       &http.Client{Timeout: timeout},
		// One request per second keeps a sequential sync well inside
		// Instapaper's tolerance.
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
		maxAttempts: maxRetries + 1,
		log:         logger,
	}
}

// Submit saves linkURL to the account's unread list. An empty title is
// omitted from the request so Instapaper derives one from the page itself.
// Transient failures are retried with backoff; a 403 yields an error
// matching [model.ErrAuthFailed] and a 400 fails without retry.
func (c *Client) Submit(ctx context.Context, linkURL, title string) error {
	form := url.Values{"url": {linkURL}}
	if title != "" {
		form.Set("title", title)
	}

	c.log.Debug("submitting to instapaper", "url", linkURL)
	err := Retry(ctx, c.maxAttempts, func() error {
		return c.post(ctx, addPath, form)
	})
	if err != nil {
		return fmt.Errorf("submit %q: %w", linkURL, err)
	}
	return nil
}

// Verify checks the configured credentials against the API without saving
// anything. A 403 yields an error matching [model.ErrAuthFailed].
func (c *Client) Verify(ctx context.Context) error {
	err := Retry(ctx, c.maxAttempts, func() error {
		return c.post(ctx, authenticatePath, url.Values{})
	})
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	return nil
}

// post performs one rate-limited form POST and classifies the response.
// Errors from 4xx responses are marked [Permanent]; 5xx and transport
// errors are left retryable.
func (c *Client) post(ctx context.Context, path string, form url.Values) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return Permanent(fmt.Errorf("create request: %w", err))
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusForbidden:
		return Permanent(fmt.Errorf("%w: instapaper returned 403", model.ErrAuthFailed))
	case http.StatusBadRequest:
		return Permanent(fmt.Errorf("instapaper rejected the request (400 bad request)"))
	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("instapaper returned %d", resp.StatusCode)
		}
		return Permanent(fmt.Errorf("instapaper returned unexpected status %d", resp.StatusCode))
	}
}
