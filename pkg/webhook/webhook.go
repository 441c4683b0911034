// Package webhook posts finished documents and run reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds each attempt when SendOptions.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	// DefaultBackoff is the wait before the first retry; it doubles after each.
	DefaultBackoff = 500 * time.Millisecond

	maxResponseBody = 1 << 20
)

// Client sends JSON payloads to webhook endpoints.
type Client struct {
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
}

// NewClient creates a new webhook client. A nil httpClient uses a default one.
func NewClient(httpClient ...*http.Client) *Client {
	c := &Client{httpClient: &http.Client{}, sleep: sleepContext}
	if len(httpClient) > 0 && httpClient[0] != nil {
		c.httpClient = httpClient[0]
	}
	return c
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Per-attempt timeout (DefaultTimeout if zero)
	Headers map[string]string

	// Retries is how many more attempts follow a transport error or a 5xx.
	Retries int
	// Backoff is the first retry delay (DefaultBackoff if zero).
	Backoff time.Duration
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Attempts   int
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// errTransient marks an attempt worth repeating.
var errTransient = errors.New("transient webhook failure")

// Send posts payload as JSON to a webhook endpoint. Failures are reported
// in the Response rather than returned.
func (c *Client) Send(ctx context.Context, payload any, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	defer func() { resp.Duration = time.Since(start) }()

	body, err := json.Marshal(payload)
	if err != nil {
		resp.Error = fmt.Errorf("marshaling payload: %w", err)
		return resp
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	for {
		resp.Attempts++
		err := c.attempt(ctx, body, opts, resp)
		if err == nil || !errors.Is(err, errTransient) || resp.Attempts > opts.Retries {
			resp.Error = unwrapTransient(err)
			return resp
		}
		if serr := c.sleep(ctx, backoff); serr != nil {
			resp.Error = fmt.Errorf("%w (retry cancelled: %v)", unwrapTransient(err), serr)
			return resp
		}
		backoff *= 2
	}
}

// attempt performs one POST and fills resp with what came back.
func (c *Client) attempt(ctx context.Context, body []byte, opts SendOptions, resp *Response) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp.StatusCode, resp.Body = 0, ""
	req, err := newRequest(ctx, body, opts)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return transient(fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return transient(fmt.Errorf("reading response: %w", err))
	}
	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(respBody)

	switch {
	case resp.StatusCode >= 500:
		return transient(fmt.Errorf("webhook returned status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func newRequest(ctx context.Context, body []byte, opts SendOptions) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mod2doctest-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }

func (e transientError) Unwrap() []error { return []error{e.err, errTransient} }

func transient(err error) error { return transientError{err: err} }

func unwrapTransient(err error) error {
	var te transientError
	if errors.As(err, &te) {
		return te.err
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
