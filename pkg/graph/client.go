package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Graph endpoint bases. v1.0 is the default; a handful of Intune resources
// are only complete on beta.
const (
	BaseURL     = "https://graph.microsoft.com/v1.0"
	BetaBaseURL = "https://graph.microsoft.com/beta"
)

const (
	DefaultMaxRetries     = 5
	DefaultInitialBackoff = 5 * time.Second

	userAgent = "intunectl"
)

// RetryPolicy bounds throttling retries. The computed backoff before the
// n-th retry is InitialBackoff * 2^(n-1); a server Retry-After hint replaces
// the wait for that single attempt without disturbing the doubling sequence.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
	}
}

// RequestSpec describes one HTTP exchange. Body may be nil, []byte, string,
// or any JSON-marshalable value. A nil Retry uses the client's policy.
type RequestSpec struct {
	Method      string
	URL         string
	Body        any
	ContentType string
	Headers     map[string]string
	Retry       *RetryPolicy
}

// Response is the result of a successful exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client issues bearer-authenticated requests with bounded exponential
// backoff on 429 and 5xx responses. Execution is strictly serial: the retry
// sleep blocks the calling goroutine, which is how a run self-limits its
// request rate against the shared Graph quota.
type Client struct {
	httpClient *http.Client
	token      string
	policy     RetryPolicy
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = h
	}
}

func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient builds a client around an already-acquired bearer token. The
// token is held for the client's lifetime and never written to logs.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		token:      token,
		policy:     DefaultRetryPolicy(),
		logger:     slog.Default(),
		sleep:      sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do executes spec. 2xx returns the response. 429 and 5xx are retried with
// exponential backoff until the retry policy is exhausted; any other status,
// and any transport-level failure, fails immediately. The returned error is
// a *RequestError once the exchange reached HTTP.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	policy := c.policy
	if spec.Retry != nil {
		policy = *spec.Retry
	}

	payload, contentType, err := encodeBody(spec)
	if err != nil {
		return nil, err
	}

	backoff := policy.InitialBackoff
	for attempt := 1; ; attempt++ {
		status, header, body, sendErr := c.send(ctx, spec, payload, contentType)
		if sendErr != nil {
			reqErr := &RequestError{
				Message:  sendErr.Error(),
				Attempts: attempt,
				Err:      sendErr,
			}
			c.logger.Error("request failed before a response was received",
				"method", spec.Method,
				"url", spec.URL,
				"error", sendErr)
			return nil, reqErr
		}

		if status >= 200 && status < 300 {
			return &Response{StatusCode: status, Header: header, Body: body}, nil
		}

		message := errorMessage(status, body)

		if !retryableStatus(status) {
			reqErr := &RequestError{
				StatusCode: status,
				Message:    message,
				Attempts:   attempt,
			}
			c.logger.Error("request failed",
				"method", spec.Method,
				"url", spec.URL,
				"status", status,
				"message", message)
			return nil, reqErr
		}

		if attempt > policy.MaxRetries {
			reqErr := &RequestError{
				StatusCode: status,
				Message:    message,
				Retryable:  true,
				Attempts:   attempt,
			}
			c.logger.Error("request failed after exhausting retries",
				"method", spec.Method,
				"url", spec.URL,
				"status", status,
				"attempts", attempt)
			return nil, reqErr
		}

		wait := backoff
		if hint, ok := retryAfterHint(header); ok {
			wait = hint
		}

		c.logger.Warn("request throttled, backing off",
			"method", spec.Method,
			"url", spec.URL,
			"status", status,
			"attempt", attempt,
			"wait", wait)

		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("aborted while waiting to retry: %w", err)
		}

		backoff *= 2
	}
}

// DoJSON executes spec and unmarshals a non-empty 2xx body into out. A nil
// out discards the body.
func (c *Client) DoJSON(ctx context.Context, spec RequestSpec, out any) error {
	resp, err := c.Do(ctx, spec)
	if err != nil {
		return err
	}

	if out == nil || len(resp.Body) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}

// send performs a single attempt. It returns a transport error only; HTTP
// statuses are returned for the caller to classify.
func (c *Client) send(ctx context.Context, spec RequestSpec, payload []byte, contentType string) (int, http.Header, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, bodyReader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// An empty token means an unauthenticated endpoint, e.g. a webhook URL
	// that carries its own secret.
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("client-request-id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// encodeBody materializes the request body once so retries resend identical
// bytes.
func encodeBody(spec RequestSpec) ([]byte, string, error) {
	if spec.Body == nil {
		return nil, spec.ContentType, nil
	}

	switch b := spec.Body.(type) {
	case []byte:
		return b, spec.ContentType, nil
	case string:
		return []byte(b), spec.ContentType, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read request body: %w", err)
		}
		return data, spec.ContentType, nil
	default:
		data, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		contentType := spec.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		return data, contentType, nil
	}
}

// retryAfterHint reads a numeric Retry-After header. HTTP-date values are
// ignored; the computed backoff applies instead.
func retryAfterHint(h http.Header) (time.Duration, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}

	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}

	return time.Duration(secs) * time.Second, true
}

// errorMessage extracts the OData error envelope when present, falling back
// to the raw body or the status text.
func errorMessage(status int, body []byte) string {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Code != "" {
			return envelope.Error.Code + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}

	s := strings.TrimSpace(string(body))
	if s == "" {
		return http.StatusText(status)
	}
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
