package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestClient(t *testing.T, handler http.Handler, policy RetryPolicy) (*Client, *sleepRecorder, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	recorder := &sleepRecorder{}
	client := NewClient("test-token", WithRetryPolicy(policy))
	client.sleep = recorder.sleep

	return client, recorder, server
}

func TestDoReturnsSuccessImmediately(t *testing.T) {
	var gotAuth, gotRequestID string
	requests := 0

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("client-request-id")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"value":"ok"}`))
	})

	client, recorder, server := newTestClient(t, handler, DefaultRetryPolicy())

	resp, err := client.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"value":"ok"}`, string(resp.Body))
	assert.Equal(t, 1, requests)
	assert.Empty(t, recorder.waits)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestDoBackoffDoublesEachRetry(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	policy := RetryPolicy{MaxRetries: 5, InitialBackoff: 5 * time.Second}
	client, recorder, server := newTestClient(t, handler, policy)

	_, err := client.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusServiceUnavailable, reqErr.StatusCode)
	assert.True(t, reqErr.Retryable)
	assert.Equal(t, 6, reqErr.Attempts)

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
	}
	assert.Equal(t, expected, recorder.waits)
	assert.Equal(t, 6, requests)
}

func TestDoRetryAfterHintOverridesSingleAttempt(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch requests {
		case 1:
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		}
	})

	policy := RetryPolicy{MaxRetries: 5, InitialBackoff: 5 * time.Second}
	client, recorder, server := newTestClient(t, handler, policy)

	_, err := client.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	// The hint replaces the first wait only; the computed sequence keeps
	// doubling underneath, so the second wait is 10s, not 60s.
	assert.Equal(t, []time.Duration{30 * time.Second, 10 * time.Second}, recorder.waits)
	assert.Equal(t, 3, requests)
}

func TestDoNonRetryableStatusFailsImmediately(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "bad request", status: http.StatusBadRequest},
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "forbidden", status: http.StatusForbidden},
		{name: "not found", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := 0
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"code":"testError","message":"nope"}}`))
			})

			client, recorder, server := newTestClient(t, handler, DefaultRetryPolicy())

			_, err := client.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: server.URL})
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.False(t, reqErr.Retryable)
			assert.Contains(t, reqErr.Message, "nope")
			assert.Equal(t, 1, requests)
			assert.Empty(t, recorder.waits)
		})
	}
}

func TestDoThrottleExhaustion(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	policy := RetryPolicy{MaxRetries: 3, InitialBackoff: 2 * time.Second}
	client, recorder, server := newTestClient(t, handler, policy)

	_, err := client.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusTooManyRequests, reqErr.StatusCode)
	assert.True(t, IsThrottled(err))

	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, recorder.waits)
	assert.Equal(t, 4, requests)
}

func TestDoPerCallRetryPolicyOverride(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	client, recorder, server := newTestClient(t, handler, RetryPolicy{MaxRetries: 0, InitialBackoff: time.Second})

	spec := RequestSpec{
		Method: http.MethodGet,
		URL:    server.URL,
		Retry:  &RetryPolicy{MaxRetries: 2, InitialBackoff: time.Second},
	}
	_, err := client.Do(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, recorder.waits)
	assert.Equal(t, 3, requests)
}

func TestDoTransportFailureIsNotRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	recorder := &sleepRecorder{}
	client := NewClient("test-token")
	client.sleep = recorder.sleep

	_, err := client.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: url})
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 0, reqErr.StatusCode)
	assert.False(t, reqErr.Retryable)
	assert.Empty(t, recorder.waits)
}

func TestDoCancellationDuringBackoffAbortsRun(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())

	client := NewClient("test-token", WithRetryPolicy(RetryPolicy{MaxRetries: 3, InitialBackoff: time.Hour}))
	client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := client.Do(ctx, RequestSpec{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoResendsIdenticalBodyOnRetry(t *testing.T) {
	var bodies []string
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		buf, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(buf))

		if requests == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	client, _, server := newTestClient(t, handler, RetryPolicy{MaxRetries: 2, InitialBackoff: time.Second})

	spec := RequestSpec{
		Method: http.MethodPatch,
		URL:    server.URL,
		Body:   map[string]string{"department": "Finance"},
	}
	_, err := client.Do(context.Background(), spec)
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"department":"Finance"}`, bodies[0])
	assert.Equal(t, bodies[0], bodies[1])
}

func TestDoJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"device-1","deviceName":"LAPTOP-01"}`))
	})

	client, _, server := newTestClient(t, handler, DefaultRetryPolicy())

	var out struct {
		ID         string `json:"id"`
		DeviceName string `json:"deviceName"`
	}
	err := client.DoJSON(context.Background(), RequestSpec{Method: http.MethodGet, URL: server.URL}, &out)
	require.NoError(t, err)
	assert.Equal(t, "device-1", out.ID)
	assert.Equal(t, "LAPTOP-01", out.DeviceName)

	// 204 with a target leaves the target untouched.
	err = client.DoJSON(context.Background(), RequestSpec{Method: http.MethodPost, URL: server.URL, Body: map[string]string{"k": "v"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "device-1", out.ID)
}

func TestRetryAfterHint(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
		ok    bool
	}{
		{name: "numeric seconds", value: "30", want: 30 * time.Second, ok: true},
		{name: "zero", value: "0", want: 0, ok: true},
		{name: "padded", value: " 10 ", want: 10 * time.Second, ok: true},
		{name: "absent", value: "", ok: false},
		{name: "http date", value: "Fri, 01 Aug 2025 10:00:00 GMT", ok: false},
		{name: "negative", value: "-5", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}

			got, ok := retryAfterHint(h)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "odata envelope",
			status: 403,
			body:   `{"error":{"code":"Authorization_RequestDenied","message":"Insufficient privileges"}}`,
			want:   "Authorization_RequestDenied: Insufficient privileges",
		},
		{
			name:   "message only",
			status: 400,
			body:   `{"error":{"message":"Bad request"}}`,
			want:   "Bad request",
		},
		{
			name:   "plain text",
			status: 502,
			body:   "bad gateway",
			want:   "bad gateway",
		},
		{
			name:   "empty body falls back to status text",
			status: 503,
			body:   "",
			want:   "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(tt.status, []byte(tt.body)))
		})
	}
}

func TestErrorMessageTruncatesLongBodies(t *testing.T) {
	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}

	got := errorMessage(500, long)
	assert.Len(t, got, 512)
}

func TestRequestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &RequestError{Message: cause.Error(), Err: cause}

	assert.ErrorIs(t, err, cause)
}

func TestEncodeBodyVariants(t *testing.T) {
	raw, ct, err := encodeBody(RequestSpec{Body: []byte(`{"a":1}`), ContentType: "application/json"})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), raw)
	assert.Equal(t, "application/json", ct)

	raw, ct, err = encodeBody(RequestSpec{Body: "plain"})
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), raw)
	assert.Empty(t, ct)

	type patch struct {
		Department string `json:"department"`
	}
	raw, ct, err = encodeBody(RequestSpec{Body: patch{Department: "IT"}})
	require.NoError(t, err)
	assert.Equal(t, "application/json", ct)

	var decoded patch
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "IT", decoded.Department)

	raw, ct, err = encodeBody(RequestSpec{})
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Empty(t, ct)
}
