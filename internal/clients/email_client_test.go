package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"newsletter/internal/secret"
	"newsletter/internal/subscriber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func mustEmail(t *testing.T, raw string) subscriber.Email {
	t.Helper()
	email, err := subscriber.ParseEmail(raw)
	require.NoError(t, err)
	return email
}

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *EmailClient {
	t.Helper()
	return NewEmailClient(baseURL, mustEmail(t, "newsletter@example.com"), secret.New("my-token"), timeout)
}

func TestSendEmail_SendsTheExpectedRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/send", r.URL.Path)
		assert.Equal(t, "Basic my-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(raw, &body))

		assert.Equal(t, "newsletter@example.com", body["FromEmail"])
		assert.Equal(t, []any{map[string]any{"Email": "ursula@domain.com"}}, body["Recipients"])
		assert.Equal(t, "Issue #1", body["Subject"])
		assert.Equal(t, "<p>Hello</p>", body["Html-part"])
		assert.Equal(t, "Hello", body["Text-part"])

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "Issue #1", "<p>Hello</p>", "Hello")

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendEmail_FailsOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerRejected)
	assert.NotErrorIs(t, err, ErrTransport)

	var dErr *DeliveryError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, http.StatusInternalServerError, dErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "a failed send must not be retried")
}

func TestSendEmail_TreatsClientErrorsAsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")

	assert.ErrorIs(t, err, ErrServerRejected)
}

func TestSendEmail_TimesOutIfTheServerTakesTooLong(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 50*time.Millisecond)

	start := time.Now()
	err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSendEmail_TransportFailureWhenServerIsDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t, url, time.Second)
	err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")

	assert.ErrorIs(t, err, ErrTransport)
}

func TestSendEmail_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	require.NoError(t, client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "email.send", spans[0].Name())
}

func TestSendEmail_OpensCircuitAfterRepeatedServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	for range breakerFailureThreshold {
		err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")
		assert.ErrorIs(t, err, ErrServerRejected)
	}

	err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(breakerFailureThreshold), calls.Load())
}

func TestSendEmail_CallerCancellationDoesNotOpenCircuit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for range breakerFailureThreshold + 1 {
		err := client.SendEmail(cancelled, mustEmail(t, "ursula@domain.com"), "s", "h", "t")
		require.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	}

	err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendEmail_ClientErrorsDoNotOpenCircuit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	for range breakerFailureThreshold + 2 {
		err := client.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"), "s", "h", "t")
		assert.ErrorIs(t, err, ErrServerRejected)
	}
	assert.Equal(t, int32(breakerFailureThreshold+2), calls.Load())
}
