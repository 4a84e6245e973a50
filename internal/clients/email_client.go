// internal/clients/email_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsletter/internal/secret"
	"newsletter/internal/subscriber"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrTransport      = errors.New("email delivery transport failure")
	ErrServerRejected = errors.New("email delivery rejected by server")
)

// DeliveryError is returned by SendEmail. It matches ErrTransport or
// ErrServerRejected with errors.Is.
type DeliveryError struct {
	Kind       error
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Is(target error) bool {
	return target == e.Kind
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type sendEmailRequest struct {
	FromEmail  string      `json:"FromEmail"`
	Recipients []recipient `json:"Recipients"`
	Subject    string      `json:"Subject"`
	HTMLPart   string      `json:"Html-part"`
	TextPart   string      `json:"Text-part"`
}

// The breaker opens after this many consecutive transport failures or 5xx
// answers and fails fast until the cooldown has passed.
const (
	breakerFailureThreshold = 5
	breakerCooldown         = 30 * time.Second
)

type recipient struct {
	Email string `json:"Email"`
}

// EmailClient sends transactional email through the delivery service.
type EmailClient struct {
	httpClient         *http.Client
	baseURL            string
	sender             subscriber.Email
	authorizationToken secret.String
	breaker            *gobreaker.CircuitBreaker
	tracer             trace.Tracer
}

// NewEmailClient creates a client whose every call is bounded by timeout.
func NewEmailClient(baseURL string, sender subscriber.Email, authorizationToken secret.String, timeout time.Duration) *EmailClient {
	return &EmailClient{
		httpClient:         &http.Client{Timeout: timeout},
		baseURL:            strings.TrimRight(baseURL, "/"),
		sender:             sender,
		authorizationToken: authorizationToken,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "email-api",
			Timeout: breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailureThreshold
			},
			IsSuccessful: isHealthyOutcome,
		}),
		tracer: otel.Tracer("newsletter/clients"),
	}
}

// isHealthyOutcome tells the breaker which errors say nothing about the
// delivery service being down.
func isHealthyOutcome(err error) bool {
	var de *DeliveryError
	if !errors.As(err, &de) {
		return true
	}
	return de.Kind == ErrServerRejected && de.StatusCode < http.StatusInternalServerError
}

// SendEmail makes at most one POST to {baseURL}/send. It never retries, and
// makes no call at all while the breaker is open.
func (c *EmailClient) SendEmail(ctx context.Context, recipientEmail subscriber.Email, subject, htmlContent, textContent string) error {
	ctx, span := c.tracer.Start(ctx, "email.send",
		trace.WithAttributes(attribute.String("email.subject", subject)),
	)
	defer span.End()

	var sendErr error
	_, err := c.breaker.Execute(func() (any, error) {
		sendErr = c.send(ctx, span, recipientEmail, subject, htmlContent, textContent)
		if sendErr != nil && ctx.Err() != nil {
			// The caller gave up; that is not the delivery service failing.
			return nil, nil
		}
		return nil, sendErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		span.SetStatus(codes.Error, "circuit open")
		return &DeliveryError{Kind: ErrTransport, Err: err}
	}
	return sendErr
}

func (c *EmailClient) send(ctx context.Context, span trace.Span, recipientEmail subscriber.Email, subject, htmlContent, textContent string) error {
	body, err := json.Marshal(sendEmailRequest{
		FromEmail:  c.sender.String(),
		Recipients: []recipient{{Email: recipientEmail.String()}},
		Subject:    subject,
		HTMLPart:   htmlContent,
		TextPart:   textContent,
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.authorizationToken.Expose())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return &DeliveryError{Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; the deadline still applies here.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return &DeliveryError{Kind: ErrTransport, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, "rejected")
		return &DeliveryError{Kind: ErrServerRejected, StatusCode: resp.StatusCode}
	}
	return nil
}
