package subscriptions

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"newsletter/internal/subscriber"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type memStore struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]*subscriber.Subscription
	createErr  error
	confirmErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uuid.UUID]*subscriber.Subscription)}
}

func (m *memStore) Create(_ context.Context, ns subscriber.NewSubscriber) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return uuid.Nil, m.createErr
	}
	for _, row := range m.rows {
		if row.Email == ns.Email.String() {
			return uuid.Nil, subscriber.ErrDuplicateEmail
		}
	}
	id := uuid.New()
	m.rows[id] = &subscriber.Subscription{
		ID:           id,
		Email:        ns.Email.String(),
		Name:         ns.Name.String(),
		SubscribedAt: time.Now().UTC(),
		Status:       subscriber.StatusPendingConfirmation,
	}
	return id, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*subscriber.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, subscriber.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memStore) GetByEmail(_ context.Context, email subscriber.Email) (*subscriber.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email == email.String() {
			cp := *row
			return &cp, nil
		}
	}
	return nil, subscriber.ErrNotFound
}

func (m *memStore) Confirm(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.confirmErr != nil {
		return m.confirmErr
	}
	row, ok := m.rows[id]
	if !ok {
		return subscriber.ErrNotFound
	}
	return row.Confirm()
}

func (m *memStore) ListConfirmed(context.Context) ([]subscriber.ConfirmedSubscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []subscriber.ConfirmedSubscriber
	for _, row := range m.rows {
		if row.IsConfirmed() {
			email, err := subscriber.ParseEmail(row.Email)
			out = append(out, subscriber.ConfirmedSubscriber{ID: row.ID, Email: email, Err: err})
		}
	}
	return out, nil
}

func (m *memStore) all() []subscriber.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]subscriber.Subscription, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, *row)
	}
	return out
}

type sentEmail struct {
	Recipient string
	Subject   string
	HTML      string
	Text      string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeSender) SendEmail(_ context.Context, recipient subscriber.Email, subject, htmlContent, textContent string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{Recipient: recipient.String(), Subject: subject, HTML: htmlContent, Text: textContent})
	return f.err
}

func (f *fakeSender) emails() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	events   []string
	payloads []any
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, _ uuid.UUID, _ string, eventType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, eventType)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeRecorder) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// tokenFromEmail pulls the confirmation token out of the plain-text body.
func tokenFromEmail(t *testing.T, email sentEmail) string {
	t.Helper()
	_, rest, ok := strings.Cut(email.Text, "subscription_token=")
	if !ok {
		t.Fatalf("no confirmation link in %q", email.Text)
	}
	token, _, _ := strings.Cut(rest, " ")
	return token
}
