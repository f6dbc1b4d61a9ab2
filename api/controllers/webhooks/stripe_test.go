package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	stripewebhook "github.com/tutorhub/tutorhub-backend/internal/webhooks/stripe"
)

const testSecret = "whsec_test"

func TestStripeWebhook_SuccessAndIdempotent(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	guard := newGuard(t)
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, guard, 0, nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"data":{"received":true}}`, rec.Body.String())
	require.Equal(t, 1, service.callCount())

	rec = post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, service.callCount(), "duplicate delivery should be short-circuited")
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), 0, nil)

	rec := post(handler, payload, "t=1,v1=invalid")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 0, service.callCount())

	_, otherHeader := buildSignedEvent(t, "whsec_other")
	rec = post(handler, payload, otherHeader)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 0, service.callCount())
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), 0, nil)

	rec := post(handler, payload, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, service.callCount())
}

func TestStripeWebhook_RejectsOversizedBody(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), 16, nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, service.callCount())
}

func TestStripeWebhook_FailureStillAcknowledgedAndGuardCleared(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{err: errors.New("database unavailable")}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), 0, nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"received":true}}`, rec.Body.String())

	rec = post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, service.callCount(), "failed event should be processed again on resend")
}

func TestStripeWebhook_GuardOutageFallsThrough(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	guard, err := stripewebhook.NewEventGuard(&inMemoryStore{data: map[string]string{}, err: errors.New("redis down")}, time.Minute)
	require.NoError(t, err)
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, guard, 0, nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, service.callCount())
}

func post(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newGuard(t *testing.T) *stripewebhook.EventGuard {
	t.Helper()
	guard, err := stripewebhook.NewEventGuard(newInMemoryStore(), time.Minute)
	require.NoError(t, err)
	return guard
}

func buildSignedEvent(t *testing.T, secret string) ([]byte, string) {
	t.Helper()
	session := &stripe.CheckoutSession{
		ID:            "cs_test_" + uuid.NewString(),
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	}
	rawSession, err := json.Marshal(session)
	require.NoError(t, err)
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: rawSession,
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

type fakeStripeWebhookService struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if !strings.HasPrefix(event.ID, "evt_") {
		return errors.New("unexpected event id")
	}
	return f.err
}

func (f *fakeStripeWebhookService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) WebhookEventKey(provider, eventID string) string {
	return fmt.Sprintf("th:webhook:%s:%s", provider, eventID)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
