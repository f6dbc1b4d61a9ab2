package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/tutorhub/tutorhub-backend/internal/bookings"
	"github.com/tutorhub/tutorhub-backend/internal/checkout"
	"github.com/tutorhub/tutorhub-backend/internal/slots"
	pkgAuth "github.com/tutorhub/tutorhub-backend/pkg/auth"
	"github.com/tutorhub/tutorhub-backend/pkg/config"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSlotService struct{ slots.Service }

func (stubSlotService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]slots.SlotDTO, error) {
	return []slots.SlotDTO{}, nil
}

type stubBookingService struct{ bookings.Service }

func (stubBookingService) Get(ctx context.Context, actorID, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
	return &bookings.BookingDTO{ID: bookingID, Status: enums.BookingStatusPending}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Start(ctx context.Context, studentID, bookingID uuid.UUID) (*checkout.StartResult, error) {
	return &checkout.StartResult{LedgerEntryID: uuid.New(), SessionID: "cs_1", CheckoutURL: "https://checkout.stripe.com"}, nil
}

type stubNotifications struct{}

func (stubNotifications) ListByRecipient(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	return []models.Notification{}, nil
}

func (stubNotifications) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	return true, nil
}

type stubWebhookService struct{ calls int }

func (s *stubWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	s.calls++
	return nil
}

type stubSigningClient struct{}

func (stubSigningClient) SigningSecret() string { return "whsec_test" }

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT:    config.JWTConfig{Secret: "secret", Issuer: "tutorhub", ExpirationMinutes: 10},
		Stripe: config.StripeConfig{MaxWebhookBytes: 1024},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *stubWebhookService) {
	t.Helper()
	webhooks := &stubWebhookService{}
	router := NewRouter(
		testConfig(),
		logger.Nop(),
		stubPinger{},
		stubPinger{},
		prometheus.NewRegistry(),
		stubSlotService{},
		stubBookingService{},
		stubCheckoutService{},
		stubNotifications{},
		webhooks,
		stubSigningClient{},
		nil,
	)
	return router, webhooks
}

func bearer(t *testing.T, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(router http.Handler, method, path, auth string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health/live", "", "").Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health/ready", "", "").Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/metrics", "", "").Code)
}

func TestWebhookRouteSkipsJWT(t *testing.T) {
	router, webhooks := newTestRouter(t)
	rec := do(router, http.MethodPost, "/api/v1/webhooks/stripe", "", `{}`)
	// reaches the handler: rejected for the missing signature, not for a missing JWT
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, webhooks.calls)
}

func TestAPIRequiresJWT(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), "", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/v1/teacher/slots", "Bearer nope", "").Code)
}

func TestTeacherSlotsRequireTeacherRole(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/v1/teacher/slots", bearer(t, enums.RoleStudent), "").Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/teacher/slots", bearer(t, enums.RoleTeacher), "").Code)
}

func TestBookingRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	id := uuid.NewString()

	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/bookings/"+id, bearer(t, enums.RoleTeacher), "").Code)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/v1/bookings/"+id+"/checkout", bearer(t, enums.RoleStudent), "").Code)
	require.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/api/v1/bookings/"+id+"/checkout", bearer(t, enums.RoleTeacher), "").Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/notifications", bearer(t, enums.RoleStudent), "").Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/notifications/"+uuid.NewString()+"/read", bearer(t, enums.RoleStudent), "").Code)
}
