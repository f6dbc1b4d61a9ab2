package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutorhub/tutorhub-backend/api/controllers"
	webhookcontrollers "github.com/tutorhub/tutorhub-backend/api/controllers/webhooks"
	"github.com/tutorhub/tutorhub-backend/api/middleware"
	"github.com/tutorhub/tutorhub-backend/internal/bookings"
	"github.com/tutorhub/tutorhub-backend/internal/checkout"
	"github.com/tutorhub/tutorhub-backend/internal/slots"
	"github.com/tutorhub/tutorhub-backend/pkg/config"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

type checkoutService interface {
	Start(ctx context.Context, studentID, bookingID uuid.UUID) (*checkout.StartResult, error)
}

type notificationStore interface {
	ListByRecipient(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingClient interface {
	SigningSecret() string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisPinger controllers.Pinger,
	gatherer prometheus.Gatherer,
	slotService slots.Service,
	bookingService bookings.Service,
	checkoutSvc checkoutService,
	notificationsRepo notificationStore,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
	stripeClient signingClient,
	stripeWebhookGuard stripeWebhookGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbPinger,
			"redis":    redisPinger,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// the raw body must reach signature verification untouched
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, cfg.Stripe.MaxWebhookBytes, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/teacher/slots", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleTeacher))
			r.Post("/", controllers.TeacherCreateSlot(slotService, logg))
			r.Get("/", controllers.TeacherListSlots(slotService, logg))
			r.Delete("/{slotId}", controllers.TeacherDeleteSlot(slotService, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleStudent)).Post("/", controllers.CreateBooking(bookingService, logg))
			r.Get("/{bookingId}", controllers.GetBooking(bookingService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleStudent)).Post("/{bookingId}/checkout", controllers.StartCheckout(checkoutSvc, logg))
			r.Post("/{bookingId}/cancel", controllers.CancelBooking(bookingService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleTeacher)).Post("/{bookingId}/complete", controllers.CompleteBooking(bookingService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsRepo, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsRepo, logg))
		})
	})

	return r
}
