package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/tutorhub/tutorhub-backend/pkg/config"
	"github.com/tutorhub/tutorhub-backend/pkg/db"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
	"github.com/tutorhub/tutorhub-backend/pkg/metrics"
)

const (
	resultDelivered  = "delivered"
	resultFailed     = "failed"
	resultPushFailed = "push_failed"
	resultDropped    = "dropped"
)

// Pusher publishes a serialized notification to a realtime channel.
type Pusher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Dispatcher delivers notifications in the background. Dispatch never blocks
// longer than the enqueue timeout and delivery failures never reach callers.
type Dispatcher struct {
	cfg     config.NotificationsConfig
	repo    notificationWriter
	pusher  Pusher
	logg    *logger.Logger
	metrics *metrics.ReconcileMetrics

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewDispatcher builds a dispatcher. pusher may be nil, in which case
// notifications are only persisted.
func NewDispatcher(cfg config.NotificationsConfig, repo notificationWriter, pusher Pusher, logg *logger.Logger, m *metrics.ReconcileMetrics) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 250 * time.Millisecond
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 5 * time.Second
	}
	if cfg.PushChannel == "" {
		cfg.PushChannel = "notifications"
	}
	return &Dispatcher{
		cfg:     cfg,
		repo:    repo,
		pusher:  pusher,
		logg:    logg,
		metrics: m,
		queue:   make(chan Event, cfg.QueueSize),
		done:    make(chan struct{}),
	}, nil
}

// Dispatch enqueues event and reports whether it was accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) bool {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"recipient_user_id": event.RecipientUserID.String(),
		"notification_type": event.Type,
	})
	if event.RecipientUserID == uuid.Nil || !event.Type.IsValid() {
		d.logg.Warn(logCtx, "notification rejected: missing recipient or type")
		return false
	}

	select {
	case <-d.done:
		d.drop(logCtx, "dispatcher closed")
		return false
	default:
	}

	timer := time.NewTimer(d.cfg.EnqueueTimeout)
	defer timer.Stop()
	select {
	case d.queue <- event:
		return true
	case <-d.done:
		d.drop(logCtx, "dispatcher closed")
	case <-ctx.Done():
		d.drop(logCtx, "caller context done")
	case <-timer.C:
		d.drop(logCtx, "queue full")
	}
	return false
}

// Run starts the worker pool and blocks until ctx is done or Close has been
// called and the queue is drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			d.work(gctx)
			return nil
		})
	}
	return g.Wait()
}

// Close stops accepting events. Queued events are still delivered by Run.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			d.drain(ctx)
			return
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.deliver(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.DeliverTimeout)
	defer cancel()
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"recipient_user_id": event.RecipientUserID.String(),
		"notification_type": event.Type,
	})

	record, err := toModel(event)
	if err != nil {
		d.logg.Error(logCtx, "encode notification", err)
		d.metrics.IncNotification(resultFailed)
		return
	}

	if err := retry.Do(ctx, d.backoff(), func(ctx context.Context) error {
		err := d.repo.Create(ctx, record)
		// an earlier attempt committed before reporting an error
		if err != nil && db.IsUniqueViolation(err, "") {
			return nil
		}
		return retryable(err)
	}); err != nil {
		d.logg.Error(logCtx, "persist notification", err)
		d.metrics.IncNotification(resultFailed)
		return
	}

	if d.pusher != nil {
		payload, err := json.Marshal(record)
		if err != nil {
			d.logg.Error(logCtx, "marshal notification push", err)
			d.metrics.IncNotification(resultPushFailed)
			return
		}
		channel := d.cfg.PushChannel + ":" + event.RecipientUserID.String()
		if err := retry.Do(ctx, d.backoff(), func(ctx context.Context) error {
			return retryable(d.pusher.Publish(ctx, channel, payload))
		}); err != nil {
			d.logg.Warn(d.logg.WithField(logCtx, "error", err.Error()), "push notification failed; stored for later fetch")
			d.metrics.IncNotification(resultPushFailed)
			return
		}
	}

	d.metrics.IncNotification(resultDelivered)
}

func (d *Dispatcher) backoff() retry.Backoff {
	return retry.WithMaxRetries(d.cfg.MaxAttempts-1, retry.NewExponential(d.cfg.BaseBackoff))
}

func (d *Dispatcher) drop(ctx context.Context, reason string) {
	d.logg.Warn(d.logg.WithField(ctx, "reason", reason), "notification dropped")
	d.metrics.IncNotification(resultDropped)
}

func retryable(err error) error {
	if err == nil {
		return nil
	}
	return retry.RetryableError(err)
}

func toModel(event Event) (*models.Notification, error) {
	record := &models.Notification{
		ID:              uuid.New(),
		RecipientUserID: event.RecipientUserID,
		Type:            event.Type,
		Title:           event.Title,
		Message:         event.Message,
	}
	if event.RedirectPath != "" {
		path := event.RedirectPath
		record.RedirectPath = &path
	}
	if len(event.RedirectParams) > 0 {
		raw, err := json.Marshal(event.RedirectParams)
		if err != nil {
			return nil, err
		}
		record.RedirectParams = datatypes.JSON(raw)
	}
	return record, nil
}
