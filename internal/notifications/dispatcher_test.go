package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub-backend/pkg/config"
	"github.com/tutorhub/tutorhub-backend/pkg/db/dbtest"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
	"github.com/tutorhub/tutorhub-backend/pkg/logger"
)

type fakeRepo struct {
	mu       sync.Mutex
	failures int
	created  []models.Notification
}

func (f *fakeRepo) Create(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeRepo) ListByRecipient(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakePusher struct {
	mu       sync.Mutex
	err      error
	channels []string
}

func (f *fakePusher) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.channels = append(f.channels, channel)
	return nil
}

func testConfig() config.NotificationsConfig {
	return config.NotificationsConfig{
		Workers:        2,
		QueueSize:      8,
		MaxAttempts:    3,
		BaseBackoff:    time.Millisecond,
		EnqueueTimeout: 50 * time.Millisecond,
		DeliverTimeout: time.Second,
		PushChannel:    "notifications",
	}
}

func sampleEvent(recipient uuid.UUID) Event {
	return Event{
		RecipientUserID: recipient,
		Type:            enums.NotificationTypeBookingConfirmed,
		Title:           "Booking confirmed",
		Message:         "Your booking is confirmed.",
		RedirectPath:    "/student/schedule",
		RedirectParams:  map[string]string{"bookingId": uuid.NewString()},
	}
}

func runDispatcher(t *testing.T, d *Dispatcher) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	return func() {
		d.Close()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher did not stop")
		}
	}
}

func TestDispatcherPersistsAndPushes(t *testing.T) {
	repo := &fakeRepo{}
	pusher := &fakePusher{}
	d, err := NewDispatcher(testConfig(), repo, pusher, logger.Nop(), nil)
	require.NoError(t, err)
	stop := runDispatcher(t, d)

	recipient := uuid.New()
	require.True(t, d.Dispatch(context.Background(), sampleEvent(recipient)))
	stop()

	require.Equal(t, 1, repo.count())
	require.Equal(t, []string{"notifications:" + recipient.String()}, pusher.channels)
	stored := repo.created[0]
	require.NotNil(t, stored.RedirectPath)
	require.Contains(t, string(stored.RedirectParams), "bookingId")
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	repo := &fakeRepo{failures: 2}
	d, err := NewDispatcher(testConfig(), repo, nil, logger.Nop(), nil)
	require.NoError(t, err)
	stop := runDispatcher(t, d)

	require.True(t, d.Dispatch(context.Background(), sampleEvent(uuid.New())))
	stop()
	require.Equal(t, 1, repo.count())
}

func TestDispatcherSwallowsPermanentFailures(t *testing.T) {
	repo := &fakeRepo{failures: 10}
	pusher := &fakePusher{}
	d, err := NewDispatcher(testConfig(), repo, pusher, logger.Nop(), nil)
	require.NoError(t, err)
	stop := runDispatcher(t, d)

	require.True(t, d.Dispatch(context.Background(), sampleEvent(uuid.New())))
	stop()
	require.Equal(t, 0, repo.count())
	require.Empty(t, pusher.channels, "nothing is pushed when persistence fails")
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 1
	cfg.EnqueueTimeout = 10 * time.Millisecond
	d, err := NewDispatcher(cfg, &fakeRepo{}, nil, logger.Nop(), nil)
	require.NoError(t, err)

	require.True(t, d.Dispatch(context.Background(), sampleEvent(uuid.New())))
	start := time.Now()
	require.False(t, d.Dispatch(context.Background(), sampleEvent(uuid.New())))
	require.Less(t, time.Since(start), time.Second)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d, err := NewDispatcher(testConfig(), &fakeRepo{}, nil, logger.Nop(), nil)
	require.NoError(t, err)
	d.Close()
	d.Close()
	require.False(t, d.Dispatch(context.Background(), sampleEvent(uuid.New())))
	require.False(t, d.Dispatch(context.Background(), Event{Type: enums.NotificationTypeNewBooking}))
}

func TestDispatcherWritesThroughRepository(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	d, err := NewDispatcher(testConfig(), repo, nil, logger.Nop(), nil)
	require.NoError(t, err)
	stop := runDispatcher(t, d)

	recipient := uuid.New()
	require.True(t, d.Dispatch(context.Background(), sampleEvent(recipient)))
	stop()

	rows, err := repo.ListByRecipient(context.Background(), recipient, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.NotificationTypeBookingConfirmed, rows[0].Type)
}

func TestBookingConfirmedAddressesBothParties(t *testing.T) {
	booking := &models.Booking{
		ID:              uuid.New(),
		StudentID:       uuid.New(),
		TeacherID:       uuid.New(),
		BookingDateTime: time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC),
	}
	events := BookingConfirmed(booking, "Algebra I")
	require.Len(t, events, 2)
	require.Equal(t, booking.StudentID, events[0].RecipientUserID)
	require.Equal(t, enums.NotificationTypeBookingConfirmed, events[0].Type)
	require.Equal(t, booking.TeacherID, events[1].RecipientUserID)
	require.Equal(t, enums.NotificationTypeNewBooking, events[1].Type)
	require.Contains(t, events[1].Message, "Algebra I")
	require.Contains(t, events[1].Message, "Mon, 02 Nov 2026 15:00 UTC")
	require.Equal(t, booking.ID.String(), events[0].RedirectParams["bookingId"])

	cancelled := BookingCancelled(booking, "Algebra I", booking.StudentID)
	require.Len(t, cancelled, 1)
	require.Equal(t, booking.TeacherID, cancelled[0].RecipientUserID)
}
