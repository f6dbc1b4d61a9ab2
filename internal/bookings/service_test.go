package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/internal/notifications"
	"github.com/tutorhub/tutorhub-backend/internal/offerings"
	"github.com/tutorhub/tutorhub-backend/internal/slots"
	"github.com/tutorhub/tutorhub-backend/pkg/db/dbtest"
	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
	"github.com/tutorhub/tutorhub-backend/pkg/enums"
	pkgerrors "github.com/tutorhub/tutorhub-backend/pkg/errors"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Dispatch(ctx context.Context, event notifications.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return true
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	repo     Repository
	notifier *recordingNotifier
	teacher  uuid.UUID
	offering *models.Offering
	slot     *models.Slot
	when     time.Time
}

// nextWeekday returns the next occurrence of day at hh:00 UTC, at least a day ahead.
func nextWeekday(day time.Weekday, hour int) time.Time {
	t := time.Now().UTC().AddDate(0, 0, 1)
	for t.Weekday() != day {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	ctx := context.Background()
	teacher := uuid.New()

	offering := &models.Offering{TeacherID: teacher, Title: "Algebra I", Price: decimal.NewFromInt(150), Currency: "usd"}
	require.NoError(t, offerings.NewRepository(conn).Create(ctx, offering))

	slotRepo := slots.NewRepository(conn)
	slot := &models.Slot{OwnerID: teacher, DayOfWeek: int(time.Monday), StartTime: "15:00", EndTime: "16:00"}
	require.NoError(t, slotRepo.Create(ctx, slot))

	repo := NewRepository(conn)
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Offerings: offerings.NewRepository(conn),
		Slots:     slotRepo,
		Notifier:  notifier,
	})
	require.NoError(t, err)

	return &fixture{
		db:       conn,
		svc:      svc,
		repo:     repo,
		notifier: notifier,
		teacher:  teacher,
		offering: offering,
		slot:     slot,
		when:     nextWeekday(time.Monday, 15),
	}
}

func (f *fixture) input() CreateBookingInput {
	return CreateBookingInput{OfferingID: f.offering.ID, SlotID: f.slot.ID, BookingDateTime: f.when}
}

func TestCreateComputesAmounts(t *testing.T) {
	f := newFixture(t)
	discount := decimal.NewFromInt(20)
	input := f.input()
	input.DiscountAmount = &discount

	booking, err := f.svc.Create(context.Background(), uuid.New(), input)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusPending, booking.Status)
	require.Equal(t, f.teacher, booking.TeacherID)
	require.True(t, booking.TotalAmount.Equal(decimal.NewFromInt(150)))
	require.True(t, booking.DueAmount.Equal(decimal.NewFromInt(130)))
	require.True(t, booking.PaidAmount.IsZero())
}

func TestCreateRejectsMismatchedSlotTime(t *testing.T) {
	f := newFixture(t)
	input := f.input()
	input.BookingDateTime = f.when.Add(time.Hour)
	_, err := f.svc.Create(context.Background(), uuid.New(), input)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)

	input = f.input()
	input.BookingDateTime = f.when.AddDate(0, 0, 1)
	_, err = f.svc.Create(context.Background(), uuid.New(), input)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Create(context.Background(), f.teacher, f.input())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "teacher booking self: %v", err)
}

func TestCreatePreventsDoubleBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, uuid.New(), f.input())
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, uuid.New(), f.input())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)

	// a cancelled booking frees the occurrence
	_, err = f.svc.Cancel(ctx, first.StudentID, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, uuid.New(), f.input())
	require.NoError(t, err)
}

func TestCancelNotifiesCounterpart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := uuid.New()
	booking, err := f.svc.Create(ctx, student, f.input())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, uuid.New(), booking.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.Cancel(ctx, student, booking.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusCancelled, cancelled.Status)
	require.Len(t, f.notifier.events, 1)
	require.Equal(t, f.teacher, f.notifier.events[0].RecipientUserID)

	_, err = f.svc.Cancel(ctx, student, booking.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestCompleteRequiresConfirmedAndTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := uuid.New()
	booking, err := f.svc.Create(ctx, student, f.input())
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, f.teacher, booking.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "pending cannot complete: %v", err)

	applied, err := f.repo.ConfirmPayment(ctx, booking.ID, decimal.NewFromInt(150), decimal.Zero, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, applied)

	_, err = f.svc.Complete(ctx, student, booking.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	done, err := f.svc.Complete(ctx, f.teacher, booking.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusCompleted, done.Status)

	_, err = f.svc.Cancel(ctx, student, booking.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestGetOnlyForParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := uuid.New()
	booking, err := f.svc.Create(ctx, student, f.input())
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.teacher, booking.ID)
	require.NoError(t, err)
	require.Equal(t, booking.ID, got.ID)

	_, err = f.svc.Get(ctx, uuid.New(), booking.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Get(ctx, student, uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryTransitionIsCompareAndSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking, err := f.svc.Create(ctx, uuid.New(), f.input())
	require.NoError(t, err)
	now := time.Now().UTC()

	applied, err := f.repo.ConfirmPayment(ctx, booking.ID, decimal.NewFromInt(150), decimal.Zero, now)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = f.repo.ConfirmPayment(ctx, booking.ID, decimal.NewFromInt(150), decimal.Zero, now)
	require.NoError(t, err)
	require.False(t, applied)

	applied, err = f.repo.TransitionStatus(ctx, booking.ID, enums.BookingStatusPending, enums.BookingStatusCancelled, now)
	require.NoError(t, err)
	require.False(t, applied, "confirmed booking must not be cancelled")

	_, err = f.repo.TransitionStatus(ctx, booking.ID, enums.BookingStatusConfirmed, enums.BookingStatusPending, now)
	require.Error(t, err, "regressions are rejected before touching the database")

	stored, err := f.repo.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusConfirmed, stored.Status)
	require.True(t, stored.DueAmount.IsZero())
}
