package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/payments"
	"github.com/palmhaven/booking-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	findByIDFn      func(ctx context.Context, id uint) (*models.Booking, error)
	findByRefFn     func(ctx context.Context, ref string) (*models.Booking, error)
	findPendingFn   func(ctx context.Context, propertyID uint, email string) (*models.Booking, error)
	markFailedFn    func(ctx context.Context, bookingID uint) error
	markFailedCalls int
}

func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	return nil
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindByIDTx(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	return m.FindByID(ctx, id)
}
func (m *mockBookingRepo) FindByPaymentRef(ctx context.Context, tx *gorm.DB, ref string) (*models.Booking, error) {
	if m.findByRefFn != nil {
		return m.findByRefFn(ctx, ref)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindPendingByPropertyAndEmail(ctx context.Context, tx *gorm.DB, propertyID uint, email string) (*models.Booking, error) {
	if m.findPendingFn != nil {
		return m.findPendingFn(ctx, propertyID, email)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindAll(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) FindConfirmedOverlapping(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time, excludeID uint) ([]models.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) Update(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	return nil
}
func (m *mockBookingRepo) MarkPaymentCompleted(ctx context.Context, tx *gorm.DB, bookingID uint, paymentIntentID string) (int64, error) {
	return 1, nil
}
func (m *mockBookingRepo) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	m.markFailedCalls++
	if m.markFailedFn != nil {
		return m.markFailedFn(ctx, bookingID)
	}
	return nil
}
func (m *mockBookingRepo) GetDB() *gorm.DB { return nil }

// --- Mock BookingService ---

type mockBookingSvc struct {
	confirmFn    func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error)
	confirmCalls int
}

func (m *mockBookingSvc) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	return nil, errors.New("not used")
}
func (m *mockBookingSvc) ConfirmBooking(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
	m.confirmCalls++
	return m.confirmFn(ctx, bookingID, paymentRef)
}
func (m *mockBookingSvc) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return nil, errors.New("not used")
}
func (m *mockBookingSvc) AdminUpdate(ctx context.Context, bookingID uint, in AdminUpdateInput) (*models.Booking, error) {
	return nil, errors.New("not used")
}
func (m *mockBookingSvc) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	return nil, errors.New("not used")
}
func (m *mockBookingSvc) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return nil, errors.New("not used")
}

type mockPublisher struct {
	keys []string
}

func (m *mockPublisher) Publish(routingKey string, payload any) error {
	m.keys = append(m.keys, routingKey)
	return nil
}

type mockSeen struct {
	seen map[string]bool
}

func (m *mockSeen) MarkSeen(ctx context.Context, eventID string) bool {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	dup := m.seen[eventID]
	m.seen[eventID] = true
	return dup
}

func (m *mockSeen) Forget(ctx context.Context, eventID string) {
	delete(m.seen, eventID)
}

func pendingBooking(id, propertyID uint) *models.Booking {
	return &models.Booking{
		ID:            id,
		PropertyID:    propertyID,
		GuestEmail:    "jane@example.com",
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
	}
}

// --- Tests ---

func TestHandleEvent_SuccessByBookingID(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			require.Equal(t, uint(42), id)
			return pendingBooking(42, 7), nil
		},
	}
	pub := &mockPublisher{}
	svc := &mockBookingSvc{
		confirmFn: func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
			assert.Equal(t, uint(42), bookingID)
			assert.Equal(t, "pi_123", paymentRef)
			b := pendingBooking(42, 7)
			b.Status = models.StatusConfirmed
			b.PaymentStatus = models.PaymentCompleted
			return b, nil
		},
	}

	ps := NewPaymentService(repo, svc, pub, nil)
	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:         "evt_1",
		Type:       payments.EventPaymentSucceeded,
		BookingID:  42,
		PaymentRef: "pi_123",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, svc.confirmCalls)
	assert.Equal(t, []string{"calendar.resync.7"}, pub.keys)
}

func TestHandleEvent_MatchFallbackOrder(t *testing.T) {
	// No metadata booking id, no stored payment ref: the event must fall
	// back to the (property, guest email) pending-booking match.
	repo := &mockBookingRepo{
		findPendingFn: func(ctx context.Context, propertyID uint, email string) (*models.Booking, error) {
			assert.Equal(t, uint(7), propertyID)
			assert.Equal(t, "jane@example.com", email)
			return pendingBooking(42, 7), nil
		},
	}
	svc := &mockBookingSvc{
		confirmFn: func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
			return pendingBooking(bookingID, 7), nil
		},
	}

	ps := NewPaymentService(repo, svc, nil, nil)
	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:         "evt_2",
		Type:       payments.EventCheckoutCompleted,
		PropertyID: 7,
		GuestEmail: "jane@example.com",
		SessionID:  "cs_unknown",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, svc.confirmCalls)
}

func TestHandleEvent_SessionRefUsedWhenNoIntent(t *testing.T) {
	repo := &mockBookingRepo{
		findByRefFn: func(ctx context.Context, ref string) (*models.Booking, error) {
			if ref == "cs_42" {
				return pendingBooking(42, 7), nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := &mockBookingSvc{
		confirmFn: func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
			assert.Equal(t, "cs_42", paymentRef)
			return pendingBooking(bookingID, 7), nil
		},
	}

	ps := NewPaymentService(repo, svc, nil, nil)
	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:        "evt_3",
		Type:      payments.EventCheckoutCompleted,
		SessionID: "cs_42",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, svc.confirmCalls)
}

func TestHandleEvent_UnmatchedEventAcked(t *testing.T) {
	ps := NewPaymentService(&mockBookingRepo{}, &mockBookingSvc{}, nil, nil)
	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:         "evt_4",
		Type:       payments.EventPaymentSucceeded,
		PaymentRef: "pi_nobody",
	})

	assert.NoError(t, err)
}

func TestHandleEvent_DuplicateSkippedBySeenCache(t *testing.T) {
	svc := &mockBookingSvc{
		confirmFn: func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
			return pendingBooking(bookingID, 7), nil
		},
	}
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			return pendingBooking(id, 7), nil
		},
	}

	ps := NewPaymentService(repo, svc, nil, &mockSeen{})
	ev := payments.Event{ID: "evt_5", Type: payments.EventPaymentSucceeded, BookingID: 42}

	assert.NoError(t, ps.HandleEvent(context.Background(), ev))
	assert.NoError(t, ps.HandleEvent(context.Background(), ev))
	assert.Equal(t, 1, svc.confirmCalls)
}

// A delivery that fails on infrastructure must not leave its event id in
// the dedup cache: the provider retries with the same id, and that retry
// has to be processed, not skipped as a duplicate.
func TestHandleEvent_RetryAfterTransientFailureProcessed(t *testing.T) {
	dbDown := true
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			if dbDown {
				return nil, errors.New("connection refused")
			}
			return pendingBooking(id, 7), nil
		},
	}
	svc := &mockBookingSvc{
		confirmFn: func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
			return pendingBooking(bookingID, 7), nil
		},
	}

	ps := NewPaymentService(repo, svc, nil, &mockSeen{})
	ev := payments.Event{ID: "evt_retry", Type: payments.EventPaymentSucceeded, BookingID: 42}

	require.Error(t, ps.HandleEvent(context.Background(), ev))
	assert.Equal(t, 0, svc.confirmCalls)

	dbDown = false
	require.NoError(t, ps.HandleEvent(context.Background(), ev))
	assert.Equal(t, 1, svc.confirmCalls)

	// A third delivery after success is the real duplicate and is skipped.
	require.NoError(t, ps.HandleEvent(context.Background(), ev))
	assert.Equal(t, 1, svc.confirmCalls)
}

func TestHandleEvent_ConflictAtConfirmIsAcked(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			return pendingBooking(id, 7), nil
		},
	}
	svc := &mockBookingSvc{
		confirmFn: func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
			return nil, &ConflictError{PropertyID: 7}
		},
	}
	pub := &mockPublisher{}

	ps := NewPaymentService(repo, svc, pub, nil)
	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:        "evt_6",
		Type:      payments.EventPaymentSucceeded,
		BookingID: 42,
	})

	// The provider gets a 2xx; the unresolvable payment is an operator
	// problem, not a retry loop.
	assert.NoError(t, err)
	assert.Empty(t, pub.keys)
}

func TestHandleEvent_InfrastructureErrorPropagates(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			return nil, dbErr
		},
	}

	ps := NewPaymentService(repo, &mockBookingSvc{}, nil, nil)
	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:        "evt_7",
		Type:      payments.EventPaymentSucceeded,
		BookingID: 42,
	})

	assert.ErrorIs(t, err, dbErr)
}

func TestHandleEvent_FailureMarksPaymentFailed(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			return pendingBooking(id, 7), nil
		},
	}

	ps := NewPaymentService(repo, &mockBookingSvc{}, nil, nil)
	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:        "evt_8",
		Type:      payments.EventPaymentFailed,
		BookingID: 42,
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, repo.markFailedCalls)
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	svc := &mockBookingSvc{}
	ps := NewPaymentService(&mockBookingRepo{}, svc, nil, nil)

	err := ps.HandleEvent(context.Background(), payments.Event{
		ID:           "evt_9",
		Type:         payments.EventIgnored,
		ProviderType: "charge.refunded",
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, svc.confirmCalls)
}
