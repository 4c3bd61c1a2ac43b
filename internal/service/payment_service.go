package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/payments"
	"github.com/palmhaven/booking-api/internal/repository"
	"gorm.io/gorm"
)

// ResyncPublisher enqueues best-effort background work. Satisfied by
// pkg/rabbitmq.Publisher; nil disables publishing.
type ResyncPublisher interface {
	Publish(routingKey string, payload any) error
}

// SeenCache is an optional fast-path dedup of provider event ids. It is
// never the correctness mechanism; the guarded booking update is.
type SeenCache interface {
	MarkSeen(ctx context.Context, eventID string) bool
	// Forget undoes MarkSeen so the provider's retry of a failed
	// delivery is not skipped as a duplicate.
	Forget(ctx context.Context, eventID string)
}

// PaymentService reconciles provider webhook events with bookings. It is
// idempotent and order-tolerant: the same logical payment may arrive as a
// payment_intent.succeeded, a checkout.session.completed, or both, any
// number of times, in any order.
type PaymentService interface {
	HandleEvent(ctx context.Context, ev payments.Event) error
}

type paymentService struct {
	bookingRepo repository.BookingRepository
	bookingSvc  BookingService
	publisher   ResyncPublisher
	seen        SeenCache
}

func NewPaymentService(
	bookingRepo repository.BookingRepository,
	bookingSvc BookingService,
	publisher ResyncPublisher,
	seen SeenCache,
) PaymentService {
	return &paymentService{
		bookingRepo: bookingRepo,
		bookingSvc:  bookingSvc,
		publisher:   publisher,
		seen:        seen,
	}
}

// HandleEvent returns nil for every outcome the provider should not retry:
// unknown event types, unmatched bookings, duplicates, and confirm-time
// conflicts are all logged and acknowledged. Only infrastructure failures
// (db down) propagate.
func (s *paymentService) HandleEvent(ctx context.Context, ev payments.Event) error {
	if s.seen != nil && s.seen.MarkSeen(ctx, ev.ID) {
		log.Printf("[Payment] duplicate event %s (%s), skipping", ev.ID, ev.ProviderType)
		return nil
	}

	var err error
	switch ev.Type {
	case payments.EventPaymentSucceeded, payments.EventCheckoutCompleted:
		err = s.handleSuccess(ctx, ev)
	case payments.EventPaymentFailed:
		err = s.handleFailure(ctx, ev)
	default:
		log.Printf("[Payment] ignoring event %s of type %s", ev.ID, ev.ProviderType)
		return nil
	}

	// The delivery failed and the provider will retry with the same event
	// id; drop the dedup mark so the retry is not skipped.
	if err != nil && s.seen != nil {
		s.seen.Forget(ctx, ev.ID)
	}
	return err
}

func (s *paymentService) handleSuccess(ctx context.Context, ev payments.Event) error {
	booking, err := s.matchBooking(ctx, ev)
	if err != nil {
		return err
	}
	if booking == nil {
		log.Printf("[Payment] no booking matches event %s (%s)", ev.ID, ev.ProviderType)
		return nil
	}

	paymentRef := ev.PaymentRef
	if paymentRef == "" {
		paymentRef = ev.SessionID
	}

	confirmed, err := s.bookingSvc.ConfirmBooking(ctx, booking.ID, paymentRef)
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			// Payment landed for dates that were taken in the meantime.
			// Leave the booking unconfirmed and auditable; an operator
			// resolves it. The provider must still get a 2xx.
			log.Printf("[Payment] booking %d paid but conflicts: %v (conflicts: %d)",
				booking.ID, ce, len(ce.Conflicts))
			return nil
		}
		return err
	}

	log.Printf("[Payment] booking %d confirmed via event %s", confirmed.ID, ev.ID)
	s.enqueueResync(confirmed.PropertyID)
	return nil
}

func (s *paymentService) handleFailure(ctx context.Context, ev payments.Event) error {
	booking, err := s.matchBooking(ctx, ev)
	if err != nil {
		return err
	}
	if booking == nil {
		log.Printf("[Payment] no booking matches failed payment event %s", ev.ID)
		return nil
	}
	// Guarded the same way as completion: a failure event arriving after
	// a success for the same payment changes nothing.
	if err := s.bookingRepo.MarkPaymentFailed(ctx, s.bookingRepo.GetDB(), booking.ID); err != nil {
		return err
	}
	log.Printf("[Payment] booking %d marked payment_failed via event %s", booking.ID, ev.ID)
	return nil
}

// matchBooking resolves the event to a booking, most reliable key first:
// explicit booking id from checkout metadata, then the stored payment
// correlation ids, then the legacy (property, guest email) fallback.
// A nil booking with nil error means "valid event, nothing to do".
func (s *paymentService) matchBooking(ctx context.Context, ev payments.Event) (*models.Booking, error) {
	db := s.bookingRepo.GetDB()

	if ev.BookingID != 0 {
		booking, err := s.bookingRepo.FindByID(ctx, ev.BookingID)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	for _, ref := range []string{ev.PaymentRef, ev.SessionID} {
		if ref == "" {
			continue
		}
		booking, err := s.bookingRepo.FindByPaymentRef(ctx, db, ref)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if ev.PropertyID != 0 && ev.GuestEmail != "" {
		booking, err := s.bookingRepo.FindPendingByPropertyAndEmail(ctx, db, ev.PropertyID, ev.GuestEmail)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// enqueueResync requests a background calendar resync for the property.
// Fire and forget: a publish failure is logged and never fails the
// webhook response.
func (s *paymentService) enqueueResync(propertyID uint) {
	if s.publisher == nil {
		return
	}
	key := fmt.Sprintf("calendar.resync.%d", propertyID)
	if err := s.publisher.Publish(key, map[string]uint{"property_id": propertyID}); err != nil {
		log.Printf("[Payment] resync enqueue failed for property %d: %v", propertyID, err)
	}
}
