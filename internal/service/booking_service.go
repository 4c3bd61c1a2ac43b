package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/payments"
	"github.com/palmhaven/booking-api/internal/repository"
	"gorm.io/gorm"
)

type CreateBookingInput struct {
	PropertyID    uint
	GuestName     string
	GuestEmail    string
	GuestPhone    string
	Adults        int
	Children      int
	CheckIn       time.Time
	CheckOut      time.Time
	PaymentMethod string
}

type CreateBookingResult struct {
	Booking           *models.Booking
	CheckoutSessionID string
	CheckoutURL       string
}

// AdminUpdateInput carries the fields an operator may edit; nil means
// "leave unchanged".
type AdminUpdateInput struct {
	Status          *models.BookingStatus
	PaymentStatus   *models.PaymentStatus
	PaymentIntentID *string
}

type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error)
	// ConfirmBooking transitions a booking to confirmed/completed exactly
	// once and writes its ledger row. Re-confirming a completed booking
	// is a no-op, not an error.
	ConfirmBooking(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error)
	AdminUpdate(ctx context.Context, bookingID uint, in AdminUpdateInput) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error)
}

type CheckoutURLs struct {
	Success string
	Cancel  string
}

type bookingService struct {
	bookingRepo  repository.BookingRepository
	propertyRepo repository.PropertyRepository
	blockedRepo  repository.BlockedDateRepository
	payClient    payments.Client
	currency     string
	urls         CheckoutURLs
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	propertyRepo repository.PropertyRepository,
	blockedRepo repository.BlockedDateRepository,
	payClient payments.Client,
	currency string,
	urls CheckoutURLs,
) BookingService {
	return &bookingService{
		bookingRepo:  bookingRepo,
		propertyRepo: propertyRepo,
		blockedRepo:  blockedRepo,
		payClient:    payClient,
		currency:     currency,
		urls:         urls,
	}
}

// CreateBooking inserts a pending booking and opens a provider checkout
// session keyed to it.
//
// The overlap check here reads the ledger, which only confirmed bookings
// populate: two guests may hold pending bookings for the same dates, and
// whichever payment lands first wins at confirm time. Blocking at the
// pending stage would let an abandoned checkout hold dates hostage.
func (s *bookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	in.CheckIn = truncateToDate(in.CheckIn)
	in.CheckOut = truncateToDate(in.CheckOut)
	if !in.CheckIn.Before(in.CheckOut) {
		return nil, ErrInvalidDateRange
	}

	var booking *models.Booking
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := s.propertyRepo.FindByIDForUpdate(ctx, tx, in.PropertyID)
		if err != nil {
			return ErrPropertyNotFound
		}
		if !property.IsActive {
			return ErrPropertyInactive
		}

		overlap, err := s.blockedRepo.HasOverlap(ctx, tx, in.PropertyID, in.CheckIn, in.CheckOut, 0)
		if err != nil {
			return err
		}
		if overlap {
			return s.conflictError(ctx, tx, in.PropertyID, in.CheckIn, in.CheckOut, 0)
		}

		nights := int(in.CheckOut.Sub(in.CheckIn).Hours() / 24)
		booking = &models.Booking{
			Reference:     uuid.NewString(),
			PropertyID:    in.PropertyID,
			GuestName:     in.GuestName,
			GuestEmail:    in.GuestEmail,
			GuestPhone:    in.GuestPhone,
			Adults:        in.Adults,
			Children:      in.Children,
			CheckIn:       in.CheckIn,
			CheckOut:      in.CheckOut,
			TotalAmount:   float64(nights) * property.PricePerNight,
			Currency:      s.currency,
			PaymentMethod: in.PaymentMethod,
			Status:        models.StatusPending,
			PaymentStatus: models.PaymentPending,
		}
		return s.bookingRepo.Create(ctx, tx, booking)
	})
	if err != nil {
		return nil, err
	}

	result := &CreateBookingResult{Booking: booking}
	if s.payClient != nil {
		property, err := s.propertyRepo.FindByID(ctx, booking.PropertyID)
		if err != nil {
			return nil, err
		}
		sess, err := s.payClient.CreateCheckoutSession(ctx, payments.CheckoutParams{
			BookingID:    booking.ID,
			PropertyID:   booking.PropertyID,
			PropertyName: property.Name,
			Amount:       booking.TotalAmount,
			Currency:     booking.Currency,
			GuestEmail:   booking.GuestEmail,
			SuccessURL:   s.urls.Success,
			CancelURL:    s.urls.Cancel,
		})
		if err != nil {
			// The pending row stays for audit; it blocks nobody and the
			// guest can retry payment.
			log.Printf("[Booking] checkout session failed for booking %d: %v", booking.ID, err)
			return nil, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
		}
		booking.CheckoutSessionID = sess.ID
		if err := s.bookingRepo.Update(ctx, s.bookingRepo.GetDB(), booking); err != nil {
			return nil, err
		}
		result.CheckoutSessionID = sess.ID
		result.CheckoutURL = sess.URL
	}
	return result, nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
	var result *models.Booking
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDTx(ctx, tx, bookingID)
		if err != nil {
			return ErrBookingNotFound
		}

		// Idempotency guard: a duplicate delivery finds the booking
		// already completed and changes nothing.
		if booking.PaymentStatus == models.PaymentCompleted {
			result = booking
			return nil
		}

		// Cancelled is terminal. A payment landing after an operator
		// cancelled the booking must not resurrect it; record the charge
		// so the refund workflow can find it, keep the dates free.
		if booking.Status == models.StatusCancelled {
			log.Printf("[Booking] payment %s received for cancelled booking %d; keeping cancellation, refund required",
				paymentRef, booking.ID)
			booking.PaymentStatus = models.PaymentCompleted
			booking.PaymentIntentID = paymentRef
			if err := s.bookingRepo.Update(ctx, tx, booking); err != nil {
				return err
			}
			result = booking
			return nil
		}

		// Lock the property row so two competing confirms for the same
		// property serialize; the loser's overlap check then sees the
		// winner's ledger row.
		if _, err := s.propertyRepo.FindByIDForUpdate(ctx, tx, booking.PropertyID); err != nil {
			return ErrPropertyNotFound
		}

		// Second-chance check: other bookings may have confirmed between
		// creation and payment.
		overlap, err := s.blockedRepo.HasOverlap(ctx, tx, booking.PropertyID, booking.CheckIn, booking.CheckOut, booking.ID)
		if err != nil {
			return err
		}
		if overlap {
			return s.conflictError(ctx, tx, booking.PropertyID, booking.CheckIn, booking.CheckOut, booking.ID)
		}

		rows, err := s.bookingRepo.MarkPaymentCompleted(ctx, tx, booking.ID, paymentRef)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Lost a race: another delivery just completed it, or a
			// cancel committed after our read. Keep whatever won.
			result, err = s.bookingRepo.FindByIDTx(ctx, tx, booking.ID)
			if err != nil {
				return err
			}
			if result.Status == models.StatusCancelled {
				log.Printf("[Booking] payment %s received for cancelled booking %d; keeping cancellation, refund required",
					paymentRef, booking.ID)
			}
			return nil
		}

		if err := s.blockedRepo.UpsertForBooking(ctx, tx, booking.ID, booking.PropertyID,
			booking.CheckIn, booking.CheckOut, "Booked: "+booking.GuestName); err != nil {
			return err
		}

		result, err = s.bookingRepo.FindByIDTx(ctx, tx, booking.ID)
		return err
	})
	return result, err
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var result *models.Booking
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDTx(ctx, tx, bookingID)
		if err != nil {
			return ErrBookingNotFound
		}
		if booking.Status == models.StatusCancelled {
			result = booking
			return nil
		}

		wasConfirmed := booking.Status == models.StatusConfirmed
		booking.Status = models.StatusCancelled
		if err := s.bookingRepo.Update(ctx, tx, booking); err != nil {
			return err
		}

		// Freeing capacity needs no conflict check; the ledger row is
		// deactivated, not deleted.
		if wasConfirmed {
			if err := s.blockedRepo.DeactivateForBooking(ctx, tx, booking.ID); err != nil {
				return err
			}
		}
		result = booking
		return nil
	})
	return result, err
}

func (s *bookingService) AdminUpdate(ctx context.Context, bookingID uint, in AdminUpdateInput) (*models.Booking, error) {
	if in.PaymentStatus != nil && *in.PaymentStatus == models.PaymentCompleted {
		if in.PaymentIntentID == nil || *in.PaymentIntentID == "" {
			return nil, ErrPaymentRefRequired
		}
	}

	var result *models.Booking
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDTx(ctx, tx, bookingID)
		if err != nil {
			return ErrBookingNotFound
		}

		confirming := in.Status != nil && *in.Status == models.StatusConfirmed &&
			booking.Status != models.StatusConfirmed
		cancelling := in.Status != nil && *in.Status == models.StatusCancelled &&
			booking.Status != models.StatusCancelled
		wasConfirmed := booking.Status == models.StatusConfirmed

		if confirming {
			if _, err := s.propertyRepo.FindByIDForUpdate(ctx, tx, booking.PropertyID); err != nil {
				return ErrPropertyNotFound
			}
			overlap, err := s.blockedRepo.HasOverlap(ctx, tx, booking.PropertyID, booking.CheckIn, booking.CheckOut, booking.ID)
			if err != nil {
				return err
			}
			if overlap {
				return s.conflictError(ctx, tx, booking.PropertyID, booking.CheckIn, booking.CheckOut, booking.ID)
			}
		}

		if in.Status != nil {
			booking.Status = *in.Status
		}
		if in.PaymentStatus != nil {
			booking.PaymentStatus = *in.PaymentStatus
		}
		if in.PaymentIntentID != nil {
			booking.PaymentIntentID = *in.PaymentIntentID
		}
		if err := s.bookingRepo.Update(ctx, tx, booking); err != nil {
			return err
		}

		if confirming {
			if err := s.blockedRepo.UpsertForBooking(ctx, tx, booking.ID, booking.PropertyID,
				booking.CheckIn, booking.CheckOut, "Booked: "+booking.GuestName); err != nil {
				return err
			}
		}
		if cancelling && wasConfirmed {
			if err := s.blockedRepo.DeactivateForBooking(ctx, tx, booking.ID); err != nil {
				return err
			}
		}
		result = booking
		return nil
	})
	return result, err
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return s.bookingRepo.FindAll(ctx, filter)
}

// conflictError builds a ConflictError listing the confirmed bookings that
// block the range. External/manual blocks can overlap without any booking
// attached, so a 409 with an empty list is possible.
func (s *bookingService) conflictError(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time, excludeID uint) error {
	ce := &ConflictError{PropertyID: propertyID, CheckIn: start, CheckOut: end}
	overlapping, err := s.bookingRepo.FindConfirmedOverlapping(ctx, tx, propertyID, start, end, excludeID)
	if err != nil {
		return err
	}
	for _, b := range overlapping {
		ce.Conflicts = append(ce.Conflicts, BookingConflict{
			BookingID: b.ID,
			GuestName: b.GuestName,
			CheckIn:   b.CheckIn,
			CheckOut:  b.CheckOut,
		})
	}
	return ce
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
