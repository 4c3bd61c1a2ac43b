package repository

import (
	"context"
	"time"

	"github.com/palmhaven/booking-api/internal/models"
	"gorm.io/gorm"
)

type BookingFilter struct {
	PropertyID uint
	Status     *models.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByPaymentRef(ctx context.Context, tx *gorm.DB, ref string) (*models.Booking, error)
	FindPendingByPropertyAndEmail(ctx context.Context, tx *gorm.DB, propertyID uint, email string) (*models.Booking, error)
	FindAll(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	// FindConfirmedOverlapping returns confirmed bookings for the property
	// whose [check_in, check_out) intersects [start, end), excluding
	// excludeID. Used to build 409 conflict details.
	FindConfirmedOverlapping(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time, excludeID uint) ([]models.Booking, error)
	Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	// MarkPaymentCompleted flips status/payment_status and records the
	// payment correlation id, guarded by payment_status <> 'completed'
	// and status <> 'cancelled'. The returned count is 0 when the
	// booking was already completed or has been cancelled; the
	// payment_status guard is the idempotency root for webhook
	// reconciliation, the status guard keeps cancellation terminal.
	MarkPaymentCompleted(ctx context.Context, tx *gorm.DB, bookingID uint, paymentIntentID string) (int64, error)
	MarkPaymentFailed(ctx context.Context, tx *gorm.DB, bookingID uint) error
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	return r.FindByIDTx(ctx, r.db, id)
}

func (r *bookingRepository) FindByIDTx(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByPaymentRef matches a booking by either correlation key; a checkout
// session id and its payment intent id both resolve to the same booking.
func (r *bookingRepository) FindByPaymentRef(ctx context.Context, tx *gorm.DB, ref string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.WithContext(ctx).
		Where("payment_intent_id = ? OR checkout_session_id = ?", ref, ref).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindPendingByPropertyAndEmail(ctx context.Context, tx *gorm.DB, propertyID uint, email string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.WithContext(ctx).
		Where("property_id = ? AND guest_email = ? AND status = ?", propertyID, email, models.StatusPending).
		Order("id DESC").
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindAll(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx)
	if filter.PropertyID != 0 {
		q = q.Where("property_id = ?", filter.PropertyID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if err := q.Order("id DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindConfirmedOverlapping(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time, excludeID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.WithContext(ctx).
		Where("property_id = ? AND status = ?", propertyID, models.StatusConfirmed).
		Where("check_in < ? AND ? < check_out", end, start).
		Not("id = ?", excludeID).
		Order("check_in ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Save(booking).Error
}

func (r *bookingRepository) MarkPaymentCompleted(ctx context.Context, tx *gorm.DB, bookingID uint, paymentIntentID string) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND payment_status <> ? AND status <> ?",
			bookingID, models.PaymentCompleted, models.StatusCancelled).
		Updates(map[string]interface{}{
			"status":            models.StatusConfirmed,
			"payment_status":    models.PaymentCompleted,
			"payment_intent_id": paymentIntentID,
		})
	return res.RowsAffected, res.Error
}

func (r *bookingRepository) MarkPaymentFailed(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND payment_status <> ?", bookingID, models.PaymentCompleted).
		Update("payment_status", models.PaymentFailed).Error
}
