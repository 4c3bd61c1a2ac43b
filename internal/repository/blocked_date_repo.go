package repository

import (
	"context"
	"errors"
	"time"

	"github.com/palmhaven/booking-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlockedDateRepository is the availability ledger. Mutations take the
// caller's *gorm.DB so they join the transaction that changes booking
// state; a ledger-write failure rolls the whole transition back.
type BlockedDateRepository interface {
	// HasOverlap reports whether any active ledger row for the property
	// intersects [start, end). Rows owned by excludeBookingID are ignored
	// so a booking being re-confirmed does not conflict with itself.
	HasOverlap(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time, excludeBookingID uint) (bool, error)
	// UpsertForBooking inserts the ledger row for a confirmed booking.
	// Keyed by the unique booking_id index: a second call for the same
	// booking (duplicate webhook delivery) updates in place instead of
	// inserting a duplicate.
	UpsertForBooking(ctx context.Context, tx *gorm.DB, bookingID, propertyID uint, start, end time.Time, reason string) error
	// UpsertForExternalEvent imports one feed event. Keyed by
	// (property_id, external_id); events without a UID fall back to an
	// exact (property, dates) match. Returns true when a new row was
	// created, false for an update or no-op.
	UpsertForExternalEvent(ctx context.Context, propertyID uint, externalID string, start, end time.Time, platform string) (bool, error)
	// DeactivateForBooking marks the booking's ledger row inactive,
	// preserving it for audit.
	DeactivateForBooking(ctx context.Context, tx *gorm.DB, bookingID uint) error
	FindActiveByProperty(ctx context.Context, propertyID uint) ([]models.BlockedDate, error)
	Create(ctx context.Context, block *models.BlockedDate) error
}

type blockedDateRepository struct {
	db *gorm.DB
}

func NewBlockedDateRepository(db *gorm.DB) BlockedDateRepository {
	return &blockedDateRepository{db: db}
}

func (r *blockedDateRepository) HasOverlap(ctx context.Context, tx *gorm.DB, propertyID uint, start, end time.Time, excludeBookingID uint) (bool, error) {
	var count int64
	q := tx.WithContext(ctx).
		Model(&models.BlockedDate{}).
		Where("property_id = ? AND is_active = ?", propertyID, true).
		Where("start_date < ? AND ? < end_date", end, start)
	if excludeBookingID != 0 {
		q = q.Where("booking_id IS NULL OR booking_id <> ?", excludeBookingID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *blockedDateRepository) UpsertForBooking(ctx context.Context, tx *gorm.DB, bookingID, propertyID uint, start, end time.Time, reason string) error {
	block := models.BlockedDate{
		PropertyID: propertyID,
		StartDate:  start,
		EndDate:    end,
		Reason:     reason,
		Source:     models.SourceDirectBooking,
		BookingID:  &bookingID,
		IsActive:   true,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "booking_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "booking_id IS NOT NULL"}}},
		DoUpdates:   clause.AssignmentColumns([]string{"start_date", "end_date", "reason", "is_active", "updated_at"}),
	}).Create(&block).Error
}

func (r *blockedDateRepository) UpsertForExternalEvent(ctx context.Context, propertyID uint, externalID string, start, end time.Time, platform string) (bool, error) {
	db := r.db.WithContext(ctx)

	var existing models.BlockedDate
	q := db.Where("property_id = ?", propertyID)
	if externalID != "" {
		q = q.Where("external_id = ?", externalID)
	} else {
		// No UID on the feed event: the only identity it has is its dates.
		q = q.Where("external_id = '' AND source = ? AND start_date = ? AND end_date = ?",
			models.SourceExternalBooking, start, end)
	}
	err := q.First(&existing).Error
	switch {
	case err == nil:
		if existing.StartDate.Equal(start) && existing.EndDate.Equal(end) && existing.IsActive {
			return false, nil
		}
		return false, db.Model(&existing).Updates(map[string]interface{}{
			"start_date": start,
			"end_date":   end,
			"is_active":  true,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		block := models.BlockedDate{
			PropertyID: propertyID,
			StartDate:  start,
			EndDate:    end,
			Reason:     platform,
			Source:     models.SourceExternalBooking,
			ExternalID: externalID,
			IsActive:   true,
		}
		// A matching partial unique index makes a concurrent
		// double-import collapse to a no-op: (property_id, external_id)
		// for events with a UID, (property_id, start_date, end_date) for
		// events without one.
		conflict := clause.OnConflict{
			Columns:     []clause.Column{{Name: "property_id"}, {Name: "external_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "external_id <> ''"}}},
			DoNothing:   true,
		}
		if externalID == "" {
			conflict = clause.OnConflict{
				Columns:     []clause.Column{{Name: "property_id"}, {Name: "start_date"}, {Name: "end_date"}},
				TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "external_id = '' AND source = 'external_booking'"}}},
				DoNothing:   true,
			}
		}
		res := db.Clauses(conflict).Create(&block)
		if res.Error != nil {
			return false, res.Error
		}
		return res.RowsAffected > 0, nil
	default:
		return false, err
	}
}

func (r *blockedDateRepository) DeactivateForBooking(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	return tx.WithContext(ctx).
		Model(&models.BlockedDate{}).
		Where("booking_id = ?", bookingID).
		Update("is_active", false).Error
}

func (r *blockedDateRepository) FindActiveByProperty(ctx context.Context, propertyID uint) ([]models.BlockedDate, error) {
	var blocks []models.BlockedDate
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND is_active = ?", propertyID, true).
		Order("start_date ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *blockedDateRepository) Create(ctx context.Context, block *models.BlockedDate) error {
	return r.db.WithContext(ctx).Create(block).Error
}
