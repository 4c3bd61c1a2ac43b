package repository

import (
	"context"
	"time"

	"github.com/palmhaven/booking-api/internal/models"
	"gorm.io/gorm"
)

type CalendarFeedRepository interface {
	Create(ctx context.Context, feed *models.CalendarFeed) error
	FindByID(ctx context.Context, id uint) (*models.CalendarFeed, error)
	FindActive(ctx context.Context) ([]models.CalendarFeed, error)
	FindActiveByProperty(ctx context.Context, propertyID uint) ([]models.CalendarFeed, error)
	FindAll(ctx context.Context, propertyID uint) ([]models.CalendarFeed, error)
	// RecordSyncResult writes the outcome of one sync attempt; syncErr is
	// empty on success.
	RecordSyncResult(ctx context.Context, feedID uint, status models.SyncStatus, syncErr string, at time.Time) error
}

type calendarFeedRepository struct {
	db *gorm.DB
}

func NewCalendarFeedRepository(db *gorm.DB) CalendarFeedRepository {
	return &calendarFeedRepository{db: db}
}

func (r *calendarFeedRepository) Create(ctx context.Context, feed *models.CalendarFeed) error {
	return r.db.WithContext(ctx).Create(feed).Error
}

func (r *calendarFeedRepository) FindByID(ctx context.Context, id uint) (*models.CalendarFeed, error) {
	var feed models.CalendarFeed
	if err := r.db.WithContext(ctx).First(&feed, id).Error; err != nil {
		return nil, err
	}
	return &feed, nil
}

func (r *calendarFeedRepository) FindActive(ctx context.Context) ([]models.CalendarFeed, error) {
	var feeds []models.CalendarFeed
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&feeds).Error
	if err != nil {
		return nil, err
	}
	return feeds, nil
}

func (r *calendarFeedRepository) FindActiveByProperty(ctx context.Context, propertyID uint) ([]models.CalendarFeed, error) {
	var feeds []models.CalendarFeed
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND is_active = ?", propertyID, true).
		Order("id ASC").
		Find(&feeds).Error
	if err != nil {
		return nil, err
	}
	return feeds, nil
}

func (r *calendarFeedRepository) FindAll(ctx context.Context, propertyID uint) ([]models.CalendarFeed, error) {
	var feeds []models.CalendarFeed
	q := r.db.WithContext(ctx)
	if propertyID != 0 {
		q = q.Where("property_id = ?", propertyID)
	}
	if err := q.Order("id ASC").Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

func (r *calendarFeedRepository) RecordSyncResult(ctx context.Context, feedID uint, status models.SyncStatus, syncErr string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.CalendarFeed{}).
		Where("id = ?", feedID).
		Updates(map[string]interface{}{
			"last_sync_at": at,
			"sync_status":  status,
			"sync_error":   syncErr,
		}).Error
}
