package repository

import (
	"context"

	"github.com/palmhaven/booking-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	FindByID(ctx context.Context, id uint) (*models.Property, error)
	// FindByIDForUpdate locks the property row; confirm transactions take
	// this lock first so competing confirms for one property serialize.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Property, error)
	FindAll(ctx context.Context, activeOnly bool) ([]models.Property, error)
	Update(ctx context.Context, property *models.Property) error
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Create(property).Error
}

func (r *propertyRepository) FindByID(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Property, error) {
	var property models.Property
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&property, id).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) FindAll(ctx context.Context, activeOnly bool) ([]models.Property, error) {
	var properties []models.Property
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("id ASC").Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *propertyRepository) Update(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Save(property).Error
}
