package repository

import (
	"github.com/rokcupza/nats-registry/app/models"
	"gorm.io/gorm"
)

type gormDiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository creates a discount-code repository backed by GORM.
func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &gormDiscountRepository{db: db}
}

func (r *gormDiscountRepository) GetActiveByCode(code string) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	if err := r.db.Where("code = ? AND is_active = ?", code, true).First(&dc).Error; err != nil {
		return nil, err
	}
	return &dc, nil
}

func (r *gormDiscountRepository) Create(code *models.DiscountCode) error {
	return r.db.Create(code).Error
}

func (r *gormDiscountRepository) Update(code *models.DiscountCode) error {
	return r.db.Save(code).Error
}

func (r *gormDiscountRepository) List() ([]models.DiscountCode, error) {
	var codes []models.DiscountCode
	err := r.db.Order("code ASC").Find(&codes).Error
	return codes, err
}
