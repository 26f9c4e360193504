package repository

import (
	"github.com/rokcupza/nats-registry/app/models"
	"gorm.io/gorm"
)

type gormDriverRepository struct {
	db *gorm.DB
}

// NewDriverRepository creates a driver repository backed by GORM.
func NewDriverRepository(db *gorm.DB) DriverRepository {
	return &gormDriverRepository{db: db}
}

func (r *gormDriverRepository) Create(driver *models.Driver) error {
	return r.db.Create(driver).Error
}

func (r *gormDriverRepository) GetByDriverID(driverID string) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.Where("driver_id = ?", driverID).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *gormDriverRepository) GetByEmail(email string) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.Where("email = ?", email).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *gormDriverRepository) Update(driver *models.Driver) error {
	return r.db.Save(driver).Error
}

func (r *gormDriverRepository) UpdateEntryFlags(driverID, nextRaceEntryStatus string, seasonEngineRental *bool) error {
	updates := map[string]interface{}{}
	if nextRaceEntryStatus != "" {
		updates["next_race_entry_status"] = nextRaceEntryStatus
	}
	if seasonEngineRental != nil {
		updates["season_engine_rental"] = *seasonEngineRental
		if *seasonEngineRental {
			updates["next_race_engine_rental_status"] = models.NEXT_RACE_CONFIRMED
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Driver{}).Where("driver_id = ?", driverID).Updates(updates).Error
}

func (r *gormDriverRepository) List(offset, limit int) ([]models.Driver, error) {
	var drivers []models.Driver
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&drivers).Error
	return drivers, err
}

func (r *gormDriverRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Driver{}).Count(&count).Error
	return count, err
}
