package repository

import (
	"time"

	"github.com/rokcupza/nats-registry/app/models"
	"gorm.io/gorm"
)

type gormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates an event repository backed by GORM.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

func (r *gormEventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

func (r *gormEventRepository) GetByEventID(eventID string) (*models.Event, error) {
	var event models.Event
	if err := r.db.Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormEventRepository) Update(event *models.Event) error {
	return r.db.Save(event).Error
}

func (r *gormEventRepository) List() ([]models.Event, error) {
	var events []models.Event
	err := r.db.Order("event_date ASC").Find(&events).Error
	return events, err
}

func (r *gormEventRepository) ListOpen(now time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Where("registration_open = ? AND (registration_deadline IS NULL OR registration_deadline > ?)", true, now).
		Order("event_date ASC").
		Find(&events).Error
	return events, err
}
