package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rokcupza/nats-registry/app/models"
)

type gormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates the failed-notification log repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Append(record *models.FailedNotification) error {
	if record.IncidentID == "" {
		// Operators quote this id when chasing a payment by hand.
		record.IncidentID = uuid.NewString()
	}
	return r.db.Create(record).Error
}

func (r *gormNotificationRepository) List(offset, limit int) ([]models.FailedNotification, error) {
	var records []models.FailedNotification
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&records).Error
	return records, err
}

type gormAuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates the audit log repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &gormAuditRepository{db: db}
}

func (r *gormAuditRepository) Append(record *models.AuditLog) error {
	return r.db.Create(record).Error
}

func (r *gormAuditRepository) ListByTarget(target string) ([]models.AuditLog, error) {
	var records []models.AuditLog
	err := r.db.Where("target = ?", target).Order("created_at ASC").Find(&records).Error
	return records, err
}
