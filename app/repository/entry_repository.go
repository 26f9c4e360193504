package repository

import (
	"time"

	"github.com/rokcupza/nats-registry/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormEntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates a race-entry repository backed by GORM.
func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &gormEntryRepository{db: db}
}

func (r *gormEntryRepository) CreatePending(entry *models.RaceEntry) (*models.RaceEntry, bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "driver_id"},
			{Name: "event_id"},
			{Name: "payment_reference"},
		},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.RaceEntry
	if err := r.db.
		Where("driver_id = ? AND event_id = ? AND payment_reference = ?",
			entry.DriverID, entry.EventID, entry.PaymentReference).
		First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

func (r *gormEntryRepository) CompleteEntry(paymentReference, pfPaymentID string, amount int64, completedAt time.Time) (*models.RaceEntry, bool, error) {
	// Conditional update: only a row still pending can transition. Concurrent
	// webhook retries and admin reconciles racing on the same reference
	// serialise here; whoever commits first flips the row, the rest see
	// RowsAffected == 0.
	tx := r.db.Model(&models.RaceEntry{}).
		Where("payment_reference = ? AND payment_status = ?", paymentReference, models.PAYMENT_PENDING).
		Updates(map[string]interface{}{
			"payment_status": models.PAYMENT_COMPLETED,
			"entry_status":   models.ENTRY_CONFIRMED,
			"pf_payment_id":  pfPaymentID,
			"amount_paid":    amount,
			"completed_at":   completedAt,
		})
	if tx.Error != nil {
		return nil, false, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, false, nil
	}

	var stored models.RaceEntry
	if err := r.db.Where("payment_reference = ?", paymentReference).First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, true, nil
}

func (r *gormEntryRepository) InsertCompleted(entry *models.RaceEntry) error {
	return r.db.Create(entry).Error
}

func (r *gormEntryRepository) GetByEntryID(entryID string) (*models.RaceEntry, error) {
	var entry models.RaceEntry
	if err := r.db.Where("entry_id = ?", entryID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormEntryRepository) GetByReference(paymentReference string) (*models.RaceEntry, error) {
	var entry models.RaceEntry
	if err := r.db.Where("payment_reference = ?", paymentReference).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormEntryRepository) ListByDriver(driverID string) ([]models.RaceEntry, error) {
	var entries []models.RaceEntry
	err := r.db.Where("driver_id = ?", driverID).Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *gormEntryRepository) ListByEvent(eventID string) ([]models.RaceEntry, error) {
	var entries []models.RaceEntry
	err := r.db.Where("event_id = ?", eventID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (r *gormEntryRepository) ListAll() ([]models.RaceEntry, error) {
	var entries []models.RaceEntry
	err := r.db.Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *gormEntryRepository) Update(entry *models.RaceEntry) error {
	return r.db.Save(entry).Error
}

func (r *gormEntryRepository) CancelStalePending(cutoff time.Time) (int64, error) {
	tx := r.db.Model(&models.RaceEntry{}).
		Where("payment_status = ? AND entry_status = ? AND created_at < ?",
			models.PAYMENT_PENDING, models.ENTRY_PENDING_PAYMENT, cutoff).
		Updates(map[string]interface{}{
			"payment_status": models.PAYMENT_FAILED,
			"entry_status":   models.ENTRY_CANCELLED,
		})
	return tx.RowsAffected, tx.Error
}
