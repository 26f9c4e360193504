package repository

import (
	"github.com/rokcupza/nats-registry/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a payment-ledger repository backed by GORM.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &gormLedgerRepository{db: db}
}

func (r *gormLedgerRepository) InsertIfNotExists(row *models.PaymentLedger) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pf_payment_id"}},
		DoNothing: true,
	}).Create(row)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormLedgerRepository) GetByPfPaymentID(pfPaymentID string) (*models.PaymentLedger, error) {
	var row models.PaymentLedger
	if err := r.db.Where("pf_payment_id = ?", pfPaymentID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gormLedgerRepository) ListByReference(paymentReference string) ([]models.PaymentLedger, error) {
	var rows []models.PaymentLedger
	err := r.db.Where("payment_reference = ?", paymentReference).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

type gormRentalRepository struct {
	db *gorm.DB
}

// NewRentalRepository creates a pool-engine-rental repository backed by GORM.
func NewRentalRepository(db *gorm.DB) RentalRepository {
	return &gormRentalRepository{db: db}
}

func (r *gormRentalRepository) Upsert(rental *models.PoolEngineRental) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "driver_id"},
			{Name: "championship_class"},
			{Name: "rental_type"},
			{Name: "season_year"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"payment_reference",
			"payment_status",
			"pf_payment_id",
			"amount_paid",
			"completed_at",
			"updated_at",
		}),
	}).Create(rental).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.
		Where("driver_id = ? AND championship_class = ? AND rental_type = ? AND season_year = ?",
			rental.DriverID, rental.ChampionshipClass, rental.RentalType, rental.SeasonYear).
		First(rental).Error
}

func (r *gormRentalRepository) GetByKey(driverID, class, rentalType string, seasonYear int) (*models.PoolEngineRental, error) {
	var rental models.PoolEngineRental
	if err := r.db.
		Where("driver_id = ? AND championship_class = ? AND rental_type = ? AND season_year = ?",
			driverID, class, rentalType, seasonYear).
		First(&rental).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *gormRentalRepository) ListByDriver(driverID string) ([]models.PoolEngineRental, error) {
	var rentals []models.PoolEngineRental
	err := r.db.Where("driver_id = ?", driverID).Find(&rentals).Error
	return rentals, err
}
