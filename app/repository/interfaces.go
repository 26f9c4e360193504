package repository

import (
	"context"
	"time"

	"github.com/rokcupza/nats-registry/app/models"
	"gorm.io/gorm"
)

// DriverRepository defines the interface for driver-related database operations
type DriverRepository interface {
	Create(driver *models.Driver) error
	GetByDriverID(driverID string) (*models.Driver, error)
	GetByEmail(email string) (*models.Driver, error)
	Update(driver *models.Driver) error
	UpdateEntryFlags(driverID, nextRaceEntryStatus string, seasonEngineRental *bool) error
	List(offset, limit int) ([]models.Driver, error)
	Count() (int64, error)
}

// EventRepository defines the interface for event-related database operations
type EventRepository interface {
	Create(event *models.Event) error
	GetByEventID(eventID string) (*models.Event, error)
	Update(event *models.Event) error
	List() ([]models.Event, error)
	ListOpen(now time.Time) ([]models.Event, error)
}

// EntryRepository defines the interface for race-entry database operations.
// CreatePending and CompleteEntry carry the idempotency and compare-and-set
// semantics the coordinator's reconciliation rules depend on.
type EntryRepository interface {
	// CreatePending inserts a pending entry. On a collision of the
	// (driver_id, event_id, payment_reference) unique key it returns the
	// existing row unchanged with created=false.
	CreatePending(entry *models.RaceEntry) (stored *models.RaceEntry, created bool, err error)

	// CompleteEntry atomically moves a pending row with this reference to
	// completed/confirmed. Returns updated=false when no pending row exists;
	// the caller falls back to InsertCompleted.
	CompleteEntry(paymentReference, pfPaymentID string, amount int64, completedAt time.Time) (entry *models.RaceEntry, updated bool, err error)

	// InsertCompleted inserts a row directly in a terminal payment state.
	// Violating the unique key surfaces gorm.ErrDuplicatedKey.
	InsertCompleted(entry *models.RaceEntry) error

	GetByEntryID(entryID string) (*models.RaceEntry, error)
	GetByReference(paymentReference string) (*models.RaceEntry, error)
	ListByDriver(driverID string) ([]models.RaceEntry, error)
	ListByEvent(eventID string) ([]models.RaceEntry, error)
	ListAll() ([]models.RaceEntry, error)
	Update(entry *models.RaceEntry) error

	// CancelStalePending cancels pending entries initiated before the cutoff.
	CancelStalePending(cutoff time.Time) (int64, error)
}

// RentalRepository defines the interface for pool-engine-rental operations
type RentalRepository interface {
	// Upsert inserts or updates on the (driver, class, rental type, season)
	// natural key.
	Upsert(rental *models.PoolEngineRental) error
	GetByKey(driverID, class, rentalType string, seasonYear int) (*models.PoolEngineRental, error)
	ListByDriver(driverID string) ([]models.PoolEngineRental, error)
}

// LedgerRepository defines the interface for the payment ledger
type LedgerRepository interface {
	// InsertIfNotExists records a gateway notification once per pf_payment_id.
	// Returns created=false when the id was already seen.
	InsertIfNotExists(row *models.PaymentLedger) (created bool, err error)
	GetByPfPaymentID(pfPaymentID string) (*models.PaymentLedger, error)
	ListByReference(paymentReference string) ([]models.PaymentLedger, error)
}

// DiscountRepository defines the interface for discount codes
type DiscountRepository interface {
	GetActiveByCode(code string) (*models.DiscountCode, error)
	Create(code *models.DiscountCode) error
	Update(code *models.DiscountCode) error
	List() ([]models.DiscountCode, error)
}

// NotificationRepository is the append-only failed-notification log
type NotificationRepository interface {
	Append(record *models.FailedNotification) error
	List(offset, limit int) ([]models.FailedNotification, error)
}

// AuditRepository is the append-only audit log
type AuditRepository interface {
	Append(record *models.AuditLog) error
	ListByTarget(target string) ([]models.AuditLog, error)
}

// Repositories bundles all repository implementations over one DB handle.
type Repositories struct {
	Driver       DriverRepository
	Event        EventRepository
	Entry        EntryRepository
	Rental       RentalRepository
	Ledger       LedgerRepository
	Discount     DiscountRepository
	Notification NotificationRepository
	Audit        AuditRepository

	db *gorm.DB
}

// NewRepositories creates all repositories bound to the given DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Driver:       NewDriverRepository(db),
		Event:        NewEventRepository(db),
		Entry:        NewEntryRepository(db),
		Rental:       NewRentalRepository(db),
		Ledger:       NewLedgerRepository(db),
		Discount:     NewDiscountRepository(db),
		Notification: NewNotificationRepository(db),
		Audit:        NewAuditRepository(db),
		db:           db,
	}
}

// DB exposes the underlying handle for callers that need raw queries.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// WithContext returns repositories whose statements run under ctx, so request
// deadlines and cancellation bound every store call, transactions included.
func (r *Repositories) WithContext(ctx context.Context) *Repositories {
	return NewRepositories(r.db.WithContext(ctx))
}

// Transaction runs fn with repositories bound to a single transaction. All
// multi-row writes for one business event go through here so partial writes
// are never observable.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
