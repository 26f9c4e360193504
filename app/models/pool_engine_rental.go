package models

import "time"

// PoolEngineRental is a season-level engine purchase, disjoint from per-event
// race entries. Keyed by (driver, class, rental type, season) so a repeated
// webhook or admin reconcile updates in place instead of duplicating.
type PoolEngineRental struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	DriverID          string     `gorm:"type:varchar(32);not null;index:ux_pool_rentals_key,unique,priority:1" json:"driver_id"`
	ChampionshipClass string     `gorm:"type:varchar(50);not null;index:ux_pool_rentals_key,unique,priority:2" json:"championship_class"`
	RentalType        string     `gorm:"type:varchar(50);not null;index:ux_pool_rentals_key,unique,priority:3" json:"rental_type"`
	SeasonYear        int        `gorm:"not null;index:ux_pool_rentals_key,unique,priority:4" json:"season_year"`
	PaymentReference  string     `gorm:"type:varchar(120);not null;index" json:"payment_reference"`
	PaymentStatus     string     `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	PfPaymentID       string     `gorm:"type:varchar(60)" json:"pf_payment_id"`
	AmountPaid        int64      `gorm:"not null;default:0" json:"amount_paid"`
	CompletedAt       *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
