package models

import "time"

// PaymentLedger is the raw record of what the gateway told us, one row per
// gateway payment id. The unique index on pf_payment_id makes webhook retries
// an insert no-op; rows are never updated afterwards.
type PaymentLedger struct {
	ID               uint       `gorm:"primaryKey" json:"-"`
	PfPaymentID      string     `gorm:"type:varchar(60);uniqueIndex;not null" json:"pf_payment_id"`
	PaymentReference string     `gorm:"type:varchar(120);not null;index" json:"payment_reference"`
	AmountGross      int64      `gorm:"not null;default:0" json:"amount_gross"`
	PaymentStatus    string     `gorm:"type:varchar(30);not null" json:"payment_status"`
	PayerEmail       string     `gorm:"type:varchar(200)" json:"payer_email"`
	PayerFirstName   string     `gorm:"type:varchar(100)" json:"payer_first_name"`
	PayerLastName    string     `gorm:"type:varchar(100)" json:"payer_last_name"`
	ItemName         string     `gorm:"type:varchar(200)" json:"item_name"`
	RawPayload       string     `gorm:"type:longtext" json:"raw_payload"`
	CompletedAt      *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
