package models

import "time"

// Audit action tags used by the entry coordinator.
const (
	AUDIT_ENTRY_INITIATED   = "entry_initiated"
	AUDIT_ENTRY_FREE        = "entry_free"
	AUDIT_ENTRY_COMPLETED   = "entry_completed"
	AUDIT_ENTRY_CANCELLED   = "entry_cancelled"
	AUDIT_ENTRY_EDITED      = "entry_edited"
	AUDIT_ENTRY_MANUAL      = "entry_manual"
	AUDIT_LATE_WEBHOOK      = "late_webhook"
	AUDIT_ADMIN_RECONCILE   = "admin_reconcile"
	AUDIT_POOL_RENTAL_PAID  = "pool_rental_paid"
	AUDIT_WEBHOOK_IGNORED   = "webhook_ignored"
	AUDIT_DRIVER_REGISTERED = "driver_registered"
)

// AuditLog records one business action. Detail is free-form JSON.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"type:varchar(50);not null;index" json:"action"`
	Actor     string    `gorm:"type:varchar(100)" json:"actor"`
	Target    string    `gorm:"type:varchar(120);index" json:"target"`
	Detail    string    `gorm:"type:longtext" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
