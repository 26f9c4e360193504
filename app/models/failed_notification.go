package models

import "time"

// FailedNotification preserves the full verbatim payload and headers of any
// webhook whose processing raised an error. Append-only; operators reconcile
// from this log, the gateway's retries are not relied upon.
type FailedNotification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	IncidentID   string    `gorm:"type:varchar(36);index" json:"incident_id"`
	ErrorSummary string    `gorm:"type:text" json:"error_summary"`
	Payload      string    `gorm:"type:longtext" json:"payload"`
	Headers      string    `gorm:"type:longtext" json:"headers"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
