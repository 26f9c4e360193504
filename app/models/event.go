package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Event is a single race meeting drivers can enter. Created and edited by
// admins only; drivers see it read-only.
type Event struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	EventID              string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"event_id"`
	Name                 string    `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Venue                string    `gorm:"type:varchar(200)" json:"venue"`
	EventDate            time.Time `gorm:"type:date" json:"event_date"`
	RegistrationDeadline time.Time `gorm:"type:datetime" json:"registration_deadline"`
	EntryFee             int64     `gorm:"not null;default:0" json:"entry_fee" validate:"gte=0"`
	RegistrationOpen     bool      `gorm:"default:false;index" json:"registration_open"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *Event) Validate() error {
	v := validator.New()

	return v.Struct(e)
}

// AcceptsRegistrations reports whether drivers may initiate new paid entries.
// Admin-manual and admin-reconcile paths ignore this.
func (e *Event) AcceptsRegistrations(now time.Time) bool {
	if !e.RegistrationOpen {
		return false
	}
	if e.RegistrationDeadline.IsZero() {
		return true
	}
	return now.Before(e.RegistrationDeadline)
}
