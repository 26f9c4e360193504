package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	DRIVER_STATUS_PENDING  = "pending_approval"
	DRIVER_STATUS_ACTIVE   = "active"
	DRIVER_STATUS_DISABLED = "disabled"

	// Values for NextRaceEntryStatus / NextRaceEngineRentalStatus.
	NEXT_RACE_NONE      = "none"
	NEXT_RACE_PENDING   = "pending_payment"
	NEXT_RACE_CONFIRMED = "confirmed"
)

// Driver is a registered championship participant. The profile fields are
// captured at registration; the entry coordinator only ever writes the three
// status/flag fields (SeasonEngineRental, NextRaceEntryStatus,
// NextRaceEngineRentalStatus).
type Driver struct {
	ID                         uint       `gorm:"primaryKey" json:"-"`
	DriverID                   string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"driver_id"`
	FirstName                  string     `gorm:"type:varchar(100)" json:"first_name" validate:"required,max=100"`
	LastName                   string     `gorm:"type:varchar(100)" json:"last_name" validate:"required,max=100"`
	Email                      string     `gorm:"type:varchar(200);uniqueIndex" json:"email" validate:"required,email,max=200"`
	Password                   string     `gorm:"type:text" json:"-" validate:"required,min=8"`
	DateOfBirth                string     `gorm:"type:varchar(10)" json:"date_of_birth" validate:"required"`
	Nationality                string     `gorm:"type:varchar(100)" json:"nationality"`
	Gender                     string     `gorm:"type:varchar(20)" json:"gender"`
	Championship               string     `gorm:"type:varchar(100)" json:"championship"`
	RaceClass                  string     `gorm:"type:varchar(50);index" json:"class"`
	RaceNumber                 string     `gorm:"type:varchar(10)" json:"race_number"`
	TeamName                   string     `gorm:"type:varchar(150)" json:"team_name"`
	CoachName                  string     `gorm:"type:varchar(150)" json:"coach_name"`
	KartBrand                  string     `gorm:"type:varchar(100)" json:"kart_brand"`
	TransponderNumber          string     `gorm:"type:varchar(50)" json:"transponder_number"`
	ContactName                string     `gorm:"type:varchar(150)" json:"contact_name"`
	ContactPhone               string     `gorm:"type:varchar(30)" json:"contact_phone"`
	ContactRelationship        string     `gorm:"type:varchar(50)" json:"contact_relationship"`
	MediaReleaseConsent        bool       `gorm:"default:false" json:"media_release_consent"`
	Status                     string     `gorm:"type:varchar(50);default:'pending_approval'" json:"status" validate:"oneof=pending_approval active disabled"`
	SeasonEngineRental         bool       `gorm:"default:false" json:"season_engine_rental"`
	NextRaceEntryStatus        string     `gorm:"type:varchar(50);default:'none'" json:"next_race_entry_status"`
	NextRaceEngineRentalStatus string     `gorm:"type:varchar(50);default:'none'" json:"next_race_engine_rental_status"`
	LastLoginAt                *time.Time `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt                  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt                  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *Driver) Validate() error {
	v := validator.New()

	return v.Struct(d)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies the provided password against the stored hash.
func (d *Driver) CheckPassword(password string) bool {
	return CheckPasswordHash(password, d.Password)
}

// SetPassword hashes and sets a new password for the driver.
func (d *Driver) SetPassword(password string) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	d.Password = hashed
	return nil
}

// IsActive reports whether the driver has been approved by an admin.
func (d *Driver) IsActive() bool {
	return d.Status == DRIVER_STATUS_ACTIVE
}

// FullName returns the driver's display name for emails and exports.
func (d *Driver) FullName() string {
	return d.FirstName + " " + d.LastName
}

// GenerateResetToken creates a random token for the password reset flow.
// The token itself is stored out of band (cache with TTL), never on the row.
func GenerateResetToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
