package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rokcupza/nats-registry/app/models"
	"github.com/rokcupza/nats-registry/app/repository"
	"github.com/rokcupza/nats-registry/internal/pkg/cache"
	"github.com/rokcupza/nats-registry/internal/pkg/entry"
	"github.com/rokcupza/nats-registry/internal/pkg/env"
	"github.com/rokcupza/nats-registry/internal/pkg/ident"
	"github.com/rokcupza/nats-registry/internal/pkg/mail"
	"github.com/rokcupza/nats-registry/internal/pkg/middleware"
)

const (
	resetTokenPrefix = "pwreset:"
	resetTokenTTL    = time.Hour
)

// RegisterDriverRequest is the driver self-registration payload.
type RegisterDriverRequest struct {
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	Email               string `json:"email"`
	Password            string `json:"password"`
	DateOfBirth         string `json:"date_of_birth"`
	Nationality         string `json:"nationality"`
	Gender              string `json:"gender"`
	Championship        string `json:"championship"`
	RaceClass           string `json:"class"`
	RaceNumber          string `json:"race_number"`
	TeamName            string `json:"team_name"`
	CoachName           string `json:"coach_name"`
	KartBrand           string `json:"kart_brand"`
	TransponderNumber   string `json:"transponder_number"`
	ContactName         string `json:"contact_name"`
	ContactPhone        string `json:"contact_phone"`
	ContactRelationship string `json:"contact_relationship"`
	MediaReleaseConsent bool   `json:"media_release_consent"`
}

// HandleRegisterDriver creates a driver profile in the pending-approval state
// and sends the welcome email.
func HandleRegisterDriver(c *fiber.Ctx) error {
	var req RegisterDriverRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	driverID, err := ident.NewDriverID()
	if err != nil {
		return errorResponse(c, err)
	}

	driver := &models.Driver{
		DriverID:            driverID,
		FirstName:           strings.TrimSpace(req.FirstName),
		LastName:            strings.TrimSpace(req.LastName),
		Email:               strings.ToLower(strings.TrimSpace(req.Email)),
		DateOfBirth:         req.DateOfBirth,
		Nationality:         req.Nationality,
		Gender:              req.Gender,
		Championship:        req.Championship,
		RaceClass:           req.RaceClass,
		RaceNumber:          req.RaceNumber,
		TeamName:            req.TeamName,
		CoachName:           req.CoachName,
		KartBrand:           req.KartBrand,
		TransponderNumber:   req.TransponderNumber,
		ContactName:         req.ContactName,
		ContactPhone:        req.ContactPhone,
		ContactRelationship: req.ContactRelationship,
		MediaReleaseConsent: req.MediaReleaseConsent,
		Status:              models.DRIVER_STATUS_PENDING,
		NextRaceEntryStatus: models.NEXT_RACE_NONE,
	}
	if err := driver.SetPassword(req.Password); err != nil {
		return errorResponse(c, err)
	}
	if err := driver.Validate(); err != nil {
		return errorResponse(c, err)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Driver.Create(driver); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "duplicate_email", "message": "A driver with this email already exists"})
		}
		return errorResponse(c, err)
	}

	if err := repos.Audit.Append(&models.AuditLog{
		Action: models.AUDIT_DRIVER_REGISTERED,
		Actor:  driver.DriverID,
		Target: driver.DriverID,
	}); err != nil {
		log.Errorf("[Driver] audit append failed: %v", err)
	}

	mailQ.Enqueue(mail.NewRegistrationConfirmation(driver))
	mailQ.NotifyAdmin("new driver registration: " + driver.FullName() + " (" + driver.Email + ")")

	return c.Status(fiber.StatusCreated).JSON(driver)
}

// LoginRequest carries driver credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLoginWithPassword verifies credentials and returns the profile.
func HandleLoginWithPassword(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	driver, err := repos.Driver.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
		}
		return errorResponse(c, err)
	}
	if !driver.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
	}
	if driver.Status == models.DRIVER_STATUS_DISABLED {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Driver account disabled"})
	}

	now := time.Now()
	driver.LastLoginAt = &now
	if err := repos.Driver.Update(driver); err != nil {
		log.Errorf("[Driver] last-login update failed for %s: %v", driver.DriverID, err)
	}

	return c.JSON(driver)
}

// HandleRequestPasswordReset issues a reset token valid for one hour. The
// response is identical whether or not the email is known.
func HandleRequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	driver, err := repos.Driver.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err == nil {
		token, tErr := models.GenerateResetToken()
		if tErr == nil {
			if cErr := cache.Set(resetTokenPrefix+token, driver.DriverID, resetTokenTTL); cErr == nil {
				link := env.GetEnv("APP_BASE_URL", "https://rokthenats.co.za") + "/reset-password?token=" + token
				mailQ.Enqueue(mail.NewPasswordReset(driver.Email, link))
			} else {
				log.Errorf("[Driver] reset token store failed: %v", cErr)
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleResetPassword consumes a reset token and sets the new password.
func HandleResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Token == "" || len(req.Password) < 8 {
		return badRequest(c, "Token and a password of at least 8 characters are required")
	}

	driverID, err := cache.Get(resetTokenPrefix + req.Token)
	if err != nil || driverID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired reset token"})
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	driver, err := repos.Driver.GetByDriverID(driverID)
	if err != nil {
		return errorResponse(c, entry.ErrDriverNotFound)
	}
	if err := driver.SetPassword(req.Password); err != nil {
		return errorResponse(c, err)
	}
	if err := repos.Driver.Update(driver); err != nil {
		return errorResponse(c, err)
	}
	if err := cache.Delete(resetTokenPrefix + req.Token); err != nil {
		log.Errorf("[Driver] reset token delete failed: %v", err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// InitiatePaymentRequest is a driver's race-entry request.
type InitiatePaymentRequest struct {
	EventID      string   `json:"event_id"`
	RaceClass    string   `json:"class"`
	Items        []string `json:"items"`
	DiscountCode string   `json:"discount_code"`
}

// HandleInitiateRacePayment prices and persists a pending entry and returns
// the signed gateway form. Free-type codes short-circuit to a confirmed entry
// with no form.
func HandleInitiateRacePayment(c *fiber.Ctx) error {
	driver := middleware.DriverFromLocals(c)

	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := entrySvc.InitiatePaidEntry(c.Context(), driver.DriverID, entry.InitiateInput{
		EventID:      req.EventID,
		RaceClass:    req.RaceClass,
		Items:        req.Items,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	resp := fiber.Map{
		"entry":      result.Entry,
		"amount":     result.Quote.Total,
		"free_entry": result.FreeEntry,
	}
	if result.Form != nil {
		resp["payment_url"] = result.Form.URL
		resp["payment_fields"] = result.Form.Fields
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleRegisterFreeRaceEntry completes a free entry directly, bypassing the
// gateway. The discount code must be a free-type code zeroing the total.
func HandleRegisterFreeRaceEntry(c *fiber.Ctx) error {
	driver := middleware.DriverFromLocals(c)

	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := entrySvc.CompleteFreeEntry(c.Context(), driver.DriverID, entry.InitiateInput{
		EventID:      req.EventID,
		RaceClass:    req.RaceClass,
		Items:        req.Items,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"entry": result.Entry, "free_entry": true})
}

// HandleMyRaceEntries lists the authenticated driver's entries.
func HandleMyRaceEntries(c *fiber.Ctx) error {
	driver := middleware.DriverFromLocals(c)

	repos := repository.GetGlobalFactory().GetRepositories()
	entries, err := repos.Entry.ListByDriver(driver.DriverID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// HandleListOpenEvents lists events currently accepting registrations.
func HandleListOpenEvents(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()
	events, err := repos.Event.ListOpen(time.Now())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}
