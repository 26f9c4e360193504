package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rokcupza/nats-registry/app/models"
	"github.com/rokcupza/nats-registry/app/repository"
	"github.com/rokcupza/nats-registry/internal/pkg/entry"
	"github.com/rokcupza/nats-registry/internal/pkg/ident"
	"github.com/rokcupza/nats-registry/internal/pkg/middleware"
	"github.com/rokcupza/nats-registry/internal/pkg/pdfexport"
)

// HandleAdminListEntries lists race entries, optionally filtered by event.
func HandleAdminListEntries(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()

	eventID := c.Query("event_id")
	var (
		entries []models.RaceEntry
		err     error
	)
	if eventID != "" {
		entries, err = repos.Entry.ListByEvent(eventID)
	} else {
		entries, err = repos.Entry.ListAll()
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// AdminCreateEntryRequest is an operator-created entry.
type AdminCreateEntryRequest struct {
	DriverID      string   `json:"driver_id"`
	EventID       string   `json:"event_id"`
	RaceClass     string   `json:"class"`
	Items         []string `json:"items"`
	PaymentStatus string   `json:"payment_status"`
	DiscountCode  string   `json:"discount_code"`
	SendEmail     bool     `json:"send_email"`
}

// HandleAdminCreateEntry creates an entry at an explicit payment state,
// bypassing the registration-open check.
func HandleAdminCreateEntry(c *fiber.Ctx) error {
	var req AdminCreateEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := entrySvc.AdminManualEntry(c.Context(), entry.ManualEntryInput{
		DriverID:      req.DriverID,
		EventID:       req.EventID,
		RaceClass:     req.RaceClass,
		Items:         req.Items,
		PaymentStatus: req.PaymentStatus,
		DiscountCode:  req.DiscountCode,
		SendEmail:     req.SendEmail,
		Actor:         middleware.AdminActorFromLocals(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// AdminEditEntryRequest carries the editable fields of an entry.
type AdminEditEntryRequest struct {
	RaceClass *string   `json:"class"`
	Items     *[]string `json:"items"`
}

// HandleAdminEditEntry updates class and item selection on an entry.
func HandleAdminEditEntry(c *fiber.Ctx) error {
	var req AdminEditEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := entrySvc.EditEntry(c.Context(), c.Params("entryID"), entry.EditInput{
		RaceClass: req.RaceClass,
		Items:     req.Items,
		Actor:     middleware.AdminActorFromLocals(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(updated)
}

// HandleAdminCancelEntry cancels an entry. An optional expected_payment_status
// makes the cancellation conditional on the payment state the operator saw.
func HandleAdminCancelEntry(c *fiber.Ctx) error {
	var req struct {
		ExpectedPaymentStatus string `json:"expected_payment_status"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	cancelled, err := entrySvc.CancelEntry(c.Context(), c.Params("entryID"), req.ExpectedPaymentStatus, middleware.AdminActorFromLocals(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(cancelled)
}

// AdminReconcileRequest is a payment an operator confirmed out of band.
type AdminReconcileRequest struct {
	PaymentReference string `json:"payment_reference"`
	PayerEmail       string `json:"payer_email"`
	PayerFirstName   string `json:"payer_first_name"`
	PayerLastName    string `json:"payer_last_name"`
	AmountCents      int64  `json:"amount_cents"`
	PfPaymentID      string `json:"pf_payment_id"`
}

// HandleAdminReconcilePayment applies a payment as if its webhook had arrived.
func HandleAdminReconcilePayment(c *fiber.Ctx) error {
	var req AdminReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.PaymentReference == "" {
		return badRequest(c, "payment_reference is required")
	}

	err := entrySvc.AdminReconcile(c.Context(), entry.AdminReconcileInput{
		PaymentReference: req.PaymentReference,
		PayerEmail:       req.PayerEmail,
		PayerFirstName:   req.PayerFirstName,
		PayerLastName:    req.PayerLastName,
		AmountCents:      req.AmountCents,
		PfPaymentID:      req.PfPaymentID,
		Actor:            middleware.AdminActorFromLocals(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	if stored, gErr := repos.Entry.GetByReference(req.PaymentReference); gErr == nil {
		return c.JSON(stored)
	}
	return c.JSON(fiber.Map{"status": "reconciled", "payment_reference": req.PaymentReference})
}

// HandleAdminExportEntriesPDF renders the paddock sheet for one event and
// optionally archives it.
func HandleAdminExportEntriesPDF(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()

	eventID := c.Query("event_id")
	if eventID == "" {
		return badRequest(c, "event_id is required")
	}
	event, err := repos.Event.GetByEventID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, entry.ErrEventNotFound)
		}
		return errorResponse(c, err)
	}

	entries, err := repos.Entry.ListByEvent(eventID)
	if err != nil {
		return errorResponse(c, err)
	}

	drivers := make(map[string]*models.Driver, len(entries))
	for i := range entries {
		id := entries[i].DriverID
		if _, ok := drivers[id]; ok {
			continue
		}
		if d, dErr := repos.Driver.GetByDriverID(id); dErr == nil {
			drivers[id] = d
		}
	}

	pdf, err := pdfexport.EntryList(event, entries, drivers)
	if err != nil {
		return errorResponse(c, err)
	}

	if archive != nil {
		if key, aErr := archive.ArchivePDF(c.Context(), eventID, pdf); aErr != nil {
			log.Errorf("[Admin] export archive failed for %s: %v", eventID, aErr)
		} else {
			c.Set("X-Archive-Key", key)
		}
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="entries-%s.pdf"`, eventID))
	return c.Send(pdf)
}

// AdminEventRequest carries event fields for create and update.
type AdminEventRequest struct {
	Name                 string `json:"name"`
	Venue                string `json:"venue"`
	EventDate            string `json:"event_date"`
	RegistrationDeadline string `json:"registration_deadline"`
	EntryFee             int64  `json:"entry_fee"`
	RegistrationOpen     bool   `json:"registration_open"`
}

// HandleAdminListEvents lists all events.
func HandleAdminListEvents(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()
	events, err := repos.Event.List()
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

// HandleAdminCreateEvent creates a race event.
func HandleAdminCreateEvent(c *fiber.Ctx) error {
	var req AdminEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	eventID, err := ident.NewEventID()
	if err != nil {
		return errorResponse(c, err)
	}

	event := &models.Event{
		EventID:          eventID,
		Name:             req.Name,
		Venue:            req.Venue,
		EntryFee:         req.EntryFee,
		RegistrationOpen: req.RegistrationOpen,
	}
	if err := applyEventDates(event, req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := event.Validate(); err != nil {
		return errorResponse(c, err)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Event.Create(event); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// HandleAdminUpdateEvent updates a race event.
func HandleAdminUpdateEvent(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()

	event, err := repos.Event.GetByEventID(c.Params("eventID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, entry.ErrEventNotFound)
		}
		return errorResponse(c, err)
	}

	var req AdminEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Name != "" {
		event.Name = req.Name
	}
	if req.Venue != "" {
		event.Venue = req.Venue
	}
	if req.EntryFee > 0 {
		event.EntryFee = req.EntryFee
	}
	event.RegistrationOpen = req.RegistrationOpen
	if err := applyEventDates(event, req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := event.Validate(); err != nil {
		return errorResponse(c, err)
	}

	if err := repos.Event.Update(event); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(event)
}

// HandleAdminApproveDriver moves a driver from pending approval to active.
func HandleAdminApproveDriver(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()

	driver, err := repos.Driver.GetByDriverID(c.Params("driverID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, entry.ErrDriverNotFound)
		}
		return errorResponse(c, err)
	}

	driver.Status = models.DRIVER_STATUS_ACTIVE
	if err := repos.Driver.Update(driver); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(driver)
}

// HandleAdminListDrivers lists drivers with simple offset paging.
func HandleAdminListDrivers(c *fiber.Ctx) error {
	repos := repository.GetGlobalFactory().GetRepositories()

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	drivers, err := repos.Driver.List(offset, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	total, err := repos.Driver.Count()
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"drivers": drivers, "total": total})
}

func applyEventDates(event *models.Event, req AdminEventRequest) error {
	if req.EventDate != "" {
		d, err := time.Parse("2006-01-02", req.EventDate)
		if err != nil {
			return fmt.Errorf("event_date must be YYYY-MM-DD")
		}
		event.EventDate = d
	}
	if req.RegistrationDeadline != "" {
		d, err := time.Parse(time.RFC3339, req.RegistrationDeadline)
		if err != nil {
			return fmt.Errorf("registration_deadline must be RFC 3339")
		}
		event.RegistrationDeadline = d
	}
	return nil
}
