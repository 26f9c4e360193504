package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rokcupza/nats-registry/app/models"
	"github.com/rokcupza/nats-registry/app/repository"
	"github.com/rokcupza/nats-registry/internal/pkg/ident"
	"github.com/rokcupza/nats-registry/internal/pkg/mail"
	"github.com/rokcupza/nats-registry/internal/pkg/payfast"
	"github.com/rokcupza/nats-registry/internal/pkg/ticket"
)

// Service is the entry coordinator. It owns the entry state machine and the
// reconciliation rules between browser-initiated payments, gateway webhooks,
// the free-entry shortcut and manual admin action. All correctness derives
// from store transactions and unique keys, never from in-process state.
type Service struct {
	repos   *repository.Repositories
	gateway *payfast.Adapter
	mailq   *mail.Queue
	now     func() time.Time
}

// NewService creates the coordinator over the given collaborators.
func NewService(repos *repository.Repositories, gateway *payfast.Adapter, mailq *mail.Queue) *Service {
	return &Service{
		repos:   repos,
		gateway: gateway,
		mailq:   mailq,
		now:     time.Now,
	}
}

// InitiateInput is a driver's request to enter an event.
type InitiateInput struct {
	EventID      string
	RaceClass    string
	Items        []string
	DiscountCode string
}

// InitiateResult is what the initiation paths hand back to the HTTP layer.
// Form is nil for free entries; no gateway round trip happens for those.
type InitiateResult struct {
	Entry     *models.RaceEntry
	Quote     Quote
	FreeEntry bool
	Form      *payfast.RedirectForm
}

// InitiatePaidEntry prices the entry, persists it in the pending state, and
// returns the signed gateway form for the browser to POST. The confirmation
// email goes out now, not at webhook time: it is the driver's receipt and
// must survive webhook loss. Repeating the call for the same synthesised
// reference is a no-op returning the stored row.
func (s *Service) InitiatePaidEntry(ctx context.Context, driverID string, in InitiateInput) (*InitiateResult, error) {
	repos := s.repos.WithContext(ctx)

	driver, event, discount, quote, err := s.loadAndPrice(repos, driverID, in)
	if err != nil {
		return nil, err
	}
	if !event.AcceptsRegistrations(s.now()) {
		return nil, ErrRegistrationClosed
	}

	if quote.IsFreeEntry {
		return s.CompleteFreeEntry(ctx, driverID, in)
	}

	reference := payfast.NewRaceReference(event.EventID, driver.DriverID, s.now())
	newEntry, err := s.buildEntry(driver, event, in, quote.Total, reference, discount)
	if err != nil {
		return nil, err
	}
	newEntry.PaymentStatus = models.PAYMENT_PENDING
	newEntry.EntryStatus = models.ENTRY_PENDING_PAYMENT

	var stored *models.RaceEntry
	var created bool
	err = s.withRetry(ctx, func() error {
		return repos.Transaction(func(tx *repository.Repositories) error {
			var txErr error
			stored, created, txErr = tx.Entry.CreatePending(newEntry)
			if txErr != nil {
				return txErr
			}
			if !created {
				return nil
			}
			if txErr = tx.Driver.UpdateEntryFlags(driver.DriverID, models.NEXT_RACE_PENDING, nil); txErr != nil {
				return txErr
			}
			return tx.Audit.Append(&models.AuditLog{
				Action: models.AUDIT_ENTRY_INITIATED,
				Actor:  driver.DriverID,
				Target: reference,
				Detail: auditDetail(map[string]interface{}{
					"entry_id": stored.EntryID,
					"event_id": event.EventID,
					"amount":   quote.Total,
					"items":    in.Items,
				}),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	form, err := s.gateway.BuildRedirectForm(payfast.PaymentRequest{
		PaymentReference: reference,
		AmountCents:      quote.Total,
		ItemName:         event.Name,
		ItemDescription:  itemSummary(in.RaceClass, in.Items),
		PayerEmail:       driver.Email,
		PayerFirstName:   driver.FirstName,
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.mailq.Enqueue(mail.NewRaceEntryConfirmation(driver, event, stored))
	}

	return &InitiateResult{Entry: stored, Quote: quote, Form: form}, nil
}

// CompleteFreeEntry creates an entry directly in the confirmed state for a
// free-type discount code that reduces the total to zero. No gateway
// interaction takes place.
func (s *Service) CompleteFreeEntry(ctx context.Context, driverID string, in InitiateInput) (*InitiateResult, error) {
	repos := s.repos.WithContext(ctx)

	driver, event, discount, quote, err := s.loadAndPrice(repos, driverID, in)
	if err != nil {
		return nil, err
	}
	if !quote.IsFreeEntry {
		return nil, ErrNotFreeEntry
	}

	reference := payfast.NewRaceReference(event.EventID, driver.DriverID, s.now())
	newEntry, err := s.buildEntry(driver, event, in, 0, reference, discount)
	if err != nil {
		return nil, err
	}
	now := s.now()
	newEntry.PaymentStatus = models.PAYMENT_FREE
	newEntry.EntryStatus = models.ENTRY_CONFIRMED
	newEntry.CompletedAt = &now

	err = s.withRetry(ctx, func() error {
		return repos.Transaction(func(tx *repository.Repositories) error {
			if txErr := tx.Entry.InsertCompleted(newEntry); txErr != nil {
				if errors.Is(txErr, gorm.ErrDuplicatedKey) {
					return ErrDuplicateEntry
				}
				return txErr
			}
			if txErr := tx.Driver.UpdateEntryFlags(driver.DriverID, models.NEXT_RACE_CONFIRMED, nil); txErr != nil {
				return txErr
			}
			return tx.Audit.Append(&models.AuditLog{
				Action: models.AUDIT_ENTRY_FREE,
				Actor:  driver.DriverID,
				Target: reference,
				Detail: auditDetail(map[string]interface{}{
					"entry_id": newEntry.EntryID,
					"event_id": event.EventID,
					"code":     in.DiscountCode,
				}),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	s.mailq.Enqueue(mail.NewRaceEntryConfirmation(driver, event, newEntry))
	s.mailq.NotifyAdmin(fmt.Sprintf("free entry %s for %s at %s (code %s)",
		newEntry.EntryID, driver.FullName(), event.Name, in.DiscountCode))

	return &InitiateResult{Entry: newEntry, Quote: quote, FreeEntry: true}, nil
}

// ReconcileNotification applies one verified gateway notification. The caller
// has already run signature verification; nothing here re-checks it. The
// method is idempotent: the ledger unique key absorbs duplicate deliveries
// and the conditional entry update absorbs races with admin reconciliation.
func (s *Service) ReconcileNotification(ctx context.Context, n *payfast.Notification) error {
	repos := s.repos.WithContext(ctx)

	ledgerRow := ledgerRowFrom(n, s.now())

	if !n.Completed() {
		// Still observed in the ledger so operators can see repeated
		// CANCELLED/FAILED notifications, but no entry state changes.
		return s.withRetry(ctx, func() error {
			if _, err := repos.Ledger.InsertIfNotExists(ledgerRow); err != nil {
				return err
			}
			return repos.Audit.Append(&models.AuditLog{
				Action: models.AUDIT_WEBHOOK_IGNORED,
				Actor:  "payfast",
				Target: n.PaymentReference,
				Detail: auditDetail(map[string]interface{}{"status": n.PaymentStatus}),
			})
		})
	}

	cls := payfast.ClassifyReference(n.PaymentReference)
	if cls.Kind == payfast.KindUnknown {
		// Acknowledge to stop replay storms; an operator works the log.
		return s.withRetry(ctx, func() error {
			return repos.Notification.Append(&models.FailedNotification{
				ErrorSummary: fmt.Sprintf("unknown payment reference %q", n.PaymentReference),
				Payload:      n.Raw,
			})
		})
	}

	var (
		firstDelivery  bool
		completedEntry *models.RaceEntry
		lateSynthesis  bool
		paidRental     *models.PoolEngineRental
	)

	err := s.withRetry(ctx, func() error {
		firstDelivery, completedEntry, lateSynthesis, paidRental = false, nil, false, nil
		return repos.Transaction(func(tx *repository.Repositories) error {
			created, txErr := tx.Ledger.InsertIfNotExists(ledgerRow)
			if txErr != nil {
				return txErr
			}
			if !created {
				// Duplicate delivery of a pf_payment_id already processed.
				return nil
			}
			firstDelivery = true

			switch cls.Kind {
			case payfast.KindRace:
				return s.reconcileRace(tx, n, cls.Race, &completedEntry, &lateSynthesis)
			case payfast.KindPool:
				return s.reconcilePool(tx, n, cls.Pool, &paidRental)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	if !firstDelivery {
		return nil
	}

	// Race confirmations were already mailed at initiation; only pool rentals
	// get a confirmation here.
	if paidRental != nil {
		if driver, dErr := repos.Driver.GetByDriverID(paidRental.DriverID); dErr == nil {
			s.mailq.Enqueue(mail.NewPoolRentalConfirmation(driver, paidRental))
			s.mailq.NotifyAdmin(fmt.Sprintf("pool rental paid: %s %s by %s",
				paidRental.ChampionshipClass, paidRental.RentalType, driver.FullName()))
		} else {
			log.Errorf("[Entry] pool rental for unknown driver %s: %v", paidRental.DriverID, dErr)
		}
	}
	if lateSynthesis {
		s.mailq.NotifyAdmin(fmt.Sprintf("late webhook synthesised entry for %s, needs enrichment", n.PaymentReference))
	}
	if completedEntry != nil {
		log.Infof("[Entry] %s completed via webhook %s", completedEntry.EntryID, n.PfPaymentID)
	}
	return nil
}

func (s *Service) reconcileRace(tx *repository.Repositories, n *payfast.Notification, ref *payfast.RaceReference, completed **models.RaceEntry, late *bool) error {
	now := s.now()

	stored, updated, err := tx.Entry.CompleteEntry(n.PaymentReference, n.PfPaymentID, n.AmountGross, now)
	if err != nil {
		return err
	}
	if updated {
		*completed = stored
		if err := tx.Driver.UpdateEntryFlags(ref.DriverID, models.NEXT_RACE_CONFIRMED, nil); err != nil {
			return err
		}
		return tx.Audit.Append(&models.AuditLog{
			Action: models.AUDIT_ENTRY_COMPLETED,
			Actor:  "payfast",
			Target: n.PaymentReference,
			Detail: auditDetail(map[string]interface{}{
				"entry_id":      stored.EntryID,
				"pf_payment_id": n.PfPaymentID,
				"amount":        n.AmountGross,
			}),
		})
	}

	// No pending row flipped. Either the row is already terminal (admin got
	// there first) or it never existed (webhook beat initiation, or the
	// initiation write was lost).
	existing, err := tx.Entry.GetByReference(n.PaymentReference)
	if err == nil {
		if existing.IsTerminalPayment() {
			return nil
		}
		return fmt.Errorf("entry %s in unexpected state %s/%s for completed webhook",
			existing.EntryID, existing.PaymentStatus, existing.EntryStatus)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	entryID, err := ident.NewEntryID()
	if err != nil {
		return err
	}
	synth := &models.RaceEntry{
		EntryID:          entryID,
		DriverID:         ref.DriverID,
		EventID:          ref.EventID,
		AmountPaid:       n.AmountGross,
		PaymentReference: n.PaymentReference,
		PaymentStatus:    models.PAYMENT_COMPLETED,
		EntryStatus:      models.ENTRY_CONFIRMED,
		PfPaymentID:      n.PfPaymentID,
		PayerEmail:       n.PayerEmail,
		PayerName:        strings.TrimSpace(n.PayerFirstName + " " + n.PayerLastName),
		CompletedAt:      &now,
	}
	synth.SetItems(nil)

	if err := tx.Entry.InsertCompleted(synth); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent reconcile; that write wins.
			return nil
		}
		return err
	}
	*late = true

	// Driver may be unknown to us (reference forged or from another system);
	// the flag update simply matches zero rows then.
	if err := tx.Driver.UpdateEntryFlags(ref.DriverID, models.NEXT_RACE_CONFIRMED, nil); err != nil {
		return err
	}
	return tx.Audit.Append(&models.AuditLog{
		Action: models.AUDIT_LATE_WEBHOOK,
		Actor:  "payfast",
		Target: n.PaymentReference,
		Detail: auditDetail(map[string]interface{}{
			"entry_id":      entryID,
			"pf_payment_id": n.PfPaymentID,
			"amount":        n.AmountGross,
			"note":          "synthesised from webhook, items unknown",
		}),
	})
}

func (s *Service) reconcilePool(tx *repository.Repositories, n *payfast.Notification, ref *payfast.PoolReference, paid **models.PoolEngineRental) error {
	now := s.now()
	rental := &models.PoolEngineRental{
		DriverID:          ref.DriverID,
		ChampionshipClass: ref.ClassTag,
		RentalType:        ref.RentalType,
		SeasonYear:        time.UnixMilli(ref.TimestampMs).Year(),
		PaymentReference:  n.PaymentReference,
		PaymentStatus:     models.PAYMENT_COMPLETED,
		PfPaymentID:       n.PfPaymentID,
		AmountPaid:        n.AmountGross,
		CompletedAt:       &now,
	}
	if err := tx.Rental.Upsert(rental); err != nil {
		return err
	}
	*paid = rental

	rented := true
	if err := tx.Driver.UpdateEntryFlags(ref.DriverID, "", &rented); err != nil {
		return err
	}
	return tx.Audit.Append(&models.AuditLog{
		Action: models.AUDIT_POOL_RENTAL_PAID,
		Actor:  "payfast",
		Target: n.PaymentReference,
		Detail: auditDetail(map[string]interface{}{
			"driver_id":     ref.DriverID,
			"class":         ref.ClassTag,
			"rental_type":   ref.RentalType,
			"pf_payment_id": n.PfPaymentID,
		}),
	})
}

// RecordFailedNotification preserves a webhook payload whose processing
// raised an error. Append-only; never fails the response to the gateway.
func (s *Service) RecordFailedNotification(summary, payload, headers string) {
	err := s.withRetry(context.Background(), func() error {
		return s.repos.Notification.Append(&models.FailedNotification{
			ErrorSummary: summary,
			Payload:      payload,
			Headers:      headers,
		})
	})
	if err != nil {
		log.Errorf("[Entry] failed to append failed notification: %v", err)
	}
}

// AdminReconcileInput describes a payment an operator knows completed even
// though no webhook arrived.
type AdminReconcileInput struct {
	PaymentReference string
	PayerEmail       string
	PayerFirstName   string
	PayerLastName    string
	AmountCents      int64
	PfPaymentID      string
	Actor            string
}

// AdminReconcile upserts the entry (or pool rental) exactly as if a verified
// webhook had just arrived. Applying it N times, or racing it against the
// real webhook, converges on the same terminal state.
func (s *Service) AdminReconcile(ctx context.Context, in AdminReconcileInput) error {
	pfID := in.PfPaymentID
	if pfID == "" {
		// Stable synthetic id so repeated invocations dedupe in the ledger.
		pfID = "MANUAL-" + in.PaymentReference
	}

	n := &payfast.Notification{
		PaymentReference: in.PaymentReference,
		PfPaymentID:      pfID,
		AmountGross:      in.AmountCents,
		PaymentStatus:    payfast.StatusComplete,
		PayerEmail:       in.PayerEmail,
		PayerFirstName:   in.PayerFirstName,
		PayerLastName:    in.PayerLastName,
		Raw:              "admin reconciliation",
	}

	if err := s.ReconcileNotification(ctx, n); err != nil {
		return err
	}

	return s.withRetry(ctx, func() error {
		return s.repos.WithContext(ctx).Audit.Append(&models.AuditLog{
			Action: models.AUDIT_ADMIN_RECONCILE,
			Actor:  in.Actor,
			Target: in.PaymentReference,
			Detail: auditDetail(map[string]interface{}{
				"pf_payment_id": pfID,
				"amount":        in.AmountCents,
			}),
		})
	})
}

// ManualEntryInput is an operator-created entry at an explicit payment state.
type ManualEntryInput struct {
	DriverID      string
	EventID       string
	RaceClass     string
	Items         []string
	PaymentStatus string
	DiscountCode  string
	SendEmail     bool
	Actor         string
}

// AdminManualEntry creates an entry the same way initiation does but inserted
// directly at the requested status. Registration-open checks do not apply to
// operators.
func (s *Service) AdminManualEntry(ctx context.Context, in ManualEntryInput) (*models.RaceEntry, error) {
	repos := s.repos.WithContext(ctx)

	switch in.PaymentStatus {
	case models.PAYMENT_PENDING, models.PAYMENT_COMPLETED, models.PAYMENT_FREE:
	default:
		return nil, fmt.Errorf("%w: manual entries must be pending, completed or free", ErrPaymentStateMismatch)
	}

	driver, event, discount, quote, err := s.loadAndPrice(repos, in.DriverID, InitiateInput{
		EventID:      in.EventID,
		RaceClass:    in.RaceClass,
		Items:        in.Items,
		DiscountCode: in.DiscountCode,
	})
	if err != nil {
		return nil, err
	}

	reference := payfast.NewRaceReference(event.EventID, driver.DriverID, s.now())
	newEntry, err := s.buildEntry(driver, event, InitiateInput{
		EventID:      in.EventID,
		RaceClass:    in.RaceClass,
		Items:        in.Items,
		DiscountCode: in.DiscountCode,
	}, quote.Total, reference, discount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	newEntry.PaymentStatus = in.PaymentStatus
	switch in.PaymentStatus {
	case models.PAYMENT_PENDING:
		newEntry.EntryStatus = models.ENTRY_PENDING_PAYMENT
	default:
		newEntry.EntryStatus = models.ENTRY_CONFIRMED
		newEntry.CompletedAt = &now
	}

	driverFlag := models.NEXT_RACE_PENDING
	if newEntry.EntryStatus == models.ENTRY_CONFIRMED {
		driverFlag = models.NEXT_RACE_CONFIRMED
	}

	err = s.withRetry(ctx, func() error {
		return repos.Transaction(func(tx *repository.Repositories) error {
			if txErr := tx.Entry.InsertCompleted(newEntry); txErr != nil {
				if errors.Is(txErr, gorm.ErrDuplicatedKey) {
					return ErrDuplicateEntry
				}
				return txErr
			}
			if txErr := tx.Driver.UpdateEntryFlags(driver.DriverID, driverFlag, nil); txErr != nil {
				return txErr
			}
			return tx.Audit.Append(&models.AuditLog{
				Action: models.AUDIT_ENTRY_MANUAL,
				Actor:  in.Actor,
				Target: reference,
				Detail: auditDetail(map[string]interface{}{
					"entry_id":       newEntry.EntryID,
					"payment_status": in.PaymentStatus,
					"items":          in.Items,
				}),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	if in.SendEmail {
		s.mailq.Enqueue(mail.NewRaceEntryConfirmation(driver, event, newEntry))
	}
	return newEntry, nil
}

// CancelEntry cancels an entry. When expectedPaymentStatus is non-empty the
// cancellation is conditional: a caller that believed the entry was still
// pending gets ErrPaymentStateMismatch if a webhook completed it first.
func (s *Service) CancelEntry(ctx context.Context, entryID, expectedPaymentStatus, actor string) (*models.RaceEntry, error) {
	repos := s.repos.WithContext(ctx)

	stored, err := repos.Entry.GetByEntryID(entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if expectedPaymentStatus != "" && stored.PaymentStatus != expectedPaymentStatus {
		return nil, ErrPaymentStateMismatch
	}
	if stored.EntryStatus == models.ENTRY_CANCELLED {
		return stored, nil
	}

	stored.EntryStatus = models.ENTRY_CANCELLED
	err = s.withRetry(ctx, func() error {
		return repos.Transaction(func(tx *repository.Repositories) error {
			if txErr := tx.Entry.Update(stored); txErr != nil {
				return txErr
			}
			if txErr := tx.Driver.UpdateEntryFlags(stored.DriverID, models.NEXT_RACE_NONE, nil); txErr != nil {
				return txErr
			}
			return tx.Audit.Append(&models.AuditLog{
				Action: models.AUDIT_ENTRY_CANCELLED,
				Actor:  actor,
				Target: stored.PaymentReference,
				Detail: auditDetail(map[string]interface{}{"entry_id": stored.EntryID}),
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// EditInput carries the fields an operator may change on an entry.
type EditInput struct {
	RaceClass *string
	Items     *[]string
	Actor     string
}

// EditEntry updates class and item selection. Existing ticket references are
// never regenerated; newly added items get fresh tickets, removed items get
// their reference cleared so the ticket/item pairing invariant holds.
func (s *Service) EditEntry(ctx context.Context, entryID string, in EditInput) (*models.RaceEntry, error) {
	repos := s.repos.WithContext(ctx)

	stored, err := repos.Entry.GetByEntryID(entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	if in.RaceClass != nil {
		stored.RaceClass = *in.RaceClass
	}

	if in.Items != nil {
		oldItems := stored.Items()
		newItems := *in.Items

		for _, tag := range newItems {
			if !ticket.KnownItem(tag) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownItem, tag)
			}
		}
		for _, tag := range oldItems {
			if !containsTag(newItems, tag) {
				stored.ClearTicketRef(tag)
			}
		}
		for _, tag := range newItems {
			if stored.TicketRef(tag) == nil {
				ref, mintErr := ticket.Mint(tag, stored.DriverID, stored.EventID)
				if mintErr != nil {
					return nil, mintErr
				}
				stored.SetTicketRef(tag, ref)
			}
		}
		stored.SetItems(newItems)

		// Only a still-unpaid entry gets repriced; paid amounts are history.
		if stored.PaymentStatus == models.PAYMENT_PENDING {
			if event, evErr := repos.Event.GetByEventID(stored.EventID); evErr == nil {
				quote, qErr := ComputePrice(event, newItems, nil)
				if qErr != nil {
					return nil, qErr
				}
				stored.AmountPaid = quote.Total
			}
		}
	}

	err = s.withRetry(ctx, func() error {
		return repos.Transaction(func(tx *repository.Repositories) error {
			if txErr := tx.Entry.Update(stored); txErr != nil {
				return txErr
			}
			return tx.Audit.Append(&models.AuditLog{
				Action: models.AUDIT_ENTRY_EDITED,
				Actor:  in.Actor,
				Target: stored.PaymentReference,
				Detail: auditDetail(map[string]interface{}{
					"entry_id": stored.EntryID,
					"items":    stored.Items(),
				}),
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// loadAndPrice resolves driver, event and discount, then prices the request.
func (s *Service) loadAndPrice(repos *repository.Repositories, driverID string, in InitiateInput) (*models.Driver, *models.Event, *models.DiscountCode, Quote, error) {
	driver, err := repos.Driver.GetByDriverID(driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, Quote{}, ErrDriverNotFound
		}
		return nil, nil, nil, Quote{}, err
	}

	event, err := repos.Event.GetByEventID(in.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, Quote{}, ErrEventNotFound
		}
		return nil, nil, nil, Quote{}, err
	}

	var discount *models.DiscountCode
	if in.DiscountCode != "" {
		discount, err = repos.Discount.GetActiveByCode(in.DiscountCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, nil, Quote{}, ErrDiscountInvalid
			}
			return nil, nil, nil, Quote{}, err
		}
	}

	quote, err := ComputePrice(event, in.Items, discount)
	if err != nil {
		return nil, nil, nil, Quote{}, err
	}
	return driver, event, discount, quote, nil
}

// buildEntry constructs the entry row shared by the initiation paths: fresh
// entry id, one minted ticket per selected item, canonical item list.
func (s *Service) buildEntry(driver *models.Driver, event *models.Event, in InitiateInput, amount int64, reference string, discount *models.DiscountCode) (*models.RaceEntry, error) {
	entryID, err := ident.NewEntryID()
	if err != nil {
		return nil, err
	}

	e := &models.RaceEntry{
		EntryID:          entryID,
		DriverID:         driver.DriverID,
		EventID:          event.EventID,
		RaceClass:        in.RaceClass,
		AmountPaid:       amount,
		PaymentReference: reference,
		PayerEmail:       driver.Email,
		PayerName:        driver.FullName(),
	}
	if discount != nil {
		e.TeamCode = discount.Code
	}
	e.SetItems(in.Items)

	for _, tag := range in.Items {
		ref, mintErr := ticket.Mint(tag, driver.DriverID, event.EventID)
		if mintErr != nil {
			return nil, mintErr
		}
		e.SetTicketRef(tag, ref)
	}
	return e, nil
}

func ledgerRowFrom(n *payfast.Notification, now time.Time) *models.PaymentLedger {
	row := &models.PaymentLedger{
		PfPaymentID:      n.PfPaymentID,
		PaymentReference: n.PaymentReference,
		AmountGross:      n.AmountGross,
		PaymentStatus:    n.PaymentStatus,
		PayerEmail:       n.PayerEmail,
		PayerFirstName:   n.PayerFirstName,
		PayerLastName:    n.PayerLastName,
		ItemName:         n.ItemName,
		RawPayload:       n.Raw,
	}
	if n.Completed() {
		row.CompletedAt = &now
	}
	return row
}

func itemSummary(raceClass string, items []string) string {
	if len(items) == 0 {
		return "Race entry, class " + raceClass
	}
	return "Race entry, class " + raceClass + ", incl " + strings.Join(items, ", ")
}

func containsTag(items []string, tag string) bool {
	for _, it := range items {
		if it == tag {
			return true
		}
	}
	return false
}

func auditDetail(kv map[string]interface{}) string {
	b, _ := json.Marshal(kv)
	return string(b)
}
