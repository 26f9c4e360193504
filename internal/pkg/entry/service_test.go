package entry

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rokcupza/nats-registry/app/models"
	"github.com/rokcupza/nats-registry/app/repository"
	"github.com/rokcupza/nats-registry/internal/pkg/mail"
	"github.com/rokcupza/nats-registry/internal/pkg/payfast"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Driver{},
		&models.Event{},
		&models.RaceEntry{},
		&models.PoolEngineRental{},
		&models.PaymentLedger{},
		&models.FailedNotification{},
		&models.AuditLog{},
		&models.DiscountCode{},
	))
	return db
}

type testEnv struct {
	svc   *Service
	repos *repository.Repositories
	mailq *mail.Queue
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()

	repos := repository.NewRepositories(newTestDB(t))
	gateway := payfast.NewAdapter(payfast.Config{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		ProcessURL:  "https://sandbox.payfast.co.za/eng/process",
		NotifyURL:   "https://registry.test/api/payfast/notify",
	})
	mailq := mail.NewQueue(nil, "admin@example.com")

	svc := NewService(repos, gateway, mailq)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC) }

	return &testEnv{svc: svc, repos: repos, mailq: mailq}
}

func seedDriver(t *testing.T, repos *repository.Repositories) *models.Driver {
	t.Helper()

	driver := &models.Driver{
		DriverID:  "DRVAAAAAAA1",
		FirstName: "Thabo",
		LastName:  "Nkosi",
		Email:     "thabo@example.com",
		RaceClass: "Mini ROK",
		Status:    models.DRIVER_STATUS_ACTIVE,
	}
	require.NoError(t, driver.SetPassword("super-secret"))
	require.NoError(t, repos.Driver.Create(driver))
	return driver
}

func seedEvent(t *testing.T, repos *repository.Repositories, fee int64) *models.Event {
	t.Helper()

	event := &models.Event{
		EventID:          "EVTAAAAAAA1",
		Name:             "NATS Round 3 Zwartkops",
		Venue:            "Zwartkops Raceway",
		EventDate:        time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC),
		EntryFee:         fee,
		RegistrationOpen: true,
	}
	require.NoError(t, repos.Event.Create(event))
	return event
}

func TestInitiatePaidEntryPricesAndCreatesPending(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{
		EventID:   event.EventID,
		RaceClass: "Mini ROK",
		Items:     []string{models.ITEM_ENGINE, models.ITEM_TYRES},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(14900), result.Quote.Total)
	assert.False(t, result.FreeEntry)
	require.NotNil(t, result.Form)
	assert.Equal(t, "149.00", result.Form.Fields["amount"])
	assert.Equal(t, result.Entry.PaymentReference, result.Form.Fields["m_payment_id"])
	assert.NotEmpty(t, result.Form.Fields["signature"])

	stored, err := te.repos.Entry.GetByReference(result.Entry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_PENDING, stored.PaymentStatus)
	assert.Equal(t, models.ENTRY_PENDING_PAYMENT, stored.EntryStatus)
	assert.Equal(t, int64(14900), stored.AmountPaid)

	// Tickets exist exactly for the selected items.
	assert.NotNil(t, stored.TicketEngineRef)
	assert.NotNil(t, stored.TicketTyresRef)
	assert.Nil(t, stored.TicketTransponderRef)
	assert.Nil(t, stored.TicketFuelRef)

	// One confirmation email queued.
	assert.Equal(t, 1, te.mailq.PendingJobs())
}

func TestInitiatePaidEntryRepeatedCallIsNoOp(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	in := InitiateInput{EventID: event.EventID, Items: []string{models.ITEM_ENGINE}}

	first, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, in)
	require.NoError(t, err)

	// Same frozen clock, so the synthesised reference collides and the
	// original row is returned unchanged.
	second, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, in)
	require.NoError(t, err)

	assert.Equal(t, first.Entry.EntryID, second.Entry.EntryID)
	assert.Equal(t, first.Entry.PaymentReference, second.Entry.PaymentReference)

	entries, err := te.repos.Entry.ListByDriver(driver.DriverID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// The retry queues no second confirmation email.
	assert.Equal(t, 1, te.mailq.PendingJobs())
}

func TestInitiatePaidEntryRegistrationClosed(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)
	event.RegistrationOpen = false
	require.NoError(t, te.repos.Event.Update(event))

	_, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{EventID: event.EventID})
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestInitiatePaidEntryUnknownItem(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	_, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{
		EventID: event.EventID,
		Items:   []string{"gearbox"},
	})
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestFreeEntryWithFreeCode(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)
	require.NoError(t, te.repos.Discount.Create(&models.DiscountCode{
		Code: "TEAM-FREE", DiscountType: models.DISCOUNT_FREE, IsActive: true,
	}))

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{
		EventID:      event.EventID,
		Items:        []string{models.ITEM_ENGINE},
		DiscountCode: "TEAM-FREE",
	})
	require.NoError(t, err)

	assert.True(t, result.FreeEntry)
	assert.Nil(t, result.Form)
	assert.Equal(t, models.PAYMENT_FREE, result.Entry.PaymentStatus)
	assert.Equal(t, models.ENTRY_CONFIRMED, result.Entry.EntryStatus)
	require.NotNil(t, result.Entry.CompletedAt)
	assert.NotNil(t, result.Entry.TicketEngineRef)
}

func TestFreeEntryRejectsNonFreeCode(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)
	require.NoError(t, te.repos.Discount.Create(&models.DiscountCode{
		Code: "HALF", DiscountType: models.DISCOUNT_PERCENT, DiscountValue: 50, IsActive: true,
	}))

	_, err := te.svc.CompleteFreeEntry(context.Background(), driver.DriverID, InitiateInput{
		EventID:      event.EventID,
		DiscountCode: "HALF",
	})
	assert.ErrorIs(t, err, ErrNotFreeEntry)
}

func completedNotification(ref, pfID string, amount int64) *payfast.Notification {
	return &payfast.Notification{
		PaymentReference: ref,
		PfPaymentID:      pfID,
		AmountGross:      amount,
		PaymentStatus:    payfast.StatusComplete,
		PayerEmail:       "thabo@example.com",
		PayerFirstName:   "Thabo",
		PayerLastName:    "Nkosi",
		Raw:              "m_payment_id=" + ref,
	}
}

func TestWebhookCompletesPendingEntry(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{
		EventID: event.EventID,
		Items:   []string{models.ITEM_ENGINE},
	})
	require.NoError(t, err)

	n := completedNotification(result.Entry.PaymentReference, "PF100001", 12900)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	stored, err := te.repos.Entry.GetByReference(result.Entry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_COMPLETED, stored.PaymentStatus)
	assert.Equal(t, models.ENTRY_CONFIRMED, stored.EntryStatus)
	assert.Equal(t, "PF100001", stored.PfPaymentID)
	require.NotNil(t, stored.CompletedAt)

	updated, err := te.repos.Driver.GetByDriverID(driver.DriverID)
	require.NoError(t, err)
	assert.Equal(t, models.NEXT_RACE_CONFIRMED, updated.NextRaceEntryStatus)

	row, err := te.repos.Ledger.GetByPfPaymentID("PF100001")
	require.NoError(t, err)
	assert.Equal(t, result.Entry.PaymentReference, row.PaymentReference)
}

func TestWebhookDuplicateDeliveryIsNoOp(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{EventID: event.EventID})
	require.NoError(t, err)

	n := completedNotification(result.Entry.PaymentReference, "PF100002", 9900)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	var ledgerCount int64
	require.NoError(t, repositoryDB(te.repos).Model(&models.PaymentLedger{}).Count(&ledgerCount).Error)
	assert.Equal(t, int64(1), ledgerCount)

	stored, err := te.repos.Entry.GetByReference(result.Entry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_COMPLETED, stored.PaymentStatus)
}

func TestWebhookNonCompleteStatusLeavesEntryPending(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{EventID: event.EventID})
	require.NoError(t, err)

	n := completedNotification(result.Entry.PaymentReference, "PF100003", 9900)
	n.PaymentStatus = "CANCELLED"
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	stored, err := te.repos.Entry.GetByReference(result.Entry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_PENDING, stored.PaymentStatus)

	// Still observed in the ledger.
	_, err = te.repos.Ledger.GetByPfPaymentID("PF100003")
	assert.NoError(t, err)
}

func TestWebhookWithoutPendingEntrySynthesisesRow(t *testing.T) {
	te := newTestService(t)
	seedDriver(t, te.repos)
	seedEvent(t, te.repos, 9900)

	ref := payfast.NewRaceReference("EVTAAAAAAA1", "DRVAAAAAAA1", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	n := completedNotification(ref, "PF100004", 9900)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	stored, err := te.repos.Entry.GetByReference(ref)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_COMPLETED, stored.PaymentStatus)
	assert.Equal(t, models.ENTRY_CONFIRMED, stored.EntryStatus)
	assert.Empty(t, stored.Items())
	assert.Nil(t, stored.TicketEngineRef)

	logs, err := te.repos.Audit.ListByTarget(ref)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, models.AUDIT_LATE_WEBHOOK, logs[len(logs)-1].Action)
}

func TestWebhookUnknownReferenceGoesToFailedLog(t *testing.T) {
	te := newTestService(t)

	n := completedNotification("BOGUS-REF", "PF100005", 500)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	failures, err := te.repos.Notification.List(0, 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].ErrorSummary, "BOGUS-REF")
}

func TestWebhookPoolRentalUpsertsAndFlagsDriver(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ref := payfast.NewPoolReference("MiniROK", "season", driver.DriverID, at)
	n := completedNotification(ref, "PF100006", 250000)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	rental, err := te.repos.Rental.GetByKey(driver.DriverID, "MiniROK", "season", 2026)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_COMPLETED, rental.PaymentStatus)
	assert.Equal(t, int64(250000), rental.AmountPaid)

	updated, err := te.repos.Driver.GetByDriverID(driver.DriverID)
	require.NoError(t, err)
	assert.True(t, updated.SeasonEngineRental)

	// Second webhook with a new gateway id updates the same row.
	n2 := completedNotification(ref, "PF100007", 250000)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n2))

	rentals, err := te.repos.Rental.ListByDriver(driver.DriverID)
	require.NoError(t, err)
	assert.Len(t, rentals, 1)
}

func TestAdminReconcileMatchesWebhookResult(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{EventID: event.EventID})
	require.NoError(t, err)

	in := AdminReconcileInput{
		PaymentReference: result.Entry.PaymentReference,
		AmountCents:      9900,
		Actor:            "race-office",
	}
	require.NoError(t, te.svc.AdminReconcile(context.Background(), in))

	stored, err := te.repos.Entry.GetByReference(result.Entry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_COMPLETED, stored.PaymentStatus)
	assert.Equal(t, "MANUAL-"+result.Entry.PaymentReference, stored.PfPaymentID)

	// Re-applying N times converges on the same state.
	require.NoError(t, te.svc.AdminReconcile(context.Background(), in))
	require.NoError(t, te.svc.AdminReconcile(context.Background(), in))

	var ledgerCount int64
	require.NoError(t, repositoryDB(te.repos).Model(&models.PaymentLedger{}).Count(&ledgerCount).Error)
	assert.Equal(t, int64(1), ledgerCount)
}

func TestAdminReconcileThenLateWebhookIsAbsorbed(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{EventID: event.EventID})
	require.NoError(t, err)

	require.NoError(t, te.svc.AdminReconcile(context.Background(), AdminReconcileInput{
		PaymentReference: result.Entry.PaymentReference,
		AmountCents:      9900,
		Actor:            "race-office",
	}))

	// The real webhook arrives afterwards with its own gateway id. The entry
	// is already terminal; the delivery lands in the ledger and changes
	// nothing else.
	n := completedNotification(result.Entry.PaymentReference, "PF100008", 9900)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	stored, err := te.repos.Entry.GetByReference(result.Entry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_COMPLETED, stored.PaymentStatus)
	assert.Equal(t, "MANUAL-"+result.Entry.PaymentReference, stored.PfPaymentID)

	entries, err := te.repos.Entry.ListByDriver(driver.DriverID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAdminManualEntryCompleted(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	created, err := te.svc.AdminManualEntry(context.Background(), ManualEntryInput{
		DriverID:      driver.DriverID,
		EventID:       event.EventID,
		Items:         []string{models.ITEM_FUEL},
		PaymentStatus: models.PAYMENT_COMPLETED,
		Actor:         "race-office",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ENTRY_CONFIRMED, created.EntryStatus)
	require.NotNil(t, created.CompletedAt)
	assert.NotNil(t, created.TicketFuelRef)
}

func TestAdminManualEntryRejectsBadStatus(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	_, err := te.svc.AdminManualEntry(context.Background(), ManualEntryInput{
		DriverID:      driver.DriverID,
		EventID:       event.EventID,
		PaymentStatus: "refunded",
	})
	assert.ErrorIs(t, err, ErrPaymentStateMismatch)
}

func TestCancelEntryConditionalOnPaymentState(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{EventID: event.EventID})
	require.NoError(t, err)

	// Webhook completes the entry while the operator still sees it pending.
	n := completedNotification(result.Entry.PaymentReference, "PF100009", 9900)
	require.NoError(t, te.svc.ReconcileNotification(context.Background(), n))

	_, err = te.svc.CancelEntry(context.Background(), result.Entry.EntryID, models.PAYMENT_PENDING, "race-office")
	assert.ErrorIs(t, err, ErrPaymentStateMismatch)

	// Unconditional cancel succeeds and is idempotent.
	cancelled, err := te.svc.CancelEntry(context.Background(), result.Entry.EntryID, "", "race-office")
	require.NoError(t, err)
	assert.Equal(t, models.ENTRY_CANCELLED, cancelled.EntryStatus)

	again, err := te.svc.CancelEntry(context.Background(), result.Entry.EntryID, "", "race-office")
	require.NoError(t, err)
	assert.Equal(t, models.ENTRY_CANCELLED, again.EntryStatus)
}

func TestEditEntryAdjustsItemsAndTickets(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{
		EventID: event.EventID,
		Items:   []string{models.ITEM_ENGINE, models.ITEM_TYRES},
	})
	require.NoError(t, err)
	originalEngineRef := *result.Entry.TicketEngineRef

	newItems := []string{models.ITEM_ENGINE, models.ITEM_FUEL}
	updated, err := te.svc.EditEntry(context.Background(), result.Entry.EntryID, EditInput{
		Items: &newItems,
		Actor: "race-office",
	})
	require.NoError(t, err)

	// Kept item keeps its reference, removed item loses it, added item gets
	// a fresh one.
	require.NotNil(t, updated.TicketEngineRef)
	assert.Equal(t, originalEngineRef, *updated.TicketEngineRef)
	assert.Nil(t, updated.TicketTyresRef)
	assert.NotNil(t, updated.TicketFuelRef)
	assert.ElementsMatch(t, newItems, updated.Items())

	// Still pending, so the amount reprices: 9900 + 3000 + 1500.
	assert.Equal(t, int64(14400), updated.AmountPaid)
}

func TestCancelStalePendingEntries(t *testing.T) {
	te := newTestService(t)
	driver := seedDriver(t, te.repos)
	event := seedEvent(t, te.repos, 9900)

	result, err := te.svc.InitiatePaidEntry(context.Background(), driver.DriverID, InitiateInput{EventID: event.EventID})
	require.NoError(t, err)

	n, err := te.repos.Entry.CancelStalePending(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := te.repos.Entry.GetByEntryID(result.Entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_FAILED, stored.PaymentStatus)
	assert.Equal(t, models.ENTRY_CANCELLED, stored.EntryStatus)

	// Already-cancelled rows are not matched again.
	n, err = te.repos.Entry.CancelStalePending(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

// repositoryDB exposes the underlying handle for count assertions.
func repositoryDB(repos *repository.Repositories) *gorm.DB {
	return repos.DB()
}
