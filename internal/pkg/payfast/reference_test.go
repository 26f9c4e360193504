package payfast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaceReferenceRoundTrip(t *testing.T) {
	at := time.UnixMilli(1765700000000)
	ref := NewRaceReference("EVTabc123", "DRVxyz789", at)
	assert.Equal(t, "RACE-EVTabc123-DRVxyz789-1765700000000", ref)

	cls := ClassifyReference(ref)
	require.Equal(t, KindRace, cls.Kind)
	require.NotNil(t, cls.Race)
	assert.Equal(t, "EVTabc123", cls.Race.EventID)
	assert.Equal(t, "DRVxyz789", cls.Race.DriverID)
	assert.Equal(t, int64(1765700000000), cls.Race.TimestampMs)
}

func TestPoolReferenceRoundTrip(t *testing.T) {
	at := time.UnixMilli(1765700000000)
	ref := NewPoolReference("MiniROK", "season", "DRVxyz789", at)
	assert.Equal(t, "POOL-MiniROK-season-DRVxyz789-1765700000000", ref)

	cls := ClassifyReference(ref)
	require.Equal(t, KindPool, cls.Kind)
	require.NotNil(t, cls.Pool)
	assert.Equal(t, "MiniROK", cls.Pool.ClassTag)
	assert.Equal(t, "season", cls.Pool.RentalType)
	assert.Equal(t, "DRVxyz789", cls.Pool.DriverID)
}

func TestReferenceFieldsAreSanitized(t *testing.T) {
	// Hyphens and spaces inside fields would break the grammar, so the
	// builders map them to underscores.
	ref := NewPoolReference("Mini ROK", "pool-engine", "DRV1", time.UnixMilli(1000))
	assert.Equal(t, "POOL-Mini_ROK-pool_engine-DRV1-1000", ref)
	assert.Equal(t, KindPool, ClassifyReference(ref).Kind)
}

func TestClassifyReferenceUnknown(t *testing.T) {
	for _, ref := range []string{
		"",
		"RACE",
		"RACE-EVT1-DRV1",                // missing timestamp
		"RACE-EVT1-DRV1-notatimestamp",  // bad timestamp
		"RACE-EVT1-DRV1-100-extra",      // too many parts
		"POOL-MiniROK-DRV1-100",         // pool with race arity
		"ORDER-12345",                   // foreign namespace
		"RACE--DRV1-100",                // empty field
		"race-EVT1-DRV1-100",            // prefix is case sensitive
	} {
		assert.Equal(t, KindUnknown, ClassifyReference(ref).Kind, ref)
	}
}

func TestBuildRedirectForm(t *testing.T) {
	a := testAdapter()

	form, err := a.BuildRedirectForm(PaymentRequest{
		PaymentReference: "RACE-EVT1-DRV1-1765700000000",
		AmountCents:      14900,
		ItemName:         "NATS Round 3",
		ItemDescription:  "Race entry, class Mini ROK",
		PayerEmail:       "thabo@example.com",
		PayerFirstName:   "Thabo",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.payfast.co.za/eng/process", form.URL)
	assert.Equal(t, "149.00", form.Fields["amount"])
	assert.Equal(t, "RACE-EVT1-DRV1-1765700000000", form.Fields["m_payment_id"])
	assert.Len(t, form.Fields["signature"], 32)
}

func TestBuildRedirectFormValidation(t *testing.T) {
	a := testAdapter()

	_, err := a.BuildRedirectForm(PaymentRequest{AmountCents: 100})
	assert.Error(t, err) // missing reference

	_, err = a.BuildRedirectForm(PaymentRequest{PaymentReference: "X", AmountCents: 0})
	assert.Error(t, err) // non-positive amount

	unconfigured := NewAdapter(Config{})
	_, err = unconfigured.BuildRedirectForm(PaymentRequest{PaymentReference: "X", AmountCents: 100})
	assert.Error(t, err)
}
