package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rokcupza/nats-registry/app/models"
)

func TestComputePriceBaseFeePlusItems(t *testing.T) {
	event := &models.Event{EntryFee: 9900}

	q, err := ComputePrice(event, []string{models.ITEM_ENGINE, models.ITEM_TYRES}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(9900), q.BaseFee)
	assert.Equal(t, int64(5000), q.ItemsTotal)
	assert.Equal(t, int64(14900), q.Total)
	assert.False(t, q.IsFreeEntry)
}

func TestComputePriceAllItems(t *testing.T) {
	event := &models.Event{EntryFee: 9900}

	q, err := ComputePrice(event, []string{
		models.ITEM_ENGINE, models.ITEM_TYRES, models.ITEM_TRANSPONDER, models.ITEM_FUEL,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9900+3000+2000+500+1500), q.Total)
}

func TestComputePriceRejectsUnknownAndDuplicateItems(t *testing.T) {
	event := &models.Event{EntryFee: 9900}

	_, err := ComputePrice(event, []string{"gearbox"}, nil)
	assert.ErrorIs(t, err, ErrUnknownItem)

	_, err = ComputePrice(event, []string{models.ITEM_ENGINE, models.ITEM_ENGINE}, nil)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestComputePriceDiscountAppliedLast(t *testing.T) {
	event := &models.Event{EntryFee: 10000}
	half := &models.DiscountCode{DiscountType: models.DISCOUNT_PERCENT, DiscountValue: 50}

	q, err := ComputePrice(event, []string{models.ITEM_TYRES}, half)
	require.NoError(t, err)
	// (10000 + 2000) / 2, not 10000/2 + 2000.
	assert.Equal(t, int64(6000), q.Total)
	assert.False(t, q.IsFreeEntry)
}

func TestComputePriceFixedDiscountClampsAtZero(t *testing.T) {
	event := &models.Event{EntryFee: 1000}
	big := &models.DiscountCode{DiscountType: models.DISCOUNT_FIXED, DiscountValue: 5000}

	q, err := ComputePrice(event, nil, big)
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.Total)
	// A zero total alone does not make a free entry.
	assert.False(t, q.IsFreeEntry)
}

func TestComputePriceFreeCode(t *testing.T) {
	event := &models.Event{EntryFee: 9900}
	free := &models.DiscountCode{DiscountType: models.DISCOUNT_FREE}

	q, err := ComputePrice(event, []string{models.ITEM_ENGINE}, free)
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.Total)
	assert.Equal(t, int64(12900), q.Subtotal)
	assert.True(t, q.IsFreeEntry)
}

func TestItemFee(t *testing.T) {
	fee, ok := ItemFee(models.ITEM_TRANSPONDER)
	assert.True(t, ok)
	assert.Equal(t, int64(500), fee)

	_, ok = ItemFee("gearbox")
	assert.False(t, ok)
}
