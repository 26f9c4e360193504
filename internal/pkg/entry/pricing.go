package entry

import (
	"fmt"

	"github.com/rokcupza/nats-registry/app/models"
)

// Per-item rental fees in cents. The event's entry fee is the base; item
// fees are championship-wide.
var itemFees = map[string]int64{
	models.ITEM_ENGINE:      3000,
	models.ITEM_TYRES:       2000,
	models.ITEM_TRANSPONDER: 500,
	models.ITEM_FUEL:        1500,
}

// Quote is the priced breakdown of an entry before payment.
type Quote struct {
	BaseFee     int64
	ItemsTotal  int64
	Subtotal    int64
	Total       int64
	IsFreeEntry bool
}

// ComputePrice prices an entry: event base fee plus the selected items, with
// the discount applied last. IsFreeEntry is set only when a free-type code
// brought the total to zero; a total that merely computes to zero does not
// bypass the gateway.
func ComputePrice(event *models.Event, items []string, discount *models.DiscountCode) (Quote, error) {
	q := Quote{BaseFee: event.EntryFee}

	seen := make(map[string]bool, len(items))
	for _, tag := range items {
		fee, ok := itemFees[tag]
		if !ok {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnknownItem, tag)
		}
		if seen[tag] {
			return Quote{}, fmt.Errorf("%w: %q selected twice", ErrUnknownItem, tag)
		}
		seen[tag] = true
		q.ItemsTotal += fee
	}

	q.Subtotal = q.BaseFee + q.ItemsTotal
	q.Total = q.Subtotal
	if discount != nil {
		q.Total = discount.Apply(q.Subtotal)
		q.IsFreeEntry = discount.DiscountType == models.DISCOUNT_FREE && q.Total == 0
	}
	return q, nil
}

// ItemFee returns the configured fee for a single item tag.
func ItemFee(tag string) (int64, bool) {
	fee, ok := itemFees[tag]
	return fee, ok
}
