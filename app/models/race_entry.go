package models

import (
	"encoding/json"
	"time"
)

// Payment status of a race entry.
const (
	PAYMENT_PENDING   = "pending"
	PAYMENT_COMPLETED = "completed"
	PAYMENT_FREE      = "free"
	PAYMENT_FAILED    = "failed"
)

// Entry status of a race entry. Completed/Free payments imply confirmed.
const (
	ENTRY_PENDING_PAYMENT = "pending_payment"
	ENTRY_CONFIRMED       = "confirmed"
	ENTRY_CANCELLED       = "cancelled"
)

// Item tags a driver can add to an entry. Order is preserved as selected.
const (
	ITEM_ENGINE      = "engine"
	ITEM_TYRES       = "tyres"
	ITEM_TRANSPONDER = "transponder"
	ITEM_FUEL        = "fuel"
)

// RaceEntry is one driver's participation in one event, together with the
// rental items bought for it. The (driver_id, event_id, payment_reference)
// triple is unique; concurrent webhook retries and admin reconciliation
// serialise on that constraint plus the conditional update in the repository.
type RaceEntry struct {
	ID                   uint       `gorm:"primaryKey" json:"-"`
	EntryID              string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"entry_id"`
	DriverID             string     `gorm:"type:varchar(32);not null;index:ux_race_entries_driver_event_ref,unique,priority:1" json:"driver_id"`
	EventID              string     `gorm:"type:varchar(32);not null;index:ux_race_entries_driver_event_ref,unique,priority:2" json:"event_id"`
	RaceClass            string     `gorm:"type:varchar(50)" json:"race_class"`
	EntryItems           string     `gorm:"type:text" json:"-"`
	AmountPaid           int64      `gorm:"not null;default:0" json:"amount_paid"`
	PaymentReference     string     `gorm:"type:varchar(120);not null;index:ux_race_entries_driver_event_ref,unique,priority:3;index" json:"payment_reference"`
	PaymentStatus        string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	EntryStatus          string     `gorm:"type:varchar(20);not null;default:'pending_payment';index" json:"entry_status"`
	PfPaymentID          string     `gorm:"type:varchar(60);index" json:"pf_payment_id"`
	TicketEngineRef      *string    `gorm:"type:varchar(60)" json:"ticket_engine_ref"`
	TicketTyresRef       *string    `gorm:"type:varchar(60)" json:"ticket_tyres_ref"`
	TicketTransponderRef *string    `gorm:"type:varchar(60)" json:"ticket_transponder_ref"`
	TicketFuelRef        *string    `gorm:"type:varchar(60)" json:"ticket_fuel_ref"`
	TeamCode             string     `gorm:"type:varchar(50)" json:"team_code"`
	PayerEmail           string     `gorm:"type:varchar(200)" json:"payer_email"`
	PayerName            string     `gorm:"type:varchar(200)" json:"payer_name"`
	CompletedAt          *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Items decodes the canonical JSON array stored in EntryItems. Historic rows
// sometimes held a bare comma-separated string; both decode to the same slice.
func (r *RaceEntry) Items() []string {
	if r.EntryItems == "" {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(r.EntryItems), &items); err == nil {
		return items
	}
	// Legacy fallback: single tag stored without JSON quoting.
	return []string{r.EntryItems}
}

// SetItems stores the ordered item selection as a canonical JSON array.
func (r *RaceEntry) SetItems(items []string) {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	r.EntryItems = string(b)
}

// HasItem reports whether the given item tag was selected on this entry.
func (r *RaceEntry) HasItem(tag string) bool {
	for _, it := range r.Items() {
		if it == tag {
			return true
		}
	}
	return false
}

// TicketRef returns the minted ticket reference for an item tag, if any.
func (r *RaceEntry) TicketRef(tag string) *string {
	switch tag {
	case ITEM_ENGINE:
		return r.TicketEngineRef
	case ITEM_TYRES:
		return r.TicketTyresRef
	case ITEM_TRANSPONDER:
		return r.TicketTransponderRef
	case ITEM_FUEL:
		return r.TicketFuelRef
	}
	return nil
}

// SetTicketRef assigns the minted reference for an item tag.
func (r *RaceEntry) SetTicketRef(tag, ref string) {
	switch tag {
	case ITEM_ENGINE:
		r.TicketEngineRef = &ref
	case ITEM_TYRES:
		r.TicketTyresRef = &ref
	case ITEM_TRANSPONDER:
		r.TicketTransponderRef = &ref
	case ITEM_FUEL:
		r.TicketFuelRef = &ref
	}
}

// ClearTicketRef removes the minted reference for an item tag, used when an
// item is removed from the selection.
func (r *RaceEntry) ClearTicketRef(tag string) {
	switch tag {
	case ITEM_ENGINE:
		r.TicketEngineRef = nil
	case ITEM_TYRES:
		r.TicketTyresRef = nil
	case ITEM_TRANSPONDER:
		r.TicketTransponderRef = nil
	case ITEM_FUEL:
		r.TicketFuelRef = nil
	}
}

// IsTerminalPayment reports whether the payment can no longer transition.
func (r *RaceEntry) IsTerminalPayment() bool {
	return r.PaymentStatus == PAYMENT_COMPLETED || r.PaymentStatus == PAYMENT_FREE
}
