package entry

import "errors"

// Error taxonomy of the entry coordinator. HTTP handlers map these onto the
// response envelope; the webhook path is the one place they are swallowed
// (into the failed-notification log) instead of surfaced.
var (
	ErrEventNotFound        = errors.New("event not found")
	ErrDriverNotFound       = errors.New("driver not found")
	ErrEntryNotFound        = errors.New("race entry not found")
	ErrRegistrationClosed   = errors.New("registration is closed for this event")
	ErrDuplicateEntry       = errors.New("race entry already exists")
	ErrDiscountInvalid      = errors.New("discount code is invalid or inactive")
	ErrPaymentStateMismatch = errors.New("payment state does not allow this transition")
	ErrUnknownItem          = errors.New("unknown entry item")
	ErrNotFreeEntry         = errors.New("discount does not reduce the total to zero")
)
