package mail

import (
	"fmt"

	"github.com/rokcupza/nats-registry/app/models"
)

// NewRegistrationConfirmation is sent after a driver registers a profile.
func NewRegistrationConfirmation(driver *models.Driver) Message {
	return Message{
		To:       driver.Email,
		ToName:   driver.FullName(),
		Subject:  "Welcome to the ROK Cup South Africa NATS",
		Template: TemplateRegistrationConfirmation,
		Vars: map[string]interface{}{
			"FirstName":  driver.FirstName,
			"RaceClass":  driver.RaceClass,
			"RaceNumber": driver.RaceNumber,
		},
	}
}

// NewPasswordReset carries the reset link for the password reset flow.
func NewPasswordReset(email, resetLink string) Message {
	return Message{
		To:       email,
		Subject:  "Reset Your NATS Driver Registry Password",
		Template: TemplatePasswordReset,
		Vars: map[string]interface{}{
			"ResetLink": resetLink,
		},
	}
}

// NewRaceEntryConfirmation is the driver's receipt for a race entry. It is
// dispatched at initiation time so it survives webhook loss; ticket sections
// render only for items actually selected, each with an inline barcode.
func NewRaceEntryConfirmation(driver *models.Driver, event *models.Event, entry *models.RaceEntry) Message {
	vars := map[string]interface{}{
		"FirstName":        driver.FirstName,
		"EventName":        event.Name,
		"EventDate":        event.EventDate.Format("2 January 2006"),
		"Venue":            event.Venue,
		"RaceClass":        entry.RaceClass,
		"Amount":           formatRand(entry.AmountPaid),
		"PaymentReference": entry.PaymentReference,
	}

	var barcodes []InlineBarcode
	for tag, key := range map[string]string{
		models.ITEM_ENGINE:      "Engine",
		models.ITEM_TYRES:       "Tyres",
		models.ITEM_TRANSPONDER: "Transponder",
		models.ITEM_FUEL:        "Fuel",
	} {
		ref := entry.TicketRef(tag)
		if ref == nil {
			continue
		}
		cid := "barcode-" + tag
		vars["Ticket"+key+"Ref"] = *ref
		vars["Ticket"+key+"CID"] = cid
		barcodes = append(barcodes, InlineBarcode{CID: cid, Reference: *ref})
	}

	return Message{
		To:       driver.Email,
		ToName:   driver.FullName(),
		Subject:  fmt.Sprintf("Your NATS race entry: %s", event.Name),
		Template: TemplateRaceEntryConfirmation,
		Vars:     vars,
		Barcodes: barcodes,
	}
}

// NewPoolRentalConfirmation confirms a season pool-engine rental purchase.
func NewPoolRentalConfirmation(driver *models.Driver, rental *models.PoolEngineRental) Message {
	return Message{
		To:       driver.Email,
		ToName:   driver.FullName(),
		Subject:  "Your NATS pool engine rental",
		Template: TemplatePoolRentalConfirmation,
		Vars: map[string]interface{}{
			"FirstName":        driver.FirstName,
			"Class":            rental.ChampionshipClass,
			"RentalType":       rental.RentalType,
			"SeasonYear":       rental.SeasonYear,
			"Amount":           formatRand(rental.AmountPaid),
			"PaymentReference": rental.PaymentReference,
		},
	}
}

func formatRand(cents int64) string {
	return fmt.Sprintf("R%d.%02d", cents/100, cents%100)
}
