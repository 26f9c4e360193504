package pdfexport

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/rokcupza/nats-registry/app/models"
	"github.com/rokcupza/nats-registry/internal/pkg/barcode"
)

// ticketRow pairs an item label with its minted reference for rendering.
type ticketRow struct {
	label string
	ref   string
}

// EntryList renders the paddock sheet for an event: one block per entry with
// driver, class, payment state and a scannable Code 39 barcode per rented
// item. Cancelled entries are included and marked; race control wants to see
// them on the sheet rather than wonder where a driver went.
func EntryList(event *models.Event, entries []models.RaceEntry, drivers map[string]*models.Driver) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Race entries: %s", event.Name), false)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, fmt.Sprintf("Race entries: %s", event.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s, %s", event.Venue, event.EventDate.Format("2 January 2006")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s, %d entries", time.Now().Format("2006-01-02 15:04"), len(entries)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for i := range entries {
		entry := &entries[i]
		if err := renderEntry(pdf, entry, drivers[entry.DriverID]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render entry list pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderEntry(pdf *fpdf.Fpdf, entry *models.RaceEntry, driver *models.Driver) error {
	tickets := collectTickets(entry)

	// Keep an entry block on one page; a split barcode scans as garbage.
	blockHeight := 18.0 + float64(len(tickets))*16.0
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+blockHeight > pageHeight-bottom {
		pdf.AddPage()
	}

	name := entry.PayerName
	raceNumber := ""
	if driver != nil {
		name = driver.FullName()
		raceNumber = driver.RaceNumber
	}

	pdf.SetFont("Helvetica", "B", 11)
	header := name
	if raceNumber != "" {
		header = fmt.Sprintf("#%s %s", raceNumber, name)
	}
	if entry.RaceClass != "" {
		header += "  -  " + entry.RaceClass
	}
	pdf.CellFormat(0, 6, header, "T", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	status := fmt.Sprintf("%s / %s", entry.PaymentStatus, entry.EntryStatus)
	if entry.EntryStatus == models.ENTRY_CANCELLED {
		pdf.SetTextColor(200, 30, 30)
		status += "  (CANCELLED)"
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("%s   %s   R%d.%02d", entry.PaymentReference, status, entry.AmountPaid/100, entry.AmountPaid%100), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	for _, t := range tickets {
		if err := renderTicket(pdf, t); err != nil {
			return err
		}
	}
	pdf.Ln(2)
	return nil
}

func renderTicket(pdf *fpdf.Fpdf, t ticketRow) error {
	png, err := barcode.RenderPNGSized(t.ref, 720, 160)
	if err != nil {
		return fmt.Errorf("barcode for %s: %w", t.ref, err)
	}

	// Image names must be unique per document; the reference is.
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(t.ref, opts, bytes.NewReader(png))

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(28, 12, t.label, "", 0, "L", false, 0, "")
	x, y := pdf.GetXY()
	pdf.ImageOptions(t.ref, x, y, 72, 12, false, opts, 0, "")
	pdf.SetXY(x+76, y)
	pdf.CellFormat(0, 12, t.ref, "", 1, "L", false, 0, "")
	return nil
}

func collectTickets(entry *models.RaceEntry) []ticketRow {
	var rows []ticketRow
	for _, item := range []struct {
		tag   string
		label string
	}{
		{models.ITEM_ENGINE, "Engine"},
		{models.ITEM_TYRES, "Tyres"},
		{models.ITEM_TRANSPONDER, "Transponder"},
		{models.ITEM_FUEL, "Fuel"},
	} {
		if ref := entry.TicketRef(item.tag); ref != nil {
			rows = append(rows, ticketRow{label: item.label, ref: *ref})
		}
	}
	return rows
}
