package mail

import (
	"bytes"
	"fmt"

	"github.com/gofiber/template/html/v2"
)

// Template names recognised by the mailer. Files live under views/emails.
const (
	TemplateRegistrationConfirmation = "registration-confirmation"
	TemplatePasswordReset            = "password-reset"
	TemplateRaceEntryConfirmation    = "race-entry-confirmation"
	TemplatePoolRentalConfirmation   = "pool-rental-confirmation"
	TemplateAdminActivitySummary     = "admin-activity-summary"
)

// Renderer loads the HTML email templates once and renders them by name with
// named placeholder substitution.
type Renderer struct {
	engine *html.Engine
}

// NewRenderer loads all templates from the given directory.
func NewRenderer(dir string) (*Renderer, error) {
	engine := html.New(dir, ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("mail: load templates from %s: %w", dir, err)
	}
	return &Renderer{engine: engine}, nil
}

// Render produces the HTML body for a named template.
func (r *Renderer) Render(name string, vars map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
