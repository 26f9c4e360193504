package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rokcupza/nats-registry/internal/pkg/barcode"
	"github.com/rokcupza/nats-registry/internal/pkg/env"
)

// InlineBarcode asks the sender to render a reference as a Code 39 PNG and
// attach it under the given CID, so templates can embed <img src="cid:...">.
type InlineBarcode struct {
	CID       string
	Reference string
}

// Message is one outbound templated email. Vars feed the named template;
// failures to deliver are logged by the queue and never surfaced to business
// callers.
type Message struct {
	To       string
	ToName   string
	Subject  string
	Template string
	Vars     map[string]interface{}
	Barcodes []InlineBarcode
}

// Sender delivers a single message. The production implementation talks to
// the transactional email provider; tests substitute a recorder.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const defaultAPIURL = "https://mandrillapp.com/api/1.0/messages/send.json"

// MandrillSender delivers mail through the Mandrill transactional API.
type MandrillSender struct {
	apiKey    string
	apiURL    string
	fromEmail string
	fromName  string
	client    *http.Client
	renderer  *Renderer
}

// NewMandrillSenderFromEnv builds the production sender from environment
// configuration and the email template directory.
func NewMandrillSenderFromEnv(renderer *Renderer) *MandrillSender {
	return &MandrillSender{
		apiKey:    env.GetEnv("MAILCHIMP_API_KEY", ""),
		apiURL:    env.GetEnv("MAILCHIMP_API_URL", defaultAPIURL),
		fromEmail: env.GetEnv("MAILCHIMP_FROM_EMAIL", ""),
		fromName:  env.GetEnv("MAILCHIMP_FROM_NAME", "ROK Cup NATS"),
		client:    &http.Client{Timeout: 15 * time.Second},
		renderer:  renderer,
	}
}

type mandrillImage struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type mandrillRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mandrillMessage struct {
	To        []mandrillRecipient `json:"to"`
	FromEmail string              `json:"from_email"`
	FromName  string              `json:"from_name,omitempty"`
	Subject   string              `json:"subject"`
	HTML      string              `json:"html"`
	Images    []mandrillImage     `json:"images,omitempty"`
}

type mandrillPayload struct {
	Key     string          `json:"key"`
	Message mandrillMessage `json:"message"`
}

type mandrillResult struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
	Reject string `json:"reject_reason"`
}

// Send renders the template, attaches barcode images and posts the message.
func (s *MandrillSender) Send(ctx context.Context, msg Message) error {
	if s.apiKey == "" {
		return fmt.Errorf("mail: MAILCHIMP_API_KEY not configured")
	}

	html, err := s.renderer.Render(msg.Template, msg.Vars)
	if err != nil {
		return fmt.Errorf("mail: render template %q: %w", msg.Template, err)
	}

	var images []mandrillImage
	for _, bc := range msg.Barcodes {
		png, err := barcode.RenderPNG(bc.Reference)
		if err != nil {
			return fmt.Errorf("mail: barcode for %q: %w", bc.Reference, err)
		}
		images = append(images, mandrillImage{
			Type:    "image/png",
			Name:    bc.CID,
			Content: base64.StdEncoding.EncodeToString(png),
		})
	}

	payload := mandrillPayload{
		Key: s.apiKey,
		Message: mandrillMessage{
			To:        []mandrillRecipient{{Email: msg.To, Name: msg.ToName}},
			FromEmail: s.fromEmail,
			FromName:  s.fromName,
			Subject:   msg.Subject,
			HTML:      html,
			Images:    images,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail: send to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mail: provider returned HTTP %d", resp.StatusCode)
	}

	var results []mandrillResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("mail: decode provider response: %w", err)
	}
	for _, r := range results {
		if r.Status == "rejected" || r.Status == "invalid" {
			return fmt.Errorf("mail: provider %s message for %s (%s)", r.Status, msg.To, r.Reject)
		}
	}
	return nil
}
