package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/rokcupza/nats-registry/internal/pkg/env"
)

// Config holds the merchant credentials and URLs for the hosted-redirect flow.
type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	ProcessURL  string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
	Sandbox     bool
}

// LoadConfig reads the PayFast configuration from the environment.
func LoadConfig() Config {
	sandbox := env.GetEnv("PAYFAST_SANDBOX", "true") == "true"
	processURL := "https://www.payfast.co.za/eng/process"
	if sandbox {
		processURL = "https://sandbox.payfast.co.za/eng/process"
	}
	return Config{
		MerchantID:  env.GetEnv("PAYFAST_MERCHANT_ID", ""),
		MerchantKey: env.GetEnv("PAYFAST_MERCHANT_KEY", ""),
		Passphrase:  env.GetEnv("PAYFAST_PASSPHRASE", ""),
		ProcessURL:  env.GetEnv("PAYFAST_PROCESS_URL", processURL),
		ReturnURL:   env.GetEnv("PAYFAST_RETURN_URL", ""),
		CancelURL:   env.GetEnv("PAYFAST_CANCEL_URL", ""),
		NotifyURL:   env.GetEnv("PAYFAST_NOTIFY_URL", ""),
		Sandbox:     sandbox,
	}
}

// PaymentRequest is the coordinator-side input for an outbound redirect.
type PaymentRequest struct {
	PaymentReference string
	AmountCents      int64
	ItemName         string
	ItemDescription  string
	PayerEmail       string
	PayerFirstName   string
}

// RedirectForm is everything the browser needs to POST to the gateway. The
// service never contacts the gateway itself.
type RedirectForm struct {
	URL    string            `json:"gateway_url"`
	Fields map[string]string `json:"fields"`
}

// Adapter is the single boundary at which externally-formatted gateway data
// becomes trusted.
type Adapter struct {
	cfg Config
}

// NewAdapter creates a gateway adapter with the given configuration.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// NewAdapterFromEnv creates an adapter configured from the environment.
func NewAdapterFromEnv() *Adapter {
	return NewAdapter(LoadConfig())
}

// fieldOrder is the gateway's prescribed parameter order. The signature is an
// MD5 over the fields in exactly this order, so it is not alphabetical.
var fieldOrder = []string{
	"merchant_id",
	"merchant_key",
	"return_url",
	"cancel_url",
	"notify_url",
	"name_first",
	"email_address",
	"m_payment_id",
	"amount",
	"item_name",
	"item_description",
}

// BuildRedirectForm assembles the signed form fields for the hosted redirect.
func (a *Adapter) BuildRedirectForm(req PaymentRequest) (*RedirectForm, error) {
	if a.cfg.MerchantID == "" || a.cfg.MerchantKey == "" {
		return nil, fmt.Errorf("payfast merchant credentials not configured")
	}
	if req.PaymentReference == "" {
		return nil, fmt.Errorf("payment reference is required")
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", req.AmountCents)
	}

	fields := map[string]string{
		"merchant_id":      a.cfg.MerchantID,
		"merchant_key":     a.cfg.MerchantKey,
		"return_url":       a.cfg.ReturnURL,
		"cancel_url":       a.cfg.CancelURL,
		"notify_url":       a.cfg.NotifyURL,
		"name_first":       req.PayerFirstName,
		"email_address":    req.PayerEmail,
		"m_payment_id":     req.PaymentReference,
		"amount":           FormatAmount(req.AmountCents),
		"item_name":        req.ItemName,
		"item_description": req.ItemDescription,
	}

	fields["signature"] = a.signOrdered(fieldOrder, fields)

	return &RedirectForm{URL: a.cfg.ProcessURL, Fields: fields}, nil
}

// signOrdered builds the gateway signature: urlencoded key=value pairs in the
// given order, empty values skipped, passphrase appended, MD5 hex digest.
func (a *Adapter) signOrdered(order []string, fields map[string]string) string {
	var parts []string
	for _, key := range order {
		val := fields[key]
		if val == "" {
			continue
		}
		parts = append(parts, key+"="+encodeValue(val))
	}
	if a.cfg.Passphrase != "" {
		parts = append(parts, "passphrase="+encodeValue(a.cfg.Passphrase))
	}

	sum := md5.Sum([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:])
}

// encodeValue urlencodes the way the gateway expects: spaces become "+" and
// hex escapes are uppercase.
func encodeValue(v string) string {
	enc := url.QueryEscape(v)
	var b strings.Builder
	for i := 0; i < len(enc); i++ {
		c := enc[i]
		if c == '%' && i+2 < len(enc) {
			b.WriteByte(c)
			b.WriteByte(upperHex(enc[i+1]))
			b.WriteByte(upperHex(enc[i+2]))
			i += 2
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func upperHex(c byte) byte {
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 'A'
	}
	return c
}

// FormatAmount renders cents as the "rand.cents" decimal the gateway expects.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
