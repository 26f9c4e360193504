package payfast

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrSignatureInvalid is returned when an inbound notification's signature
// does not verify. Nothing from such a payload may be trusted.
var ErrSignatureInvalid = errors.New("payfast: invalid ITN signature")

// Gateway payment status on completed notifications.
const StatusComplete = "COMPLETE"

// Notification is the normalised, trusted form of an inbound ITN payload.
type Notification struct {
	PaymentReference string
	PfPaymentID      string
	AmountGross      int64
	PaymentStatus    string
	PayerEmail       string
	PayerFirstName   string
	PayerLastName    string
	ItemName         string
	Raw              string
}

// Completed reports whether the gateway marked the payment as complete.
func (n *Notification) Completed() bool {
	return n.PaymentStatus == StatusComplete
}

// pair keeps the gateway's field ordering, which the signature depends on.
type pair struct {
	key   string
	value string
}

// VerifyAndParse checks the ITN signature over the raw form-encoded body and
// normalises the known fields. The signature is computed over the fields in
// the order the gateway sent them, excluding the signature field itself, with
// the passphrase appended.
func (a *Adapter) VerifyAndParse(rawBody []byte) (*Notification, error) {
	pairs, err := parseOrderedForm(string(rawBody))
	if err != nil {
		return nil, fmt.Errorf("payfast: malformed ITN body: %w", err)
	}

	got := ""
	var signable []string
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.key == "signature" {
			got = p.value
			continue
		}
		values[p.key] = p.value
		signable = append(signable, p.key+"="+encodeValue(p.value))
	}
	if a.cfg.Passphrase != "" {
		signable = append(signable, "passphrase="+encodeValue(a.cfg.Passphrase))
	}

	sum := md5.Sum([]byte(strings.Join(signable, "&")))
	want := hex.EncodeToString(sum[:])
	if got == "" || !hmac.Equal([]byte(want), []byte(strings.ToLower(got))) {
		return nil, ErrSignatureInvalid
	}

	amount, err := ParseAmount(values["amount_gross"])
	if err != nil {
		return nil, fmt.Errorf("payfast: bad amount_gross %q: %w", values["amount_gross"], err)
	}

	return &Notification{
		PaymentReference: values["m_payment_id"],
		PfPaymentID:      values["pf_payment_id"],
		AmountGross:      amount,
		PaymentStatus:    values["payment_status"],
		PayerEmail:       values["email_address"],
		PayerFirstName:   values["name_first"],
		PayerLastName:    values["name_last"],
		ItemName:         values["item_name"],
		Raw:              string(rawBody),
	}, nil
}

// parseOrderedForm decodes a form-encoded body without losing field order.
func parseOrderedForm(body string) ([]pair, error) {
	var pairs []pair
	for _, segment := range strings.Split(body, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{key: k, value: v})
	}
	if len(pairs) == 0 {
		return nil, errors.New("empty body")
	}
	return pairs, nil
}

// ParseAmount converts the gateway's "rand.cents" decimal into cents. Missing
// amounts parse as zero, which the coordinator treats as informational only.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	whole, frac, found := strings.Cut(s, ".")
	rands, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return rands * 100, nil
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	return rands*100 + cents, nil
}
