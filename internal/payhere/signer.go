// Package payhere implements the PayHere checkout and notification digest
// protocol.
package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// StatusSuccess is the gateway status code of a captured payment.
const StatusSuccess = "2"

// Signer computes and verifies PayHere digests for one merchant.
//
// The digest is MD5 because the gateway defines it that way; it must not be
// replaced unless the gateway contract changes too.
type Signer struct {
	MerchantID string
	secret     string
}

func NewSigner(merchantID, secret string) *Signer {
	return &Signer{MerchantID: merchantID, secret: secret}
}

// Configured reports whether the merchant secret is present.
func (s *Signer) Configured() bool {
	return s != nil && s.secret != ""
}

// CheckoutHash returns the digest sent with an outbound checkout request.
// The amount must already be formatted with two decimals, see FormatAmount.
func (s *Signer) CheckoutHash(merchantID, orderID, amount, currency string) (string, error) {
	return s.sign(merchantID, orderID, amount, currency)
}

// NotificationSignature recomputes the md5sig the gateway should have sent
// for n.
func (s *Signer) NotificationSignature(n Notification) (string, error) {
	return s.sign(n.MerchantID, n.OrderID, n.Amount, n.Currency, n.StatusCode)
}

// Verify checks n.Signature against the recomputed digest.
//
// Returns:
//   - error: ErrSecretNotConfigured when the secret is missing.
//   - error: *SignatureMismatchError (wrapping ErrSignatureMismatch) when the
//     digests differ.
func (s *Signer) Verify(n Notification) error {
	expected, err := s.NotificationSignature(n)
	if err != nil {
		return err
	}

	received := strings.ToUpper(strings.TrimSpace(n.Signature))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return &SignatureMismatchError{
			OrderID:  n.OrderID,
			Expected: expected,
			Received: received,
		}
	}

	return nil
}

func (s *Signer) sign(fields ...string) (string, error) {
	if !s.Configured() {
		return "", ErrSecretNotConfigured
	}

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f)
	}
	b.WriteString(upperMD5(s.secret))

	return upperMD5(b.String()), nil
}

func upperMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// FormatAmount renders minor units as a fixed two decimal amount, e.g.
// 150050 -> "1500.50".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
