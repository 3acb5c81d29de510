package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

const SignatureHeader = "X-Razorpay-Signature"

var (
	ErrMissingSignature = errors.New("razorpay: signature is missing")
	ErrInvalidSignature = errors.New("razorpay: signature mismatch")
	ErrMissingSecret    = errors.New("razorpay: webhook secret is not configured")
)

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a webhook signature with a constant-time comparison.
func VerifySignature(secret string, payload []byte, signature string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if signature == "" {
		return ErrMissingSignature
	}
	expected := Sign(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
