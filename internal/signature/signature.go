package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidSignature indicates an HMAC mismatch. It is terminal: callers
// must not retry, and must not mutate any state after seeing it.
var ErrInvalidSignature = errors.New("invalid signature")

// Sign computes the hex-encoded HMAC-SHA256 of message under secret.
func Sign(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest for message and compares it to candidate
// in constant time.
func Verify(secret, message []byte, candidate string) bool {
	expected := Sign(secret, message)
	return hmac.Equal([]byte(expected), []byte(candidate))
}

// PaymentMessage builds the signed message Razorpay uses for client-side
// payment confirmation: "{order_id}|{payment_id}". The field order and the
// literal pipe separator are part of the contract.
func PaymentMessage(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf("%s|%s", orderID, paymentID))
}
