package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a checkout callback's authenticity: HMAC-SHA256
// over "orderID|paymentID" with the key secret, hex-encoded, compared in
// constant time. This is the only authenticity check in the whole payment
// flow and must never be skipped.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
