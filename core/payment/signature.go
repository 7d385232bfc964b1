package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// CheckoutResult is what the hosted checkout widget hands back after a payment.
type CheckoutResult struct {
	OrderID   string `json:"razorpay_order_id" form:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature" form:"razorpay_signature"`
	PlanID    string `json:"planId" form:"planId"`
}

// Sign computes the gateway signature of a checkout result: hex(HMAC-SHA256(secret, order_id|payment_id)).
func Sign(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature reports whether the checkout result was signed by the gateway.
func VerifySignature(secret string, res CheckoutResult) bool {
	if secret == "" || res.OrderID == "" || res.PaymentID == "" || res.Signature == "" {
		return false
	}
	expected := Sign(secret, res.OrderID, res.PaymentID)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(res.Signature)) == 1
}
