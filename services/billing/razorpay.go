// razorpay.go — Razorpay order creation and payment signature verification.
//
// Verification is pure crypto and needs no network round-trip: Razorpay signs
// "order_id|payment_id" with the key secret, and we recompute the HMAC and
// compare in constant time.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderCreator abstracts the payment gateway for tests.
type OrderCreator interface {
	CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (string, error)
}

// RazorpayGateway implements OrderCreator against the live API.
type RazorpayGateway struct {
	client *razorpay.Client
	secret string
}

// NewRazorpayGateway reads RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET.
func NewRazorpayGateway() (*RazorpayGateway, error) {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	secret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID == "" || secret == "" {
		return nil, errors.New("billing: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
	}
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, secret),
		secret: secret,
	}, nil
}

// CreateOrder creates a Razorpay order and returns its id.
// amount is in paise.
func (g *RazorpayGateway) CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("billing: create order: %w", err)
	}
	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", errors.New("billing: order response missing id")
	}
	return id, nil
}

// Secret returns the key secret used for signature verification.
func (g *RazorpayGateway) Secret() string { return g.secret }

// VerifySignature checks a Razorpay payment signature:
// hex(HMAC-SHA256(order_id + "|" + payment_id, secret)).
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// receiptFor builds a gateway receipt id. Razorpay rejects receipts longer
// than 40 characters, so the user id is truncated.
func receiptFor(prefix, userID string) string {
	uid := userID
	if len(uid) > 8 {
		uid = uid[:8]
	}
	return fmt.Sprintf("%s_%s_%d", prefix, uid, time.Now().Unix())
}
