// otp.go — one-time codes for email verification and password reset.
//
// Codes are 6 digits, live for 5 minutes, and are single-use: verification
// deletes the key whether or not the attempt matched a fresh code elsewhere.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/cineverse/cineverse/internal/kvstore"
)

// OTP purposes. A code issued for one purpose never verifies for another.
const (
	PurposeRegistration  = "registration"
	PurposePasswordReset = "password-reset"
)

const otpTTL = 5 * time.Minute

// OTPManager issues and verifies one-time codes through the kvstore.
type OTPManager struct {
	store kvstore.Store
}

// NewOTPManager creates an OTPManager.
func NewOTPManager(store kvstore.Store) *OTPManager {
	return &OTPManager{store: store}
}

func otpKey(purpose, email string) string {
	return "otp:" + purpose + ":" + normalizeEmail(email)
}

// Generate creates and stores a fresh code, replacing any outstanding one
// for the same email and purpose.
func (m *OTPManager) Generate(ctx context.Context, purpose, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	if err := m.store.Set(ctx, otpKey(purpose, email), code, otpTTL); err != nil {
		return "", fmt.Errorf("auth: store otp: %w", err)
	}
	return code, nil
}

// Verify checks a code and consumes it on success. Expired, missing, or
// mismatched codes all report false with no error.
func (m *OTPManager) Verify(ctx context.Context, purpose, email, code string) (bool, error) {
	key := otpKey(purpose, email)
	stored, err := m.store.Get(ctx, key)
	if err == kvstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}

	// Single-use: a verified code can never be replayed.
	if err := m.store.Del(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}
