// Package email provides Elastic Email HTTP API integration for CineVerse
// transactional emails. Uses HTTP API v2 (not SMTP) — more reliable for
// programmatic sending. OTP codes are embedded in the body only; they are
// never logged by this package.
package email

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const elasticAPIURL = "https://api.elasticemail.com/v2/email/send"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// SendOTPEmail sends a 6-digit verification code. purpose is "registration"
// or "password-reset" and selects the subject line.
func SendOTPEmail(toEmail, otp, purpose string) error {
	subject := "Verify your CineVerse account"
	if purpose == "password-reset" {
		subject = "CineVerse password reset code"
	}
	body := fmt.Sprintf(`Hello,

Your CineVerse verification code is:

    %s

This code expires in 5 minutes and can be used once. Do not share it with
anyone. If you didn't request this code, you can safely ignore this email.

— The CineVerse Team`, otp)

	return send(toEmail, subject, body)
}

// SendReceiptEmail confirms a completed payment.
func SendReceiptEmail(toEmail, itemName string, amount int64, currency, paymentID string) error {
	subject := "Your CineVerse receipt"
	body := fmt.Sprintf(`Hello,

Thanks for your purchase!

    Item:       %s
    Amount:     %.2f %s
    Payment ID: %s

You can view your transactions any time from your account page.

— The CineVerse Team`, itemName, float64(amount)/100, currency, paymentID)

	return send(toEmail, subject, body)
}

// send posts one plain-text email through the Elastic Email v2 API.
// Requires ELASTIC_EMAIL_API_KEY; EMAIL_FROM overrides the default sender.
func send(to, subject, body string) error {
	apiKey := os.Getenv("ELASTIC_EMAIL_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("email: ELASTIC_EMAIL_API_KEY not set")
	}

	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "noreply@cineverse.app"
	}

	form := url.Values{}
	form.Set("apikey", apiKey)
	form.Set("from", from)
	form.Set("fromName", "CineVerse")
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("bodyText", body)

	resp, err := httpClient.PostForm(elasticAPIURL, form)
	if err != nil {
		return fmt.Errorf("email: send failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email: HTTP %d from Elastic Email", resp.StatusCode)
	}
	// Elastic Email returns 200 with {"success": false} on logical errors.
	if strings.Contains(string(raw), `"success":false`) {
		return fmt.Errorf("email: provider rejected message")
	}
	return nil
}
