// Package ratelimit provides kvstore-backed rate limiting for auth and OTP
// endpoints. When no store is configured (nil), all limits are disabled and
// requests pass — the service degrades gracefully in dev without Redis.
// Email addresses are SHA-256 hashed before use as keys to avoid storing PII.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cineverse/cineverse/internal/kvstore"
)

// Limiter performs rate limit checks against a kvstore.Store.
type Limiter struct {
	store kvstore.Store
}

// New creates a Limiter backed by the given store.
// If store is nil, the Limiter is a no-op that always allows requests.
func New(store kvstore.Store) *Limiter {
	return &Limiter{store: store}
}

// CheckRegistration enforces: max 5 registration attempts per IP per hour.
// Returns (allowed, retryAfterSecs).
func (l *Limiter) CheckRegistration(ctx context.Context, ip string) (bool, int) {
	return l.check(ctx, fmt.Sprintf("rate:register:%s", ip), 5, 3600)
}

// CheckLogin enforces: max 20 login attempts per IP per 15 minutes.
func (l *Limiter) CheckLogin(ctx context.Context, ip string) (bool, int) {
	return l.check(ctx, fmt.Sprintf("rate:login:ip:%s", ip), 20, 900)
}

// CheckOTP enforces: max 5 OTP sends per email per hour.
func (l *Limiter) CheckOTP(ctx context.Context, email string) (bool, int) {
	return l.check(ctx, fmt.Sprintf("rate:otp:%s", HashIdentifier(email)), 5, 3600)
}

// ResetLoginIP resets the IP-based login counter on successful login.
func (l *Limiter) ResetLoginIP(ctx context.Context, ip string) {
	if l.store == nil {
		return
	}
	l.store.Del(ctx, fmt.Sprintf("rate:login:ip:%s", ip))
}

// check increments the counter and compares to max. A TTL is attached on the
// first increment so the window slides from the first attempt.
func (l *Limiter) check(ctx context.Context, key string, max int64, windowSecs int) (bool, int) {
	if l.store == nil {
		return true, 0
	}

	n, err := l.store.Incr(ctx, key)
	if err != nil {
		// Store failure must not lock users out.
		return true, 0
	}
	if n == 1 {
		l.store.Expire(ctx, key, time.Duration(windowSecs)*time.Second)
	}
	if n > max {
		retry := windowSecs
		if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
			retry = int(ttl.Seconds())
		}
		return false, retry
	}
	return true, 0
}

// HashIdentifier returns the hex SHA-256 of an identifier (e.g. an email)
// for use in store keys.
func HashIdentifier(s string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return fmt.Sprintf("%x", sum)
}

// ClientIP extracts the originating client IP, preferring X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
