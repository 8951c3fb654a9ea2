// Package auth is the identity service: registration, login, email OTP
// verification, password reset, and token refresh.
//
// Token mechanics (signing, validation, middleware) live in internal/auth;
// this package owns the account lifecycle around them.
package auth

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	core "github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/internal/ratelimit"
)

// Users is what the handlers need from the account store.
type Users interface {
	Create(ctx context.Context, email, name, passwordHash string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	MarkVerified(ctx context.Context, email string) error
	SetPassword(ctx context.Context, email, passwordHash string) error
}

// Server is the identity API service.
type Server struct {
	users   Users
	otp     *OTPManager
	limiter *ratelimit.Limiter
	sendOTP func(toEmail, otp, purpose string) error
	auditDB *sql.DB
	log     *slog.Logger
}

// NewServer wires the identity API. sendOTP and auditDB may be nil.
func NewServer(users Users, otp *OTPManager, limiter *ratelimit.Limiter,
	sendOTP func(string, string, string) error, auditDB *sql.DB, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		users:   users,
		otp:     otp,
		limiter: limiter,
		sendOTP: sendOTP,
		auditDB: auditDB,
		log:     log,
	}
}

// RegisterRoutes mounts the identity routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	post := func(pattern string, h http.HandlerFunc) {
		mux.Handle("POST "+pattern, metrics.Middleware(pattern, h))
	}

	post("/api/auth/register", s.handleRegister)
	post("/api/auth/login", s.handleLogin)
	post("/api/auth/verify-email", s.handleVerifyEmail)
	post("/api/auth/otp/send", s.handleSendOTP)
	post("/api/auth/password-reset", s.handlePasswordReset)
	post("/api/auth/refresh", s.handleRefresh)

	mux.Handle("GET /api/auth/me",
		metrics.Middleware("/api/auth/me", core.RequireAuth(http.HandlerFunc(s.handleMe))))
}
