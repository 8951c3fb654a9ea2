// handlers.go — identity endpoints.
//
// Responses never reveal whether an email is registered: OTP sends and
// password resets answer identically for known and unknown addresses.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	core "github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/internal/ratelimit"
	"github.com/cineverse/cineverse/internal/validate"
	"github.com/cineverse/cineverse/pkg/audit"
)

// dummyHash keeps login timing uniform when the account does not exist.
// bcrypt hash of an unguessable throwaway string.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil {
		ip := ratelimit.ClientIP(r)
		if allowed, retryAfter := s.limiter.CheckRegistration(r.Context(), ip); !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			core.WriteError(w, http.StatusTooManyRequests, "rate_limited",
				"Too many registration attempts. Please try again later.")
			return
		}
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	errs := &validate.MultiError{}
	errs.Add(validate.IsEmail("email", req.Email))
	errs.Add(validate.MinLength("password", req.Password, 8))
	if errs.HasErrors() {
		core.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error())
		return
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		s.log.Error("password hash failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not create account")
		return
	}

	user, err := s.users.Create(r.Context(), req.Email, req.Name, hash)
	if errors.Is(err, ErrEmailTaken) {
		metrics.AuthEvents.WithLabelValues("register", "duplicate").Inc()
		core.WriteError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		return
	}
	if err != nil {
		s.log.Error("user create failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not create account")
		return
	}

	s.dispatchOTP(r, user.Email, PurposeRegistration)
	metrics.AuthEvents.WithLabelValues("register", "ok").Inc()
	audit.LogActionWithRequest(r, s.auditDB, "user", user.ID.Hex(), "user.registered",
		"user", user.Email, nil)

	core.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":        user.ID.Hex(),
		"email":          user.Email,
		"email_verified": false,
		"message":        "Verification code sent to your email",
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if err := validate.IsOTPCode("otp", req.OTP); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_otp", "Code must be 6 digits")
		return
	}

	ok, err := s.otp.Verify(r.Context(), PurposeRegistration, req.Email, req.OTP)
	if err != nil {
		s.log.Error("otp verify failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not verify code")
		return
	}
	if !ok {
		metrics.AuthEvents.WithLabelValues("verify_email", "bad_code").Inc()
		core.WriteError(w, http.StatusBadRequest, "invalid_otp", "Code is incorrect or expired")
		return
	}

	if err := s.users.MarkVerified(r.Context(), req.Email); err != nil {
		s.log.Error("mark verified failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not verify account")
		return
	}

	metrics.AuthEvents.WithLabelValues("verify_email", "ok").Inc()
	core.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ClientIP(r)
	if s.limiter != nil {
		if allowed, retryAfter := s.limiter.CheckLogin(r.Context(), ip); !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			core.WriteError(w, http.StatusTooManyRequests, "rate_limited",
				"Too many login attempts. Please try again later.")
			return
		}
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	user, err := s.users.FindByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.log.Error("user lookup failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not log in")
		return
	}

	// Run the bcrypt comparison whether or not the account exists so the
	// response time does not reveal which emails are registered.
	hash := dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	if !core.CheckPassword(hash, req.Password) || user == nil {
		metrics.AuthEvents.WithLabelValues("login", "failed").Inc()
		core.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
		return
	}
	if !user.EmailVerified {
		metrics.AuthEvents.WithLabelValues("login", "unverified").Inc()
		core.WriteError(w, http.StatusForbidden, "email_not_verified", "Verify your email before logging in")
		return
	}

	access, err := core.GenerateAccessToken(user.ID.Hex(), user.Email, user.EmailVerified)
	if err != nil {
		s.log.Error("token generation failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not log in")
		return
	}
	refresh, err := core.GenerateRefreshToken(user.ID.Hex())
	if err != nil {
		s.log.Error("refresh token generation failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not log in")
		return
	}

	if s.limiter != nil {
		s.limiter.ResetLoginIP(r.Context(), ip)
	}
	metrics.AuthEvents.WithLabelValues("login", "ok").Inc()
	audit.LogActionWithRequest(r, s.auditDB, "user", user.ID.Hex(), "user.login", "user", user.Email, nil)

	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

// handleSendOTP issues a code for registration re-sends or password resets.
func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Purpose string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if req.Purpose != PurposeRegistration && req.Purpose != PurposePasswordReset {
		core.WriteError(w, http.StatusBadRequest, "invalid_purpose",
			"purpose must be registration or password-reset")
		return
	}
	if err := validate.IsEmail("email", req.Email); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_email", "Email address is not valid")
		return
	}

	if s.limiter != nil {
		if allowed, retryAfter := s.limiter.CheckOTP(r.Context(), req.Email); !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			core.WriteError(w, http.StatusTooManyRequests, "rate_limited",
				"Too many codes requested. Please try again later.")
			return
		}
	}

	// Only send to accounts that exist, but answer identically either way.
	if _, err := s.users.FindByEmail(r.Context(), req.Email); err == nil {
		s.dispatchOTP(r, req.Email, req.Purpose)
	}
	metrics.AuthEvents.WithLabelValues("otp_send", "ok").Inc()

	core.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a code has been sent",
	})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if err := validate.MinLength("new_password", req.NewPassword, 8); err != nil {
		core.WriteError(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
		return
	}

	ok, err := s.otp.Verify(r.Context(), PurposePasswordReset, req.Email, req.OTP)
	if err != nil {
		s.log.Error("otp verify failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not reset password")
		return
	}
	if !ok {
		metrics.AuthEvents.WithLabelValues("password_reset", "bad_code").Inc()
		core.WriteError(w, http.StatusBadRequest, "invalid_otp", "Code is incorrect or expired")
		return
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not reset password")
		return
	}
	if err := s.users.SetPassword(r.Context(), req.Email, hash); err != nil {
		s.log.Error("password update failed", "err", err)
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not reset password")
		return
	}

	metrics.AuthEvents.WithLabelValues("password_reset", "ok").Inc()
	audit.LogActionWithRequest(r, s.auditDB, "user", "", "user.password_reset", "user", req.Email, nil)

	core.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	userID, err := core.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		core.WriteError(w, http.StatusUnauthorized, "invalid_token", "Refresh token is invalid or expired")
		return
	}

	user, err := s.users.FindByID(r.Context(), userID)
	if err != nil {
		core.WriteError(w, http.StatusUnauthorized, "invalid_token", "Account no longer exists")
		return
	}

	access, err := core.GenerateAccessToken(user.ID.Hex(), user.Email, user.EmailVerified)
	if err != nil {
		core.WriteError(w, http.StatusInternalServerError, "internal_error", "could not refresh token")
		return
	}

	core.WriteJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := core.UserIDFromContext(r.Context())
	user, err := s.users.FindByID(r.Context(), userID)
	if err != nil {
		core.WriteError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	core.WriteJSON(w, http.StatusOK, user)
}

// dispatchOTP generates and emails a code; failures are logged only, so a
// mail outage cannot fail registration.
func (s *Server) dispatchOTP(r *http.Request, email, purpose string) {
	code, err := s.otp.Generate(r.Context(), purpose, email)
	if err != nil {
		s.log.Error("otp generation failed", "purpose", purpose, "err", err)
		return
	}
	if s.sendOTP == nil {
		return
	}
	if err := s.sendOTP(email, code, purpose); err != nil {
		s.log.Warn("otp email failed", "purpose", purpose, "err", err)
	}
}
