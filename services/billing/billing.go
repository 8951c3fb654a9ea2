// Package billing handles subscriptions and single-movie rentals paid through
// Razorpay.
//
// Payment flow: the client asks for an order (POST .../order), pays it through
// the Razorpay checkout, then posts the returned signature back for
// verification. The server trusts nothing until the HMAC checks out; amounts
// always come from the server-side plan or rental price, never the request.
package billing

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/services/activity"
)

// rentalPricePaise is the flat single-movie rental price (₹99).
const rentalPricePaise = 9900

// ActivityLog appends purchase events for the recommendation engine.
type ActivityLog interface {
	Record(ctx context.Context, ev activity.Event) error
}

// Storage is what the handlers need from the billing store. *Store satisfies
// it; tests substitute an in-memory fake.
type Storage interface {
	Plans(ctx context.Context) ([]Plan, error)
	PlanBySlug(ctx context.Context, slug string) (*Plan, error)
	ActivateSubscription(ctx context.Context, userID string, plan *Plan, orderID, paymentID string) (*Subscription, error)
	ActiveSubscription(ctx context.Context, userID string) (*Subscription, error)
	RecordPurchase(ctx context.Context, userID string, movieID int, title, orderID, paymentID string, price int64) (*Purchase, error)
	ValidPurchase(ctx context.Context, userID string, movieID int) (*Purchase, error)
	Purchases(ctx context.Context, userID string) ([]Purchase, error)
	RecordTransaction(ctx context.Context, tx Transaction) error
	Transactions(ctx context.Context, userID string) ([]Transaction, error)
}

// Server is the billing API service.
type Server struct {
	store    Storage
	gateway  OrderCreator
	secret   string // Razorpay key secret, for signature verification
	events   ActivityLog
	auditDB  *sql.DB
	sendMail func(toEmail, itemName string, amount int64, currency, paymentID string) error
	log      *slog.Logger
}

// NewServer wires the billing API. auditDB and sendMail may be nil.
func NewServer(store Storage, gateway OrderCreator, secret string, events ActivityLog,
	auditDB *sql.DB, sendMail func(string, string, int64, string, string) error,
	log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:    store,
		gateway:  gateway,
		secret:   secret,
		events:   events,
		auditDB:  auditDB,
		sendMail: sendMail,
		log:      log,
	}
}

// RegisterRoutes mounts the billing routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/billing/plans",
		metrics.Middleware("/api/billing/plans", http.HandlerFunc(s.handlePlans)))

	requirePost := func(pattern string, h http.HandlerFunc) {
		mux.Handle("POST "+pattern, metrics.Middleware(pattern, auth.RequireAuth(h)))
	}
	requireGet := func(pattern string, h http.HandlerFunc) {
		mux.Handle("GET "+pattern, metrics.Middleware(pattern, auth.RequireAuth(h)))
	}

	requirePost("/api/billing/subscribe/order", s.handleSubscribeOrder)
	requirePost("/api/billing/subscribe/verify", s.handleSubscribeVerify)
	requirePost("/api/billing/purchase/order", s.handlePurchaseOrder)
	requirePost("/api/billing/purchase/verify", s.handlePurchaseVerify)
	requireGet("/api/billing/subscription", s.handleSubscription)
	requireGet("/api/billing/purchases", s.handlePurchases)
	requireGet("/api/billing/transactions", s.handleTransactions)
	requireGet("/api/billing/access/{movieId}", s.handleAccess)
}

// handleAccess reports whether the user can stream a movie: either an active
// subscription or an unexpired rental grants access.
func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(r.PathValue("movieId"))
	if err != nil || movieID <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie id must be a positive integer")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	sub, err := s.store.ActiveSubscription(r.Context(), userID)
	if err != nil {
		s.log.Error("subscription lookup failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not check access")
		return
	}
	if sub != nil {
		auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"access": true, "via": "subscription", "expires_at": sub.EndDate,
		})
		return
	}

	purchase, err := s.store.ValidPurchase(r.Context(), userID, movieID)
	if err != nil {
		s.log.Error("purchase lookup failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not check access")
		return
	}
	if purchase != nil {
		auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"access": true, "via": "purchase", "expires_at": purchase.ExpiresAt,
		})
		return
	}

	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"access": false})
}
