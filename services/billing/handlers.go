// handlers.go — order creation and payment verification endpoints.
package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/pkg/audit"
	"github.com/cineverse/cineverse/services/activity"
)

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.Plans(r.Context())
	if err != nil {
		s.log.Error("plans query failed", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load plans")
		return
	}
	if plans == nil {
		plans = []Plan{}
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

// handleSubscribeOrder creates a Razorpay order for a plan. The amount comes
// from the stored plan, never from the request body.
func (s *Server) handleSubscribeOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanSlug string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}

	plan, err := s.store.PlanBySlug(r.Context(), req.PlanSlug)
	if errors.Is(err, ErrPlanNotFound) {
		auth.WriteError(w, http.StatusNotFound, "plan_not_found", "unknown plan")
		return
	}
	if err != nil {
		s.log.Error("plan lookup failed", "plan", req.PlanSlug, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load plan")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	orderID, err := s.gateway.CreateOrder(plan.Price, "INR", receiptFor("sub", userID),
		map[string]interface{}{"plan": plan.Slug, "userId": userID})
	if err != nil {
		s.log.Error("order creation failed", "user", userID, "plan", plan.Slug, "err", err)
		metrics.BillingEvents.WithLabelValues("order_failed").Inc()
		auth.WriteError(w, http.StatusBadGateway, "gateway_error", "payment gateway unavailable")
		return
	}

	s.recordTx(r, Transaction{
		UserID: userID, Kind: "subscription", OrderID: orderID,
		Amount: plan.Price, Status: "created",
	})
	metrics.BillingEvents.WithLabelValues("order_created").Inc()

	auth.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"order_id": orderID,
		"amount":   plan.Price,
		"currency": "INR",
		"plan":     plan.Slug,
	})
}

// handleSubscribeVerify verifies the payment signature and activates the plan.
func (s *Server) handleSubscribeVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanSlug  string `json:"plan"`
		OrderID   string `json:"razorpay_order_id"`
		PaymentID string `json:"razorpay_payment_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if !VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.secret) {
		metrics.BillingEvents.WithLabelValues("verify_failed").Inc()
		audit.LogActionWithRequest(r, s.auditDB, "user", userID, "payment.verify_failed",
			"order", req.OrderID, nil)
		auth.WriteError(w, http.StatusBadRequest, "invalid_signature", "payment verification failed")
		return
	}

	plan, err := s.store.PlanBySlug(r.Context(), req.PlanSlug)
	if errors.Is(err, ErrPlanNotFound) {
		auth.WriteError(w, http.StatusNotFound, "plan_not_found", "unknown plan")
		return
	}
	if err != nil {
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load plan")
		return
	}

	sub, err := s.store.ActivateSubscription(r.Context(), userID, plan, req.OrderID, req.PaymentID)
	if err != nil {
		s.log.Error("subscription activation failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not activate subscription")
		return
	}

	s.recordTx(r, Transaction{
		UserID: userID, Kind: "subscription", OrderID: req.OrderID,
		PaymentID: req.PaymentID, Amount: plan.Price, Status: "paid",
	})
	metrics.BillingEvents.WithLabelValues("subscription_activated").Inc()
	audit.LogActionWithRequest(r, s.auditDB, "user", userID, "subscription.activated",
		"plan", plan.Slug, map[string]interface{}{"order_id": req.OrderID})

	if s.sendMail != nil {
		if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
			if err := s.sendMail(claims.Email, plan.Name, plan.Price, "INR", req.PaymentID); err != nil {
				s.log.Warn("receipt email failed", "err", err)
			}
		}
	}

	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"subscription": sub})
}

// handlePurchaseOrder creates a Razorpay order for a single-movie rental.
func (s *Server) handlePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MovieID int    `json:"movie_id"`
		Title   string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}
	if req.MovieID <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie_id must be a positive integer")
		return
	}

	userID := auth.UserIDFromContext(r.Context())

	// A live rental means there is nothing to buy.
	if existing, err := s.store.ValidPurchase(r.Context(), userID, req.MovieID); err == nil && existing != nil {
		auth.WriteError(w, http.StatusConflict, "already_purchased", "rental is still active")
		return
	}

	orderID, err := s.gateway.CreateOrder(rentalPricePaise, "INR", receiptFor("buy", userID),
		map[string]interface{}{"movieId": req.MovieID, "userId": userID})
	if err != nil {
		s.log.Error("order creation failed", "user", userID, "movie", req.MovieID, "err", err)
		metrics.BillingEvents.WithLabelValues("order_failed").Inc()
		auth.WriteError(w, http.StatusBadGateway, "gateway_error", "payment gateway unavailable")
		return
	}

	s.recordTx(r, Transaction{
		UserID: userID, Kind: "purchase", OrderID: orderID,
		Amount: rentalPricePaise, Status: "created",
	})
	metrics.BillingEvents.WithLabelValues("order_created").Inc()

	auth.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"order_id": orderID,
		"amount":   rentalPricePaise,
		"currency": "INR",
		"movie_id": req.MovieID,
	})
}

// handlePurchaseVerify verifies the signature and opens the 48-hour rental.
func (s *Server) handlePurchaseVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MovieID   int    `json:"movie_id"`
		Title     string `json:"title"`
		OrderID   string `json:"razorpay_order_id"`
		PaymentID string `json:"razorpay_payment_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}
	if req.MovieID <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie_id must be a positive integer")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if !VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.secret) {
		metrics.BillingEvents.WithLabelValues("verify_failed").Inc()
		audit.LogActionWithRequest(r, s.auditDB, "user", userID, "payment.verify_failed",
			"order", req.OrderID, nil)
		auth.WriteError(w, http.StatusBadRequest, "invalid_signature", "payment verification failed")
		return
	}

	purchase, err := s.store.RecordPurchase(r.Context(), userID, req.MovieID, req.Title,
		req.OrderID, req.PaymentID, rentalPricePaise)
	if err != nil {
		s.log.Error("purchase record failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not record purchase")
		return
	}

	s.recordTx(r, Transaction{
		UserID: userID, Kind: "purchase", OrderID: req.OrderID,
		PaymentID: req.PaymentID, Amount: rentalPricePaise, Status: "paid",
	})
	metrics.BillingEvents.WithLabelValues("purchase_completed").Inc()
	audit.LogActionWithRequest(r, s.auditDB, "user", userID, "purchase.completed",
		"movie", req.Title, map[string]interface{}{"movie_id": req.MovieID, "order_id": req.OrderID})

	if s.events != nil {
		ev := activity.Event{UserID: userID, MovieID: req.MovieID, ActivityType: activity.TypePurchase}
		if err := s.events.Record(r.Context(), ev); err != nil {
			s.log.Warn("activity write failed", "err", err)
		}
	}
	if s.sendMail != nil {
		if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
			if err := s.sendMail(claims.Email, req.Title, rentalPricePaise, "INR", req.PaymentID); err != nil {
				s.log.Warn("receipt email failed", "err", err)
			}
		}
	}

	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"purchase": purchase})
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sub, err := s.store.ActiveSubscription(r.Context(), userID)
	if err != nil {
		s.log.Error("subscription lookup failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load subscription")
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"subscription": sub})
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	purchases, err := s.store.Purchases(r.Context(), userID)
	if err != nil {
		s.log.Error("purchases query failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load purchases")
		return
	}
	if purchases == nil {
		purchases = []Purchase{}
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"purchases": purchases})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	txs, err := s.store.Transactions(r.Context(), userID)
	if err != nil {
		s.log.Error("transactions query failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load transactions")
		return
	}
	if txs == nil {
		txs = []Transaction{}
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// recordTx appends a transaction row; failures are logged, never surfaced.
func (s *Server) recordTx(r *http.Request, tx Transaction) {
	if err := s.store.RecordTransaction(r.Context(), tx); err != nil {
		s.log.Warn("transaction record failed", "order", tx.OrderID, "err", err)
	}
}
