// Package stripe mirrors CineVerse subscription plans into Stripe.
//
// Razorpay is the primary gateway; Stripe products exist for card checkout in
// markets where UPI is unavailable. Provisioning runs from cmd/seed, never on
// the request path.
package stripe

import (
	"fmt"
	"log/slog"
	"os"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/price"
	"github.com/stripe/stripe-go/v76/product"

	"github.com/cineverse/cineverse/services/billing"
)

// PlanPrices holds the Stripe ids created for one plan.
type PlanPrices struct {
	ProductID string
	PriceID   string
}

// Provisioner creates Stripe products and prices for CineVerse plans.
type Provisioner struct {
	log *slog.Logger
}

// NewProvisioner reads STRIPE_SECRET_KEY. Returns an error when unset so the
// seed command can skip Stripe provisioning cleanly.
func NewProvisioner(log *slog.Logger) (*Provisioner, error) {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil, fmt.Errorf("stripe: STRIPE_SECRET_KEY is not set")
	}
	stripego.Key = key
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{log: log}, nil
}

// Provision creates one product and one recurring monthly price per plan.
// Returns a map of plan slug to the created ids.
func (p *Provisioner) Provision(plans []billing.Plan) (map[string]PlanPrices, error) {
	results := make(map[string]PlanPrices, len(plans))

	for _, plan := range plans {
		pp, err := p.provisionPlan(plan)
		if err != nil {
			return nil, fmt.Errorf("stripe: provision plan %s: %w", plan.Slug, err)
		}
		results[plan.Slug] = pp
		p.log.Info("stripe plan provisioned",
			"plan", plan.Slug, "product", pp.ProductID, "price", pp.PriceID)
	}
	return results, nil
}

func (p *Provisioner) provisionPlan(plan billing.Plan) (PlanPrices, error) {
	prod, err := product.New(&stripego.ProductParams{
		Name: stripego.String(plan.Name),
		Metadata: map[string]string{
			"cineverse_plan": plan.Slug,
		},
	})
	if err != nil {
		return PlanPrices{}, fmt.Errorf("product.New: %w", err)
	}

	pr, err := price.New(&stripego.PriceParams{
		Product:    stripego.String(prod.ID),
		Currency:   stripego.String("inr"),
		UnitAmount: stripego.Int64(plan.Price),
		Recurring: &stripego.PriceRecurringParams{
			Interval: stripego.String("month"),
		},
		Metadata: map[string]string{
			"cineverse_plan": plan.Slug,
			"duration_days":  fmt.Sprintf("%d", plan.DurationDays),
		},
	})
	if err != nil {
		return PlanPrices{}, fmt.Errorf("price.New: %w", err)
	}

	return PlanPrices{ProductID: prod.ID, PriceID: pr.ID}, nil
}
