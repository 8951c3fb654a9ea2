// expiry.go — background sweep that marks lapsed subscriptions expired.
//
// Access checks already compare endDate against now, so an unexpired status
// never grants access past the paid window. The sweep keeps the stored
// status truthful for listings and analytics.
package billing

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/cineverse/cineverse/internal/metrics"
)

// SweepInterval is how often the expiry sweep runs.
const SweepInterval = time.Hour

// ExpireStale flips active subscriptions whose endDate has passed to
// expired. Returns the number of subscriptions updated.
func (s *Store) ExpireStale(ctx context.Context) (int64, error) {
	res, err := s.subscriptions.UpdateMany(ctx,
		bson.M{"status": StatusActive, "endDate": bson.M{"$lte": time.Now()}},
		bson.M{"$set": bson.M{"status": StatusExpired}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Expirer is the store surface the sweep loop needs.
type Expirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// RunExpirySweep blocks until ctx is cancelled, running ExpireStale on the
// interval. interval <= 0 uses SweepInterval.
func RunExpirySweep(ctx context.Context, store Expirer, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = SweepInterval
	}
	if log == nil {
		log = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.ExpireStale(ctx)
			if err != nil {
				log.Error("subscription expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				metrics.BillingEvents.WithLabelValues("subscription_expired").Add(float64(n))
				log.Info("subscriptions expired", "count", n)
			}
		}
	}
}
