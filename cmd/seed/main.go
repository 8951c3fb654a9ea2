// main.go — one-shot provisioning for a fresh CineVerse deployment.
//
// Seeds the subscription plans, optionally mirrors them into Stripe, and
// runs a single catalog sync pass so the API has movies before the first
// background refresh.
//
// Flags:
//
//	-stripe   also create Stripe products/prices for the plans
//	-sync     run one catalog sync pass against TMDB
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	cvmongo "github.com/cineverse/cineverse/internal/mongo"
	"github.com/cineverse/cineverse/internal/stripe"
	"github.com/cineverse/cineverse/services/billing"
	"github.com/cineverse/cineverse/services/catalog"
	catalogsync "github.com/cineverse/cineverse/services/sync"
	"github.com/cineverse/cineverse/services/tmdb"
)

func main() {
	withStripe := flag.Bool("stripe", false, "provision Stripe products and prices for the plans")
	withSync := flag.Bool("sync", false, "run one catalog sync pass")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := cvmongo.Connect(ctx, os.Getenv("MONGODB_URI"), os.Getenv("MONGODB_DATABASE"))
	if err != nil {
		log.WithError(err).Fatal("mongo connect failed")
	}
	defer db.Close(context.Background())

	inserted, err := billing.NewStore(db).SeedPlans(ctx)
	if err != nil {
		log.WithError(err).Fatal("plan seed failed")
	}
	log.WithField("inserted", inserted).Info("subscription plans seeded")

	if *withStripe {
		prov, err := stripe.NewProvisioner(slog.Default())
		if err != nil {
			log.WithError(err).Fatal("stripe provisioner init failed")
		}
		prices, err := prov.Provision(billing.DefaultPlans)
		if err != nil {
			log.WithError(err).Fatal("stripe provisioning failed")
		}
		for slug, pp := range prices {
			log.WithFields(logrus.Fields{
				"plan":    slug,
				"product": pp.ProductID,
				"price":   pp.PriceID,
			}).Info("stripe plan provisioned")
		}
	}

	if *withSync {
		client, err := tmdb.NewClient(os.Getenv("TMDB_API_KEY"), tmdb.DefaultRetryPolicy())
		if err != nil {
			log.WithError(err).Fatal("tmdb client init failed")
		}
		worker := catalogsync.NewWorker(client, catalog.NewStore(db), catalogsync.DefaultInterval, log)
		worker.SyncOnce(ctx)
	}

	log.Info("seed complete")
}
