// models.go — plans, subscriptions, purchases, transactions and their stores.
package billing

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cvmongo "github.com/cineverse/cineverse/internal/mongo"
)

// ErrPlanNotFound is returned for an unknown or inactive plan slug.
var ErrPlanNotFound = errors.New("billing: plan not found")

// rentalWindow is how long a single-movie purchase stays watchable.
const rentalWindow = 48 * time.Hour

// Subscription statuses.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Plan is a subscription tier. Price is in paise (INR minor units).
type Plan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug         string             `bson:"slug" json:"slug"`
	Name         string             `bson:"name" json:"name"`
	Price        int64              `bson:"price" json:"price"`
	DurationDays int                `bson:"durationDays" json:"duration_days"`
	Features     []string           `bson:"features,omitempty" json:"features,omitempty"`
	Active       bool               `bson:"active" json:"active"`
}

// DefaultPlans are seeded by cmd/seed on first run.
var DefaultPlans = []Plan{
	{Slug: "basic", Name: "CineVerse Basic", Price: 19900, DurationDays: 30, Active: true,
		Features: []string{"HD streaming", "1 screen"}},
	{Slug: "standard", Name: "CineVerse Standard", Price: 49900, DurationDays: 30, Active: true,
		Features: []string{"Full HD streaming", "2 screens", "Downloads"}},
	{Slug: "premium", Name: "CineVerse Premium", Price: 99900, DurationDays: 90, Active: true,
		Features: []string{"4K streaming", "4 screens", "Downloads", "Early releases"}},
}

// Subscription ties a user to a plan for a date range.
type Subscription struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	PlanSlug  string             `bson:"planSlug" json:"plan_slug"`
	OrderID   string             `bson:"orderId" json:"order_id"`
	PaymentID string             `bson:"paymentId" json:"payment_id"`
	Status    string             `bson:"status" json:"status"`
	StartDate time.Time          `bson:"startDate" json:"start_date"`
	EndDate   time.Time          `bson:"endDate" json:"end_date"`
}

// Purchase is a 48-hour single-movie rental.
type Purchase struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"user_id"`
	MovieID     int                `bson:"movieId" json:"movie_id"`
	Title       string             `bson:"title,omitempty" json:"title,omitempty"`
	OrderID     string             `bson:"orderId" json:"order_id"`
	PaymentID   string             `bson:"paymentId" json:"payment_id"`
	Price       int64              `bson:"price" json:"price"`
	PurchasedAt time.Time          `bson:"purchasedAt" json:"purchased_at"`
	ExpiresAt   time.Time          `bson:"expiresAt" json:"expires_at"`
}

// Transaction is the immutable record of one completed or failed payment.
type Transaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	Kind      string             `bson:"kind" json:"kind"` // subscription | purchase
	OrderID   string             `bson:"orderId" json:"order_id"`
	PaymentID string             `bson:"paymentId,omitempty" json:"payment_id,omitempty"`
	Amount    int64              `bson:"amount" json:"amount"`
	Currency  string             `bson:"currency" json:"currency"`
	Status    string             `bson:"status" json:"status"` // created | paid | failed
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// Store bundles the billing collections.
type Store struct {
	plans         *mongo.Collection
	subscriptions *mongo.Collection
	purchases     *mongo.Collection
	transactions  *mongo.Collection
}

// NewStore creates a Store over the shared database.
func NewStore(db *cvmongo.DB) *Store {
	return &Store{
		plans:         db.C(cvmongo.ColPlans),
		subscriptions: db.C(cvmongo.ColSubscriptions),
		purchases:     db.C(cvmongo.ColPurchases),
		transactions:  db.C(cvmongo.ColTransactions),
	}
}

// Plans returns all active plans, cheapest first.
func (s *Store) Plans(ctx context.Context) ([]Plan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}})
	cur, err := s.plans.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var plans []Plan
	if err := cur.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// PlanBySlug returns one active plan.
func (s *Store) PlanBySlug(ctx context.Context, slug string) (*Plan, error) {
	var p Plan
	err := s.plans.FindOne(ctx, bson.M{"slug": slug, "active": true}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SeedPlans inserts any default plan missing from the collection.
func (s *Store) SeedPlans(ctx context.Context) (int, error) {
	inserted := 0
	for _, p := range DefaultPlans {
		res, err := s.plans.UpdateOne(ctx,
			bson.M{"slug": p.Slug},
			bson.M{"$setOnInsert": p},
			options.Update().SetUpsert(true))
		if err != nil {
			return inserted, err
		}
		if res.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// ActivateSubscription cancels any active subscription the user holds and
// creates the new one. The previous plan does not stack or prorate.
func (s *Store) ActivateSubscription(ctx context.Context, userID string, plan *Plan, orderID, paymentID string) (*Subscription, error) {
	_, err := s.subscriptions.UpdateMany(ctx,
		bson.M{"userId": userID, "status": StatusActive},
		bson.M{"$set": bson.M{"status": StatusCancelled}})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &Subscription{
		UserID:    userID,
		PlanSlug:  plan.Slug,
		OrderID:   orderID,
		PaymentID: paymentID,
		Status:    StatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
	}
	res, err := s.subscriptions.InsertOne(ctx, sub)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		sub.ID = oid
	}
	return sub, nil
}

// ActiveSubscription returns the user's current subscription, or nil.
// A row past its end date is treated as expired even before any sweeper
// flips its status.
func (s *Store) ActiveSubscription(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription
	err := s.subscriptions.FindOne(ctx,
		bson.M{"userId": userID, "status": StatusActive, "endDate": bson.M{"$gt": time.Now()}},
		options.FindOne().SetSort(bson.D{{Key: "endDate", Value: -1}})).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// RecordPurchase creates a rental that expires rentalWindow from now.
func (s *Store) RecordPurchase(ctx context.Context, userID string, movieID int, title, orderID, paymentID string, price int64) (*Purchase, error) {
	now := time.Now()
	p := &Purchase{
		UserID:      userID,
		MovieID:     movieID,
		Title:       title,
		OrderID:     orderID,
		PaymentID:   paymentID,
		Price:       price,
		PurchasedAt: now,
		ExpiresAt:   now.Add(rentalWindow),
	}
	res, err := s.purchases.InsertOne(ctx, p)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return p, nil
}

// ValidPurchase returns the user's unexpired rental for a movie, or nil.
func (s *Store) ValidPurchase(ctx context.Context, userID string, movieID int) (*Purchase, error) {
	var p Purchase
	err := s.purchases.FindOne(ctx,
		bson.M{"userId": userID, "movieId": movieID, "expiresAt": bson.M{"$gt": time.Now()}}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Purchases lists the user's rentals, newest first.
func (s *Store) Purchases(ctx context.Context, userID string) ([]Purchase, error) {
	opts := options.Find().SetSort(bson.D{{Key: "purchasedAt", Value: -1}})
	cur, err := s.purchases.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Purchase
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordTransaction appends one payment record.
func (s *Store) RecordTransaction(ctx context.Context, tx Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	if tx.Currency == "" {
		tx.Currency = "INR"
	}
	_, err := s.transactions.InsertOne(ctx, tx)
	return err
}

// Transactions lists the user's payment history, newest first.
func (s *Store) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.transactions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Transaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
