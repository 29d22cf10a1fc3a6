package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/jewelry-backend/internal/domain/cart"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument is the stored shape of a cart. Money is kept as strings so
// no precision is lost to float64.
type cartDocument struct {
	UserID    uint           `bson:"user_id"`
	Items     []itemDocument `bson:"items"`
	Subtotal  string         `bson:"subtotal"`
	Tax       string         `bson:"tax"`
	Shipping  string         `bson:"shipping"`
	Discount  string         `bson:"discount"`
	Total     string         `bson:"total"`
	Currency  string         `bson:"currency"`
	ExpiresAt time.Time      `bson:"expires_at"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ProductID uint      `bson:"product_id"`
	VariantID *uint     `bson:"variant_id,omitempty"`
	Name      string    `bson:"name"`
	SKU       string    `bson:"sku"`
	Quantity  int       `bson:"quantity"`
	UnitPrice string    `bson:"unit_price"`
	LineTotal string    `bson:"line_total"`
	AddedAt   time.Time `bson:"added_at"`
}

// CartRepository keeps one document per user in the carts collection
type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{
		collection: db.Collection("carts"),
	}
}

// CreateIndexes ensures the per-user unique key and lets MongoDB expire
// carts once expires_at has passed
func (r *CartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *CartRepository) FindByUser(ctx context.Context, userID uint) (*cart.Cart, error) {
	var doc cartDocument
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return fromDocument(doc)
}

// Save replaces the user's document, creating it on first write
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.ID = c.UserID

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"user_id": c.UserID}, toDocument(c), opts)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID uint) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// PurgeExpired removes carts the TTL monitor has not reached yet
func (r *CartRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge carts: %w", err)
	}
	return res.DeletedCount, nil
}

func toDocument(c *cart.Cart) cartDocument {
	doc := cartDocument{
		UserID:    c.UserID,
		Items:     make([]itemDocument, 0, len(c.Items)),
		Subtotal:  c.Subtotal.StringFixed(2),
		Tax:       c.Tax.StringFixed(2),
		Shipping:  c.Shipping.StringFixed(2),
		Discount:  c.Discount.StringFixed(2),
		Total:     c.Total.StringFixed(2),
		Currency:  c.Currency,
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		doc.Items = append(doc.Items, itemDocument{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			LineTotal: it.LineTotal.StringFixed(2),
			AddedAt:   it.AddedAt,
		})
	}
	return doc
}

func fromDocument(doc cartDocument) (*cart.Cart, error) {
	c := &cart.Cart{
		ID:        doc.UserID,
		UserID:    doc.UserID,
		Currency:  doc.Currency,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Items:     make([]cart.CartItem, 0, len(doc.Items)),
	}

	amounts := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&c.Subtotal, doc.Subtotal},
		{&c.Tax, doc.Tax},
		{&c.Shipping, doc.Shipping},
		{&c.Discount, doc.Discount},
		{&c.Total, doc.Total},
	}
	for _, a := range amounts {
		v, err := parseAmount(a.src)
		if err != nil {
			return nil, err
		}
		*a.dst = v
	}

	for i, it := range doc.Items {
		unit, err := parseAmount(it.UnitPrice)
		if err != nil {
			return nil, err
		}
		line, err := parseAmount(it.LineTotal)
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items, cart.CartItem{
			CartID:    c.ID,
			Position:  i,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: line,
			AddedAt:   it.AddedAt,
		})
	}
	return c, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", s, err)
	}
	return v, nil
}

// Health pings the server behind the carts collection
func (r *CartRepository) Health(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

// Close disconnects the underlying client
func (r *CartRepository) Close(ctx context.Context) error {
	return r.collection.Database().Client().Disconnect(ctx)
}
