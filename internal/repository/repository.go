package repository

import (
	"context"

	"vapestore/internal/model"
)

// OrderChangesChannel is the PostgreSQL NOTIFY channel every order write
// announces itself on.
const OrderChangesChannel = "order_changes"

// ProductRepository defines the catalog store.
type ProductRepository interface {
	// List retrieves every product ordered by id.
	List(ctx context.Context) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil if absent.
	GetByID(ctx context.Context, id int) (*model.Product, error)


	// Create inserts a product. An ID of zero is replaced by the next free id.
	Create(ctx context.Context, p *model.Product) error

	// Update overwrites a product document. Returns false if it does not exist.
	Update(ctx context.Context, p *model.Product) (bool, error)

	// Delete removes a product. Returns false if it did not exist.
	Delete(ctx context.Context, id int) (bool, error)

	// SetImageURL replaces the product image. Returns false if the product does not exist.
	SetImageURL(ctx context.Context, id int, url string) (bool, error)

	// PrependReview atomically puts a review at the front of the product's
	// review list and returns the updated product, or nil if absent.
	PrependReview(ctx context.Context, id int, review model.Review) (*model.Product, error)

	// SeedIfEmpty inserts the products once per database. It reports whether
	// the seed ran.
	SeedIfEmpty(ctx context.Context, products []model.Product) (bool, error)
}

// OrderRepository defines the order store.
type OrderRepository interface {
	// Create persists an order with its item snapshots.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order with its items. Returns nil if absent.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// ListByCustomer retrieves a customer's orders, newest first.
	ListByCustomer(ctx context.Context, email string) ([]model.Order, error)

	// ListAll retrieves every order, newest first.
	ListAll(ctx context.Context) ([]model.Order, error)

	// TransitionStatus moves an order to status "to" when its current status
	// is one of "from" (any status when from is empty). A non-empty paymentID
	// is recorded alongside. It reports whether a row changed; an order
	// already in the target state or outside "from" is left untouched.
	TransitionStatus(ctx context.Context, id string, to model.OrderStatus, paymentID string, from ...model.OrderStatus) (bool, error)
}
