package service

import (
	"context"
	"io"

	"vapestore/internal/model"
	"vapestore/internal/payment"
	"vapestore/internal/session"
)

// Sort orders accepted by ProductService.List.
const (
	SortByID        = "id"
	SortByPriceAsc  = "price_asc"
	SortByPriceDesc = "price_desc"
	SortByName      = "name"
)

// Filter narrows a catalog listing. Zero values match everything.
type Filter struct {
	Category string
	Brand    string
	MaxPrice model.Money
	Sort     string
}

// ImageUpload is a product image received from the back office.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ProductService defines operations for the catalog.
type ProductService interface {
	// List retrieves the products matching the filter.
	List(ctx context.Context, f Filter) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id int) (*model.Product, error)

	// Create adds a product. An ID of zero is allocated by the store.
	Create(ctx context.Context, p *model.Product) (*model.Product, error)

	// Update overwrites an existing product.
	Update(ctx context.Context, p *model.Product) (*model.Product, error)

	// Delete removes a product.
	Delete(ctx context.Context, id int) error

	// SetImage uploads a new product image and stores its URL.
	SetImage(ctx context.Context, id int, upload ImageUpload) (*model.Product, error)

	// AddReview prepends a review written by the logged in user.
	AddReview(ctx context.Context, productID int, user *model.User, rating int, comment string) (*model.Product, error)

	// SeedIfEmpty loads the initial catalog once per database.
	SeedIfEmpty(ctx context.Context, products []model.Product) (bool, error)
}

// OrderService defines read and back-office operations on orders.
type OrderService interface {
	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// ListByCustomer retrieves a customer's orders, newest first.
	ListByCustomer(ctx context.Context, email string) ([]model.Order, error)

	// ListAll retrieves every order, newest first.
	ListAll(ctx context.Context) ([]model.Order, error)

	// SetStatus moves an order to any status of the closed set.
	SetStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
}

// PaymentGateway is the hosted payment processor.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error)
	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
	CreatePayment(ctx context.Context, req payment.PaymentRequest, idempotencyKey string) (*payment.Payment, error)
}

// Customer is the contact data captured at checkout.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CheckoutResult is returned once the order is stored and the payment link exists.
type CheckoutResult struct {
	OrderID   string `json:"orderId"`
	InitPoint string `json:"init_point"`
}

// DirectPaymentForm is the card form tokenized in the browser.
type DirectPaymentForm struct {
	Token           string         `json:"token"`
	IssuerID        string         `json:"issuer_id"`
	PaymentMethodID string         `json:"payment_method_id"`
	Installments    int            `json:"installments"`
	Payer           *payment.Payer `json:"payer"`
}

// DirectPaymentResult is the outcome of a direct card payment.
type DirectPaymentResult struct {
	OrderID      string            `json:"orderId"`
	PaymentID    string            `json:"id"`
	Status       string            `json:"status"`
	StatusDetail string            `json:"status_detail"`
	OrderStatus  model.OrderStatus `json:"orderStatus"`
}

// WebhookRequest is a gateway notification with its signature headers.
type WebhookRequest struct {
	Type      string
	DataID    string
	Signature string
	RequestID string
}

// Redirect outcomes of the hosted checkout.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePending = "pending"
)

// CheckoutService turns carts into orders and keeps them in step with the gateway.
type CheckoutService interface {
	// Checkout stores a pending order for the session cart and returns the
	// hosted payment link. The cart is left as is.
	Checkout(ctx context.Context, st *session.State, c Customer) (*CheckoutResult, error)

	// CreatePreference creates a payment link for an order that already exists.
	CreatePreference(ctx context.Context, items []payment.PreferenceItem, orderID string) (string, error)

	// PayDirect stores a pending order and charges a card token for it.
	PayDirect(ctx context.Context, st *session.State, c Customer, form DirectPaymentForm) (*DirectPaymentResult, error)

	// HandleWebhook verifies and applies a gateway notification.
	HandleWebhook(ctx context.Context, req WebhookRequest) error

	// ReconcileRedirect applies the gateway's view of a payment the customer
	// was redirected back with and returns the order, or nil if unknown.
	ReconcileRedirect(ctx context.Context, outcome, orderID, paymentID string) (*model.Order, error)
}
