package model

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// AllStatuses lists the closed set of order statuses.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseOrderStatus resolves a status name case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, v := range AllStatuses {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", ErrInvalidStatus
}

// GatewayTransition returns the statuses an order may move from when the
// payment gateway reports the given target. A nil result means no change.
// The gateway never drives an order to Shipped or Delivered and never
// moves it backwards.
func GatewayTransition(to OrderStatus) []OrderStatus {
	switch to {
	case StatusProcessing:
		return []OrderStatus{StatusPending}
	case StatusCancelled:
		return []OrderStatus{StatusPending, StatusProcessing}
	default:
		return nil
	}
}

// Order represents a customer order with snapshot line items.
type Order struct {
	ID            string      `json:"id"`
	CreatedAt     time.Time   `json:"date"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	Items         []OrderItem `json:"items"`
	Total         Money       `json:"total"`
	Currency      string      `json:"currency"`
	Status        OrderStatus `json:"status"`
	PaymentID     string      `json:"paymentId,omitempty"`
}

// OrderItem is a product copied at checkout time together with its quantity.
type OrderItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal is the line amount at snapshot price.
func (i OrderItem) Subtotal() Money {
	return i.Product.Price.Times(i.Quantity)
}

// ItemsTotal sums the line subtotals.
func ItemsTotal(items []OrderItem) Money {
	var total Money
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

const (
	orderIDLength   = 9
	orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewOrderID generates a short uppercase base-36 order identifier.
// Collisions are not checked.
func NewOrderID() string {
	var b strings.Builder
	b.Grow(orderIDLength)
	max := big.NewInt(int64(len(orderIDAlphabet)))
	for range orderIDLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b.WriteByte(orderIDAlphabet[n.Int64()])
	}
	return b.String()
}
