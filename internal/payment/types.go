package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"vapestore/internal/model"

	"github.com/shopspring/decimal"
)

// Payment statuses reported by the gateway.
const (
	StatusApproved     = "approved"
	StatusPending      = "pending"
	StatusInProcess    = "in_process"
	StatusAuthorized   = "authorized"
	StatusInMediation  = "in_mediation"
	StatusRejected     = "rejected"
	StatusCancelled    = "cancelled"
	StatusRefunded     = "refunded"
	StatusChargedBack  = "charged_back"
	AutoReturnApproved = "approved"
)

// PreferenceItem is a line of a checkout preference.
type PreferenceItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  model.Money `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
	PictureURL string      `json:"picture_url,omitempty"`
}

// BackURLs are the pages the hosted checkout returns the customer to.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Payer identifies the customer to the gateway.
type Payer struct {
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email"`
	Identification *Identification `json:"identification,omitempty"`
}

// Identification is a payer document.
type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// PreferenceRequest creates a hosted checkout session.
type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	Payer               *Payer           `json:"payer,omitempty"`
	ExternalReference   string           `json:"external_reference"`
	BackURLs            BackURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return,omitempty"`
	NotificationURL     string           `json:"notification_url,omitempty"`
	StatementDescriptor string           `json:"statement_descriptor,omitempty"`
}

// Preference is the gateway's answer to a preference request.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// PaymentRequest charges a card token directly.
type PaymentRequest struct {
	Token               string      `json:"token"`
	IssuerID            string      `json:"issuer_id,omitempty"`
	PaymentMethodID     string      `json:"payment_method_id"`
	TransactionAmount   json.Number `json:"transaction_amount"`
	Installments        int         `json:"installments"`
	Payer               Payer       `json:"payer"`
	Description         string      `json:"description"`
	StatementDescriptor string      `json:"statement_descriptor,omitempty"`
	ExternalReference   string      `json:"external_reference"`
	NotificationURL     string      `json:"notification_url,omitempty"`
}

// Amount converts store money into the gateway's decimal amount.
func Amount(m model.Money) json.Number {
	return json.Number(decimal.NewFromInt(int64(m)).String())
}

// Payment is the gateway's view of a payment.
type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
}

// IDString renders the payment id for storage.
func (p *Payment) IDString() string {
	if p.ID == 0 {
		return ""
	}
	return fmt.Sprintf("%d", p.ID)
}

// PaidAmountMatches reports whether the payment covers exactly the given total.
func (p *Payment) PaidAmountMatches(total model.Money) bool {
	return p.TransactionAmount.Equal(decimal.NewFromInt(int64(total)))
}

// Cause is one reason attached to a gateway error.
type Cause struct {
	Code        CauseCode `json:"code"`
	Description string    `json:"description"`
}

// CauseCode accepts the error code either as a JSON number or a string.
type CauseCode string

// UnmarshalJSON implements json.Unmarshaler.
func (c *CauseCode) UnmarshalJSON(data []byte) error {
	*c = CauseCode(strings.Trim(string(data), `"`))
	return nil
}

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Message    string
	Causes     []Cause
}

func (e *APIError) Error() string {
	if len(e.Causes) > 0 {
		c := e.Causes[0]
		return fmt.Sprintf("Error %s: %s", c.Code, c.Description)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("payment gateway returned status %d", e.StatusCode)
}

// OrderStatusFor maps a gateway payment status onto the order lifecycle.
// The second result is false for statuses that should not move the order.
func OrderStatusFor(status string) (model.OrderStatus, bool) {
	switch strings.ToLower(status) {
	case StatusApproved:
		return model.StatusProcessing, true
	case StatusRejected, StatusCancelled, StatusRefunded, StatusChargedBack:
		return model.StatusCancelled, true
	default:
		return model.StatusPending, false
	}
}
