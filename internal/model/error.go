package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeMissingContact     = "MISSING_CONTACT"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeOrderNotPending    = "ORDER_NOT_PENDING"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeInvalidRating      = "INVALID_RATING"
	ErrCodeInvalidPrice       = "INVALID_PRICE"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidProduct     = "INVALID_PRODUCT"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeMissingInitPoint   = "MISSING_INIT_POINT"
	ErrCodeAdvisorUnavailable = "ADVISOR_UNAVAILABLE"
	ErrCodeImageStoreDisabled = "IMAGE_STORE_DISABLED"
)

// DomainError is a validation, lookup or authorisation failure that is
// rejected before any external call is made.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies still compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyCart          = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrMissingContact     = NewDomainError(ErrCodeMissingContact, "Customer name and email are required")
	ErrInvalidSignature   = NewDomainError(ErrCodeInvalidSignature, "Invalid signature")
	ErrProductNotFound    = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound      = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrOrderNotPending    = NewDomainError(ErrCodeOrderNotPending, "Order is no longer pending payment")
	ErrInvalidQuantity    = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidRating      = NewDomainError(ErrCodeInvalidRating, "Rating must be between 1 and 5")
	ErrInvalidPrice       = NewDomainError(ErrCodeInvalidPrice, "Price must be a non-negative amount")
	ErrInvalidStatus      = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrUnauthenticated    = NewDomainError(ErrCodeUnauthenticated, "You must be logged in")
	ErrMissingInitPoint   = NewDomainError(ErrCodeMissingInitPoint, "Invalid response from the payment processor")
	ErrAdvisorUnavailable = NewDomainError(ErrCodeAdvisorUnavailable, "The product advisor is not available")
	ErrImageStoreDisabled = NewDomainError(ErrCodeImageStoreDisabled, "Image uploads are not configured")
)

// InvalidProduct reports a product that fails a catalog invariant.
func InvalidProduct(reason string) *DomainError {
	return NewDomainError(ErrCodeInvalidProduct, reason)
}

// InvalidRequest reports a malformed request payload.
func InvalidRequest(reason string) *DomainError {
	return NewDomainError(ErrCodeInvalidRequest, reason)
}

// UpstreamError wraps a failure of the catalog/order store or the payment
// gateway. Message is safe to show to the customer; Err carries the detail.
type UpstreamError struct {
	Op      string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Upstream creates an UpstreamError.
func Upstream(op, message string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Message: message, Err: err}
}
