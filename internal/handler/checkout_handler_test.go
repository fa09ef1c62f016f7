package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vapestore/internal/model"
	"vapestore/internal/payment"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCheckoutHandler_Checkout(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		login          bool
		customer       service.Customer
		result         *service.CheckoutResult
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Success",
			body:           `{"name":"Ana","email":"ana@example.com"}`,
			customer:       service.Customer{Name: "Ana", Email: "ana@example.com"},
			result:         &service.CheckoutResult{OrderID: "K3Z9QH2M", InitPoint: "https://mp/init"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"orderId":"K3Z9QH2M","init_point":"https://mp/init"}`,
		},
		{
			name:           "Contact falls back to the logged in user",
			body:           `{}`,
			login:          true,
			customer:       service.Customer{Name: "Ana", Email: "ana@example.com"},
			result:         &service.CheckoutResult{OrderID: "K3Z9QH2M", InitPoint: "https://mp/init"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Empty cart",
			body:           `{"name":"Ana","email":"ana@example.com"}`,
			customer:       service.Customer{Name: "Ana", Email: "ana@example.com"},
			err:            model.ErrEmptyCart,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"EMPTY_CART"`,
		},
		{
			name:           "Gateway failure",
			body:           `{"name":"Ana","email":"ana@example.com"}`,
			customer:       service.Customer{Name: "Ana", Email: "ana@example.com"},
			err:            model.Upstream("create preference", "could not create the payment link", errors.New("timeout")),
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `could not create the payment link`,
		},
		{
			name:           "Missing init point",
			body:           `{"name":"Ana","email":"ana@example.com"}`,
			customer:       service.Customer{Name: "Ana", Email: "ana@example.com"},
			err:            model.ErrMissingInitPoint,
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `MISSING_INIT_POINT`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCheckoutService)
			if tt.result != nil {
				mockService.On("Checkout", mockCtx, mock.AnythingOfType("*session.State"), tt.customer).Return(tt.result, nil)
			} else {
				mockService.On("Checkout", mockCtx, mock.AnythingOfType("*session.State"), tt.customer).Return(nil, tt.err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(tt.body))
			if tt.login {
				req, _ = loggedIn(req, "Ana", "ana@example.com")
			} else {
				req, _ = bind(req)
			}
			w := httptest.NewRecorder()

			NewCheckoutHandler(mockService, zerolog.Nop()).Checkout(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestCheckoutHandler_Direct(t *testing.T) {
	mockService := new(MockCheckoutService)
	form := service.DirectPaymentForm{
		Token:           "tok",
		IssuerID:        "310",
		PaymentMethodID: "visa",
		Installments:    1,
		Payer:           &payment.Payer{Email: "ana@example.com"},
	}
	mockService.On("PayDirect", mockCtx, mock.AnythingOfType("*session.State"),
		service.Customer{Name: "Ana", Email: "ana@example.com"}, form).
		Return(&service.DirectPaymentResult{
			OrderID:      "K3Z9QH2M",
			PaymentID:    "123",
			Status:       "approved",
			StatusDetail: "accredited",
			OrderStatus:  model.StatusProcessing,
		}, nil)

	body := `{"name":"Ana","email":"ana@example.com","token":"tok","issuer_id":"310","payment_method_id":"visa","installments":1,"payer":{"email":"ana@example.com"}}`
	req, _ := bind(httptest.NewRequest(http.MethodPost, "/api/checkout/direct", strings.NewReader(body)))
	w := httptest.NewRecorder()

	NewCheckoutHandler(mockService, zerolog.Nop()).Direct(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"orderId":"K3Z9QH2M"`)
	assert.Contains(t, w.Body.String(), `"status_detail":"accredited"`)
	assert.Contains(t, w.Body.String(), `"id":"123"`)
	mockService.AssertExpectations(t)
}

func TestCheckoutHandler_CreatePreference(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"Success", nil, http.StatusOK},
		{"Missing order", model.ErrOrderNotFound, http.StatusNotFound},
		{"Order already paid", model.ErrOrderNotPending, http.StatusConflict},
		{"Bad quantity", model.ErrInvalidQuantity, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCheckoutService)
			items := []payment.PreferenceItem{{ID: "1", Title: "BALI", Quantity: 2, UnitPrice: 1450, CurrencyID: "UYU"}}
			if tt.err == nil {
				mockService.On("CreatePreference", mockCtx, items, "K3Z9QH2M").Return("https://mp/init", nil)
			} else {
				mockService.On("CreatePreference", mockCtx, items, "K3Z9QH2M").Return("", tt.err)
			}

			body := `{"items":[{"id":"1","title":"BALI","quantity":2,"unit_price":1450,"currency_id":"UYU"}],"orderId":"K3Z9QH2M"}`
			req := httptest.NewRequest(http.MethodPost, "/api/payments/preference", strings.NewReader(body))
			w := httptest.NewRecorder()

			NewCheckoutHandler(mockService, zerolog.Nop()).CreatePreference(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.err == nil {
				assert.JSONEq(t, `{"init_point":"https://mp/init"}`, w.Body.String())
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestParseWebhook(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		expected service.WebhookRequest
	}{
		{
			name:     "Body with string id",
			target:   "/api/payments/webhook",
			body:     `{"type":"payment","data":{"id":"123"}}`,
			expected: service.WebhookRequest{Type: "payment", DataID: "123", Signature: "ts=1,v1=ab", RequestID: "req-1"},
		},
		{
			name:     "Body with numeric id",
			target:   "/api/payments/webhook",
			body:     `{"type":"payment","data":{"id":123}}`,
			expected: service.WebhookRequest{Type: "payment", DataID: "123", Signature: "ts=1,v1=ab", RequestID: "req-1"},
		},
		{
			name:     "Query fallback",
			target:   "/api/payments/webhook?type=payment&data.id=456",
			body:     ``,
			expected: service.WebhookRequest{Type: "payment", DataID: "456", Signature: "ts=1,v1=ab", RequestID: "req-1"},
		},
		{
			name:     "Legacy topic and id",
			target:   "/api/payments/webhook?topic=merchant_order&id=789",
			body:     ``,
			expected: service.WebhookRequest{Type: "merchant_order", DataID: "789", Signature: "ts=1,v1=ab", RequestID: "req-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			req.Header.Set("x-signature", "ts=1,v1=ab")
			req.Header.Set("x-request-id", "req-1")

			assert.Equal(t, tt.expected, parseWebhook(req))
		})
	}
}

func TestCheckoutHandler_Webhook(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"Processed", nil, http.StatusOK, "OK"},
		{"Invalid signature", model.ErrInvalidSignature, http.StatusForbidden, "Forbidden"},
		{"Upstream failure", model.Upstream("get payment", "payment lookup failed", errors.New("502")), http.StatusInternalServerError, "Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCheckoutService)
			mockService.On("HandleWebhook", mockCtx, service.WebhookRequest{Type: "payment", DataID: "123"}).Return(tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{"type":"payment","data":{"id":"123"}}`))
			w := httptest.NewRecorder()

			NewCheckoutHandler(mockService, zerolog.Nop()).Webhook(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestCheckoutHandler_WebhookPing(t *testing.T) {
	w := httptest.NewRecorder()
	NewCheckoutHandler(new(MockCheckoutService), zerolog.Nop()).WebhookPing(w, httptest.NewRequest(http.MethodGet, "/api/payments/webhook", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCheckoutHandler_Redirect(t *testing.T) {
	order := &model.Order{ID: "K3Z9QH2M", Status: model.StatusProcessing, Total: 4000}

	tests := []struct {
		name        string
		outcome     string
		target      string
		paymentID   string
		accept      string
		status      model.OrderStatus
		clearsCart  bool
		contentType string
		contains    string
	}{
		{
			name:        "Success page",
			outcome:     service.OutcomeSuccess,
			target:      "/success?external_reference=K3Z9QH2M&payment_id=123",
			paymentID:   "123",
			clearsCart:  true,
			contentType: "text/html; charset=utf-8",
			contains:    "Pedido <strong>K3Z9QH2M</strong>: Processing ($U 4.000)",
		},
		{
			name:        "Success JSON",
			outcome:     service.OutcomeSuccess,
			target:      "/success?external_reference=K3Z9QH2M&collection_id=123",
			paymentID:   "123",
			accept:      "application/json",
			clearsCart:  true,
			contentType: "application/json",
			contains:    `"outcome":"success"`,
		},
		{
			name:        "Success without an approved payment keeps the cart",
			outcome:     service.OutcomeSuccess,
			target:      "/success?external_reference=K3Z9QH2M&payment_id=123",
			paymentID:   "123",
			accept:      "application/json",
			status:      model.StatusPending,
			clearsCart:  false,
			contentType: "application/json",
			contains:    `"status":"Pending"`,
		},
		{
			name:        "Failure keeps the cart",
			outcome:     service.OutcomeFailure,
			target:      "/failure?external_reference=K3Z9QH2M",
			clearsCart:  false,
			contentType: "text/html; charset=utf-8",
			contains:    "El pago no se pudo completar",
		},
		{
			name:        "Pending keeps the cart",
			outcome:     service.OutcomePending,
			target:      "/pending?external_reference=K3Z9QH2M&payment_id=123",
			paymentID:   "123",
			clearsCart:  false,
			contentType: "text/html; charset=utf-8",
			contains:    "Pago pendiente",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := *order
			if tt.status != "" {
				o.Status = tt.status
			}
			mockService := new(MockCheckoutService)
			mockService.On("ReconcileRedirect", mockCtx, tt.outcome, "K3Z9QH2M", tt.paymentID).Return(&o, nil)

			req, sess := bind(httptest.NewRequest(http.MethodGet, tt.target, nil))
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			_ = sess.Do(func(st *session.State) error {
				st.Cart.Add(model.Product{ID: 1, Name: "BALI", Price: 1450})
				return nil
			})
			w := httptest.NewRecorder()

			NewCheckoutHandler(mockService, zerolog.Nop()).Redirect(tt.outcome)(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.contains)
			_ = sess.Do(func(st *session.State) error {
				assert.Equal(t, tt.clearsCart, st.Cart.IsEmpty())
				return nil
			})
			mockService.AssertExpectations(t)
		})
	}
}

func TestCheckoutHandler_Redirect_UnknownOrder(t *testing.T) {
	mockService := new(MockCheckoutService)
	mockService.On("ReconcileRedirect", mockCtx, service.OutcomeFailure, "", "").Return(nil, nil)

	req, _ := bind(httptest.NewRequest(http.MethodGet, "/failure", nil))
	w := httptest.NewRecorder()

	NewCheckoutHandler(mockService, zerolog.Nop()).Redirect(service.OutcomeFailure)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Pedido")
}
