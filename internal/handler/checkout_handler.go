package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"

	"vapestore/internal/model"
	"vapestore/internal/payment"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkout, payment links, gateway webhooks and the
// pages the hosted checkout redirects back to.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// withContact fills a blank contact from the logged in user.
func withContact(st *session.State, c service.Customer) service.Customer {
	if !st.Authenticated() {
		return c
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = st.User.Name
	}
	if strings.TrimSpace(c.Email) == "" {
		c.Email = st.User.Email
	}
	return c
}

// Checkout handles POST /api/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.Customer
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var result *service.CheckoutResult
	err := withState(r, func(st *session.State) error {
		var err error
		result, err = h.service.Checkout(r.Context(), st, withContact(st, req))
		return err
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type directPaymentRequest struct {
	service.Customer
	service.DirectPaymentForm
}

// Direct handles POST /api/checkout/direct.
func (h *CheckoutHandler) Direct(w http.ResponseWriter, r *http.Request) {
	var req directPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var result *service.DirectPaymentResult
	err := withState(r, func(st *session.State) error {
		var err error
		result, err = h.service.PayDirect(r.Context(), st, withContact(st, req.Customer), req.DirectPaymentForm)
		return err
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type preferenceRequest struct {
	Items   []payment.PreferenceItem `json:"items"`
	OrderID string                   `json:"orderId"`
}

type preferenceResponse struct {
	InitPoint string `json:"init_point"`
}

// CreatePreference handles POST /api/payments/preference.
func (h *CheckoutHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	initPoint, err := h.service.CreatePreference(r.Context(), req.Items, req.OrderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, preferenceResponse{InitPoint: initPoint})
}

type webhookBody struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// parseWebhook reads the notification from the body, falling back to the
// query parameters older notifications use.
func parseWebhook(r *http.Request) service.WebhookRequest {
	req := service.WebhookRequest{
		Signature: r.Header.Get("x-signature"),
		RequestID: r.Header.Get("x-request-id"),
	}

	var body webhookBody
	if raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes)); err == nil && len(raw) > 0 {
		if json.Unmarshal(raw, &body) == nil {
			req.Type = body.Type
			if req.Type == "" {
				req.Type = body.Topic
			}
			req.DataID = strings.Trim(string(body.Data.ID), `"`)
		}
	}

	q := r.URL.Query()
	if req.Type == "" {
		req.Type = q.Get("type")
	}
	if req.Type == "" {
		req.Type = q.Get("topic")
	}
	if req.DataID == "" || req.DataID == "null" {
		req.DataID = q.Get("data.id")
	}
	if req.DataID == "" {
		req.DataID = q.Get("id")
	}
	return req
}

// Webhook handles POST /api/payments/webhook. The gateway retries on any
// non-2xx answer, so upstream failures answer 500.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	req := parseWebhook(r)

	if err := h.service.HandleWebhook(r.Context(), req); err != nil {
		if errors.Is(err, model.ErrInvalidSignature) {
			h.logger.Warn().Str("data_id", req.DataID).Msg("rejected webhook with invalid signature")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		h.logger.Error().Err(err).Str("data_id", req.DataID).Msg("failed to process webhook")
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

// WebhookPing handles GET /api/payments/webhook.
func (h *CheckoutHandler) WebhookPing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

// RedirectResponse is the JSON form of a redirect page.
type RedirectResponse struct {
	Outcome string       `json:"outcome"`
	Order   *model.Order `json:"order"`
}

var redirectCopy = map[string]struct{ Title, Message string }{
	service.OutcomeSuccess: {"¡Pago aprobado!", "Gracias por tu compra. Estamos preparando tu pedido."},
	service.OutcomeFailure: {"El pago no se pudo completar", "No se realizó ningún cargo. Podés intentarlo de nuevo desde tu carrito."},
	service.OutcomePending: {"Pago pendiente", "Tu pago está siendo procesado. Te avisaremos cuando se confirme."},
}

var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>{{.Title}} | Vape del Este</title></head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{with .Order}}<p>Pedido <strong>{{.ID}}</strong>: {{.Status}} ({{.Total.Display}})</p>{{end}}
<p><a href="/">Volver a la tienda</a></p>
</main>
</body>
</html>
`))

// Redirect returns the handler for one of /success, /failure or /pending.
// Order state is taken from the gateway, never from the query string.
func (h *CheckoutHandler) Redirect(outcome string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		orderID := q.Get("external_reference")
		paymentID := q.Get("payment_id")
		if paymentID == "" {
			paymentID = q.Get("collection_id")
		}

		order, err := h.service.ReconcileRedirect(r.Context(), outcome, orderID, paymentID)
		if err != nil {
			// The page still renders; the webhook will settle the order.
			h.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to reconcile redirect")
		}

		// Only a gateway-confirmed payment empties the cart.
		if outcome == service.OutcomeSuccess && order != nil && order.Status == model.StatusProcessing {
			if err := withState(r, func(st *session.State) error {
				st.Cart.Clear()
				return nil
			}); err != nil {
				h.logger.Warn().Err(err).Msg("failed to clear cart")
			}
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, RedirectResponse{Outcome: outcome, Order: order})
			return
		}

		text := redirectCopy[outcome]
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := redirectPage.Execute(w, struct {
			Title   string
			Message string
			Order   *model.Order
		}{text.Title, text.Message, order}); err != nil {
			h.logger.Error().Err(err).Msg("failed to render redirect page")
		}
	}
}
