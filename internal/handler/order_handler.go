package handler

import (
	"net/http"

	"vapestore/internal/model"
	"vapestore/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order lookups and the back-office order views.
type OrderHandler struct {
	service service.OrderService
	stream  OrderStream
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, stream OrderStream, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		stream:  stream,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// GetByID handles GET /api/orders/{id}.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "order ID is required", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListAll handles GET /api/admin/orders.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles PATCH /api/admin/orders/{id}/status.
func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	order, err := h.service.SetStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Stream handles GET /api/admin/orders/stream.
func (h *OrderHandler) Stream(w http.ResponseWriter, r *http.Request) {
	streamOrders(w, r, h.stream, "", h.logger)
}
