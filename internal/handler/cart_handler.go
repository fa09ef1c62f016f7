package handler

import (
	"net/http"

	"vapestore/internal/cart"
	"vapestore/internal/model"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

// CartHandler handles the session cart.
type CartHandler struct {
	products service.ProductService
	logger   zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(products service.ProductService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		products: products,
		logger:   logger.With().Str("handler", "cart").Logger(),
	}
}

// CartResponse is the wire form of a cart.
type CartResponse struct {
	Items        []cart.Item `json:"items"`
	ItemCount    int         `json:"itemCount"`
	Total        model.Money `json:"total"`
	TotalDisplay string      `json:"totalDisplay"`
}

func cartResponse(c *cart.Cart) CartResponse {
	items := c.Items()
	if items == nil {
		items = []cart.Item{}
	}
	total := c.Total()
	return CartResponse{
		Items:        items,
		ItemCount:    c.ItemCount(),
		Total:        total,
		TotalDisplay: total.Display(),
	}
}

// respond applies fn to the session cart and writes the resulting cart.
func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, fn func(c *cart.Cart)) {
	var resp CartResponse
	err := withState(r, func(st *session.State) error {
		if fn != nil {
			fn(st.Cart)
		}
		resp = cartResponse(st.Cart)
		return nil
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, nil)
}

type addItemRequest struct {
	ProductID int `json:"productId"`
}

// AddItem handles POST /api/cart/items. The product is read from the
// catalog so the cart never trusts client-supplied prices.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if req.ProductID <= 0 {
		writeServiceError(w, model.InvalidRequest("productId is required"), h.logger)
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.respond(w, r, func(c *cart.Cart) { c.Add(*product) })
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PUT /api/cart/items/{productId}. A quantity of zero
// or less removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "productId")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.respond(w, r, func(c *cart.Cart) { c.UpdateQuantity(id, req.Quantity) })
}

// RemoveItem handles DELETE /api/cart/items/{productId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "productId")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.respond(w, r, func(c *cart.Cart) { c.Remove(id) })
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(c *cart.Cart) { c.Clear() })
}
