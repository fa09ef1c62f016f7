package handler

import (
	"errors"
	"net/http"
	"strings"

	"vapestore/internal/model"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

const maxImageBytes = 10 << 20

// ProductHandler handles catalog HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /api/products?category=&brand=&maxPrice=&sort=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.Filter{
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		Sort:     q.Get("sort"),
	}
	if s := q.Get("maxPrice"); s != "" {
		price, err := model.ParsePrice(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxPrice parameter", h.logger)
			return
		}
		filter.MaxPrice = price
	}
	switch filter.Sort {
	case "", service.SortByID, service.SortByPriceAsc, service.SortByPriceDesc, service.SortByName:
	default:
		writeError(w, http.StatusBadRequest, "invalid sort parameter", h.logger)
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id}.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// AddReview handles POST /api/products/{id}/reviews for the logged in user.
func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var user *model.User
	if err := withState(r, func(st *session.State) error {
		if st.Authenticated() {
			u := *st.User
			user = &u
		}
		return nil
	}); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	product, err := h.service.AddReview(r.Context(), id, user, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// Create handles POST /api/admin/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	created, err := h.service.Create(r.Context(), &p)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/admin/products/{id}. The path id wins over the body.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var p model.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	p.ID = id

	updated, err := h.service.Update(r.Context(), &p)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/admin/products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/admin/products/{id}/image with a multipart
// "image" field.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image is too large", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", h.logger)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required", h.logger)
		return
	}
	defer file.Close()

	product, err := h.service.SetImage(r.Context(), id, service.ImageUpload{
		Filename:    header.Filename,
		ContentType: strings.TrimSpace(header.Header.Get("Content-Type")),
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}
