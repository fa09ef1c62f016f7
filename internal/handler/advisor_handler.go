package handler

import (
	"context"
	"net/http"
	"strings"

	"vapestore/internal/advisor"
	"vapestore/internal/model"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

// Advisor is the product advisor backed by the hosted model.
type Advisor interface {
	Recommend(ctx context.Context, answers advisor.Answers, products []model.Product) ([]advisor.Recommendation, error)
	Upsell(ctx context.Context, cartNames []string, products []model.Product) *advisor.Recommendation
	Chat(ctx context.Context, products []model.Product, history []advisor.Message, message string, onDelta func(string) error) (*advisor.ChatResult, error)
}

// AdvisorHandler handles recommendation and chat requests. A nil advisor
// answers 503 on every route.
type AdvisorHandler struct {
	advisor  Advisor
	products service.ProductService
	logger   zerolog.Logger
}

// NewAdvisorHandler creates a new advisor handler.
func NewAdvisorHandler(adv Advisor, products service.ProductService, logger zerolog.Logger) *AdvisorHandler {
	return &AdvisorHandler{
		advisor:  adv,
		products: products,
		logger:   logger.With().Str("handler", "advisor").Logger(),
	}
}

// catalog loads the products the advisor may talk about.
func (h *AdvisorHandler) catalog(w http.ResponseWriter, r *http.Request) ([]model.Product, bool) {
	if h.advisor == nil {
		writeServiceError(w, model.ErrAdvisorUnavailable, h.logger)
		return nil, false
	}
	products, err := h.products.List(r.Context(), service.Filter{})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return nil, false
	}
	return products, true
}

// Recommendations handles POST /api/advisor/recommendations.
func (h *AdvisorHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var answers advisor.Answers
	if err := decodeJSON(w, r, &answers); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if answers.SmokingHabit == "" || answers.VapingGoal == "" || answers.Preference == "" {
		writeServiceError(w, model.InvalidRequest("all questionnaire answers are required"), h.logger)
		return
	}

	products, ok := h.catalog(w, r)
	if !ok {
		return
	}

	recs, err := h.advisor.Recommend(r.Context(), answers, products)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

// Upsell handles POST /api/advisor/upsell for the session cart.
func (h *AdvisorHandler) Upsell(w http.ResponseWriter, r *http.Request) {
	products, ok := h.catalog(w, r)
	if !ok {
		return
	}

	var names []string
	if err := withState(r, func(st *session.State) error {
		names = st.Cart.Names()
		return nil
	}); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if len(names) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rec := h.advisor.Upsell(r.Context(), names, products)
	if rec == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type chatRequest struct {
	History []advisor.Message `json:"history"`
	Message string            `json:"message"`
}

type chatDelta struct {
	Text string `json:"text"`
}

// Chat handles POST /api/advisor/chat. The reply streams as "delta" events,
// followed by "handoff" when a human should take over, then "done".
// Failures after the stream opened are sent as an "error" event.
func (h *AdvisorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeServiceError(w, model.InvalidRequest("message is required"), h.logger)
		return
	}

	products, ok := h.catalog(w, r)
	if !ok {
		return
	}

	es := newEventStream(w)
	result, err := h.advisor.Chat(r.Context(), products, req.History, req.Message, func(delta string) error {
		return es.send("delta", chatDelta{Text: delta})
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("chat failed")
		_ = es.send("error", model.ErrorResponse{Error: "Lo siento, no pude responder en este momento."})
		return
	}

	if result.Handoff {
		_ = es.send("handoff", result)
	}
	_ = es.send("done", result)
}
