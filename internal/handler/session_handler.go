package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"vapestore/internal/model"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

// OrderStream delivers fresh order lists whenever the store changes. An
// empty email subscribes to every order.
type OrderStream interface {
	Subscribe(ctx context.Context, email string) (<-chan []model.Order, func(), error)
}

// SessionHandler handles login state and the customer's own orders.
type SessionHandler struct {
	orders service.OrderService
	stream OrderStream
	logger zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(orders service.OrderService, stream OrderStream, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		orders: orders,
		stream: stream,
		logger: logger.With().Str("handler", "session").Logger(),
	}
}

// MeResponse wraps the session user; User is null for anonymous visitors.
type MeResponse struct {
	User *model.User `json:"user"`
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Orders = append([]model.Order{}, u.Orders...)
	return &c
}

// currentUser returns a copy of the session user, or nil.
func currentUser(r *http.Request) (*model.User, error) {
	var user *model.User
	err := withState(r, func(st *session.State) error {
		user = copyUser(st.User)
		return nil
	})
	return user, err
}

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Login handles POST /api/session/login.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var user *model.User
	err := withState(r, func(st *session.State) error {
		if err := st.Login(req.Name, req.Email); err != nil {
			return err
		}
		user = copyUser(st.User)
		return nil
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.logger.Info().Str("email", user.Email).Msg("user logged in")
	writeJSON(w, http.StatusOK, MeResponse{User: user})
}

// Logout handles POST /api/session/logout. The cart survives.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := withState(r, func(st *session.State) error {
		st.Logout()
		return nil
	}); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/session/me.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: user})
}

type updateMeRequest struct {
	Name     *string `json:"name"`
	Currency *string `json:"currency"`
}

// UpdateMe handles PATCH /api/session/me.
func (h *SessionHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var user *model.User
	err := withState(r, func(st *session.State) error {
		if !st.Authenticated() {
			return model.ErrUnauthenticated
		}
		if req.Currency != nil {
			c := strings.ToUpper(strings.TrimSpace(*req.Currency))
			if !model.ValidCurrency(c) {
				return model.InvalidRequest("currency must be UYU or USD")
			}
			st.User.Currency = c
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return model.InvalidRequest("name cannot be empty")
			}
			st.User.Name = name
			st.User.Avatar = model.AvatarURL(name)
		}
		user = copyUser(st.User)
		return nil
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{User: user})
}

// Orders handles GET /api/session/orders, read live from the store.
func (h *SessionHandler) Orders(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if user == nil {
		writeServiceError(w, model.ErrUnauthenticated, h.logger)
		return
	}

	orders, err := h.orders.ListByCustomer(r.Context(), user.Email)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// OrdersStream handles GET /api/session/orders/stream.
func (h *SessionHandler) OrdersStream(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if user == nil {
		writeServiceError(w, model.ErrUnauthenticated, h.logger)
		return
	}

	streamOrders(w, r, h.stream, user.Email, h.logger)
}

// streamOrders relays order snapshots as "orders" events until the client
// goes away.
func streamOrders(w http.ResponseWriter, r *http.Request, stream OrderStream, email string, logger zerolog.Logger) {
	ctx := r.Context()

	updates, cancel, err := stream.Subscribe(ctx, email)
	if err != nil {
		writeServiceError(w, err, logger)
		return
	}
	defer cancel()

	es := newEventStream(w)
	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case orders, ok := <-updates:
			if !ok {
				return
			}
			if err := es.send("orders", orders); err != nil {
				logger.Debug().Err(err).Msg("order stream closed")
				return
			}
		case <-ticker.C:
			if err := es.ping(); err != nil {
				return
			}
		}
	}
}
