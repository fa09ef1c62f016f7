// Package session keeps the per-visitor cart and identity that the
// storefront used to hold in process-wide state.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"vapestore/internal/cart"
	"vapestore/internal/model"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session id.
const CookieName = "vds_session"

// State is the mutable context of one visitor. It is only touched inside
// Session.Do, so handlers and the checkout flow receive it explicitly.
type State struct {
	ID        string
	Cart      *cart.Cart
	User      *model.User
	ExpiresAt time.Time
}

// Authenticated reports whether a user is logged in.
func (st *State) Authenticated() bool {
	return st.User != nil
}

// Login replaces the session user with a freshly built one.
func (st *State) Login(name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return model.ErrMissingContact
	}
	st.User = &model.User{
		Name:     name,
		Email:    email,
		Avatar:   model.AvatarURL(name),
		Currency: model.CurrencyUYU,
		Orders:   []model.Order{},
	}
	return nil
}

// Logout discards the session user. The cart is kept.
func (st *State) Logout() {
	st.User = nil
}

// RecordOrder appends an order to the user's denormalized order list.
func (st *State) RecordOrder(o model.Order) {
	if !st.Authenticated() {
		return
	}
	st.User.Orders = append(st.User.Orders, o)
}

// Session guards a State with a mutex.
type Session struct {
	mu    sync.Mutex
	state State
}

// New creates a session with an empty cart and a random id.
func New(ttl time.Duration) *Session {
	return &Session{
		state: State{
			ID:        uuid.NewString(),
			Cart:      cart.New(),
			ExpiresAt: time.Now().Add(ttl),
		},
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// Do runs fn with exclusive access to the session state.
func (s *Session) Do(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

func (s *Session) touch(expiresAt time.Time) {
	s.mu.Lock()
	s.state.ExpiresAt = expiresAt
	s.mu.Unlock()
}

type ctxKey struct{}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session bound by the session middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
