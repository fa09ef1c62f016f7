package router

import (
	"net/http"

	"vapestore/internal/handler"
	"vapestore/internal/middleware"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router dispatches to.
type Handlers struct {
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Session  *handler.SessionHandler
	Order    *handler.OrderHandler
	Checkout *handler.CheckoutHandler
	Advisor  *handler.AdvisorHandler
	Health   *handler.HealthHandler
}

// Config holds the router's security settings.
type Config struct {
	APIKey         string
	AllowedOrigins []string
	SecureCookie   bool
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, cfg Config, sessions session.Store, logger zerolog.Logger) http.Handler {
	// Storefront routes share the visitor session.
	store := http.NewServeMux()

	store.HandleFunc("GET /api/products", h.Product.List)
	store.HandleFunc("GET /api/products/{id}", h.Product.GetByID)
	store.HandleFunc("POST /api/products/{id}/reviews", h.Product.AddReview)

	store.HandleFunc("GET /api/cart", h.Cart.Get)
	store.HandleFunc("DELETE /api/cart", h.Cart.Clear)
	store.HandleFunc("POST /api/cart/items", h.Cart.AddItem)
	store.HandleFunc("PUT /api/cart/items/{productId}", h.Cart.UpdateItem)
	store.HandleFunc("DELETE /api/cart/items/{productId}", h.Cart.RemoveItem)

	store.HandleFunc("POST /api/session/login", h.Session.Login)
	store.HandleFunc("POST /api/session/logout", h.Session.Logout)
	store.HandleFunc("GET /api/session/me", h.Session.Me)
	store.HandleFunc("PATCH /api/session/me", h.Session.UpdateMe)
	store.HandleFunc("GET /api/session/orders", h.Session.Orders)
	store.HandleFunc("GET /api/session/orders/stream", h.Session.OrdersStream)

	store.HandleFunc("GET /api/orders/{id}", h.Order.GetByID)

	store.HandleFunc("POST /api/checkout", h.Checkout.Checkout)
	store.HandleFunc("POST /api/checkout/direct", h.Checkout.Direct)
	store.HandleFunc("POST /api/payments/preference", h.Checkout.CreatePreference)

	store.HandleFunc("GET /success", h.Checkout.Redirect(service.OutcomeSuccess))
	store.HandleFunc("GET /failure", h.Checkout.Redirect(service.OutcomeFailure))
	store.HandleFunc("GET /pending", h.Checkout.Redirect(service.OutcomePending))

	store.HandleFunc("POST /api/advisor/recommendations", h.Advisor.Recommendations)
	store.HandleFunc("POST /api/advisor/upsell", h.Advisor.Upsell)
	store.HandleFunc("POST /api/advisor/chat", h.Advisor.Chat)

	// Back-office routes (API key required)
	admin := http.NewServeMux()

	admin.HandleFunc("POST /api/admin/products", h.Product.Create)
	admin.HandleFunc("PUT /api/admin/products/{id}", h.Product.Update)
	admin.HandleFunc("DELETE /api/admin/products/{id}", h.Product.Delete)
	admin.HandleFunc("POST /api/admin/products/{id}/image", h.Product.UploadImage)
	admin.HandleFunc("GET /api/admin/orders", h.Order.ListAll)
	admin.HandleFunc("GET /api/admin/orders/stream", h.Order.Stream)
	admin.HandleFunc("PATCH /api/admin/orders/{id}/status", h.Order.SetStatus)

	mux := http.NewServeMux()

	// Probes and gateway callbacks carry no session.
	mux.HandleFunc("GET /health", h.Health.Health)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /api/payments/webhook", h.Checkout.WebhookPing)
	mux.HandleFunc("POST /api/payments/webhook", h.Checkout.Webhook)

	mux.Handle("/api/admin/", middleware.APIKeyAuth(cfg.APIKey, logger)(admin))
	mux.Handle("/", middleware.Session(sessions, cfg.SecureCookie, logger)(store))

	// Apply middleware in order: RequestID -> Recovery -> Logging -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
