package httpapi

import (
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"
	"storefront-be/internal/voucher"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Deps carries everything the router mounts. WS, Webhook and Limiter are
// optional; their routes or middleware are skipped when nil.
type Deps struct {
	Orders        order.Service
	Vouchers      voucher.Service
	WS            http.Handler
	Webhook       http.Handler
	Limiter       *middleware.RateLimiter
	JWTSecret     string
	AllowedOrigin string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigin))
	r.Use(middleware.AuthMiddleware(d.JWTSecret))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(r.Context(), w, utils.NewError("not_found", "route not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(r.Context(), w, utils.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	r.Get("/health", health)

	if d.WS != nil {
		r.Method(http.MethodGet, "/ws", d.WS)
	}
	if d.Webhook != nil {
		r.Method(http.MethodPost, middleware.PaymentWebhookPath, d.Webhook)
	}

	orders := NewOrderHandlers(d.Orders)
	vouchers := NewVoucherHandlers(d.Vouchers, d.Orders)
	admin := NewAdminHandlers(d.Orders, d.Vouchers)

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireUser)
			orders.Routes(r)
		})

		r.Route("/vouchers", func(r chi.Router) {
			vouchers.PublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)
				vouchers.Routes(r)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			admin.Routes(r)
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
