package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Cart  *CartHandler
	Users *UserHandler
	Token *TokenHandler
}

// NewRouter wires the handlers under /api/v1 behind the common middleware.
func NewRouter(h Handlers, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.Cart.ListProducts)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Post("/items/{product_id}/increase", h.Cart.IncreaseQuantity)
			r.Post("/items/{product_id}/decrease", h.Cart.DecreaseQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.Users.ListUsers)
			r.Get("/{id}", h.Users.GetUser)
		})

		r.Route("/token", func(r chi.Router) {
			r.Get("/", h.Token.GetToken)
			r.Put("/", h.Token.SaveToken)
			r.Delete("/", h.Token.DeleteToken)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
