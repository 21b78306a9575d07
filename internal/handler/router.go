package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/shopify-points-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/", h.Hello)
	r.Get("/metrics", h.metrics.Handler().ServeHTTP)

	r.Route("/webhook", func(r chi.Router) {
		r.Use(h.hmac.Middleware)

		r.Post("/orders/paid", h.OrderPaid)
		r.Post("/orders/fulfilled", h.OrderFulfilled)
		r.Post("/orders/create", h.GenericEvent("Order Created"))
		r.Post("/orders/delete", h.GenericEvent("Order Deleted"))
		r.Post("/products/update", h.GenericEvent("Product Updated"))
	})

	r.Route("/api/customers/{customerID}/points", func(r chi.Router) {
		r.Get("/", h.GetPoints)
		r.Put("/", h.SetPoints)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
