package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/cart-store/internal/logging"
)

func NewRouter(h *HTTPHandler, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(log))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/cart", h.GetCart)
		r.Post("/cart/items/{productId}", h.AddItem)
		r.Put("/cart/items/{productId}", h.SetAmount)
		r.Delete("/cart/items/{productId}", h.RemoveItem)
		r.Get("/notifications", h.Notifications)
	})

	return r
}
