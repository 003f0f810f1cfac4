package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", handler.ProductList)

	r.Get("/create-preference/{productID}/", handler.CreatePreference)
	r.Post("/create-preference/{productID}/", handler.CreatePreference)

	r.Get("/payment/success/{orderID}/", handler.PaymentSuccess)
	r.Get("/payment/failure/{orderID}/", handler.PaymentFailure)
	r.Get("/payment/pending/{orderID}/", handler.PaymentPending)

	// All methods on purpose: the gateway probes with GET and expects 200.
	r.HandleFunc("/webhook", handler.Webhook)

	return r
}
