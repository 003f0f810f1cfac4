package httpx

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/jcmexdev/tienda/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var views = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type productListView struct {
	Products []store.Product
}

type paymentSuccessView struct {
	Order     *store.Order
	PaymentID string
	Status    string
}

type paymentFailureView struct {
	Order *store.Order
	Error string
}

type paymentPendingView struct {
	Order *store.Order
}

type errorView struct {
	Error string
}

func render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render template", "template", name, "error", err)
	}
}

func renderError(w http.ResponseWriter, status int, msg string) {
	render(w, status, "error.html", errorView{Error: msg})
}
