package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/tienda/internal/config"
	"github.com/jcmexdev/tienda/internal/gateway"
	"github.com/jcmexdev/tienda/internal/pkg/cache"
	"github.com/jcmexdev/tienda/internal/store"
)

const (
	// currencyID is the fixed currency sent on every checkout line item.
	currencyID = "CLP"

	// maxDescriptionLen is the gateway's limit on line-item descriptions.
	maxDescriptionLen = 200

	// catalogCacheTTL bounds the staleness of the cached product listing.
	catalogCacheTTL = time.Minute

	// maxWebhookBody bounds how much of a notification body we read.
	maxWebhookBody = int64(64 << 10)
)

// Handler serves the storefront pages, the checkout flow, the gateway's
// redirect callbacks, and the gateway's webhook notifications.
type Handler struct {
	cfg     *config.Config
	ledger  store.Ledger
	gateway *gateway.Client
	catalog cache.Cache // nil-safe: caching skipped if nil
	tracer  trace.Tracer
}

// NewHandler initialises the handler with its required collaborators.
// catalog may be nil — in that case the product listing always hits SQLite.
func NewHandler(cfg *config.Config, ledger store.Ledger, gw *gateway.Client, catalog cache.Cache) *Handler {
	return &Handler{
		cfg:     cfg,
		ledger:  ledger,
		gateway: gw,
		catalog: catalog,
		tracer:  otel.Tracer("storefront-http"),
	}
}

// ProductList renders the catalog, served from the Redis cache when warm.
func (h *Handler) ProductList(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProductList")
	defer span.End()

	var cacheKey string
	if h.catalog != nil {
		cacheKey = h.catalog.GenerateKey("catalog", "all")
		if raw, err := h.catalog.Get(ctx, cacheKey); err == nil && raw != "" {
			var products []store.Product
			if err := json.Unmarshal([]byte(raw), &products); err == nil {
				render(w, http.StatusOK, "product_list.html", productListView{Products: products})
				return
			}
		}
	}

	products, err := h.ledger.ListProducts(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "list products", "error", err)
		renderError(w, http.StatusInternalServerError, "no se pudo cargar el catálogo")
		return
	}

	if h.catalog != nil {
		if raw, err := json.Marshal(products); err == nil {
			if err := h.catalog.Set(ctx, cacheKey, raw, catalogCacheTTL); err != nil {
				slog.WarnContext(ctx, "cache catalog", "error", err)
			}
		}
	}

	render(w, http.StatusOK, "product_list.html", productListView{Products: products})
}

// CreatePreference runs the checkout: it persists a pending order, creates
// a checkout preference at the gateway, and redirects the browser to the
// gateway's checkout page.
//
// The order row is written before the gateway call. A non-2xx gateway
// response keeps the row; a transport failure (including timeout) triggers a
// compensating delete whose outcome is logged explicitly.
func (h *Handler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePreference")
	defer span.End()

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	product, err := h.ledger.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "get product", "product_id", productID, "error", err)
		renderError(w, http.StatusInternalServerError, "no se pudo procesar el pago")
		return
	}

	order := &store.Order{ProductID: product.ID}
	if err := h.ledger.CreateOrder(ctx, order); err != nil {
		slog.ErrorContext(ctx, "create order", "product_id", productID, "error", err)
		renderError(w, http.StatusInternalServerError, "no se pudo procesar el pago")
		return
	}

	slog.InfoContext(ctx, "order created", "order_id", order.ID, "product_id", product.ID)

	pref, err := h.gateway.CreatePreference(ctx, h.buildPreference(product, order))
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			// The gateway answered: keep the pending order in the ledger
			// and surface the raw gateway response.
			slog.ErrorContext(ctx, "gateway rejected preference",
				"order_id", order.ID, "status", apiErr.StatusCode)
			renderError(w, http.StatusBadGateway,
				fmt.Sprintf("error al crear la preferencia de pago: %s", apiErr.Body))
			return
		}

		// Transport failure: the preference may never have reached the
		// gateway, so compensate by deleting the order.
		slog.ErrorContext(ctx, "gateway call failed", "order_id", order.ID, "error", err)
		h.rollbackOrder(ctx, order.ID)
		renderError(w, http.StatusBadGateway,
			fmt.Sprintf("error al procesar el pago: %v", err))
		return
	}

	initPoint := pref.InitPoint
	if h.cfg.Debug {
		initPoint = pref.SandboxInitPoint
	}

	slog.InfoContext(ctx, "redirecting to checkout", "order_id", order.ID, "preference_id", pref.ID)
	http.Redirect(w, r, initPoint, http.StatusFound)
}

// buildPreference assembles the gateway payload for one product.
func (h *Handler) buildPreference(product *store.Product, order *store.Order) *gateway.PreferenceRequest {
	return &gateway.PreferenceRequest{
		Items: []gateway.Item{{
			Title:       product.Name,
			Quantity:    1,
			CurrencyID:  currencyID,
			UnitPrice:   product.Price,
			Description: truncate(product.Description, maxDescriptionLen),
		}},
		BackURLs: gateway.BackURLs{
			Success: fmt.Sprintf("%s/payment/success/%d/", h.cfg.BaseURL, order.ID),
			Failure: fmt.Sprintf("%s/payment/failure/%d/", h.cfg.BaseURL, order.ID),
			Pending: fmt.Sprintf("%s/payment/pending/%d/", h.cfg.BaseURL, order.ID),
		},
		AutoReturn:        "approved",
		ExternalReference: strconv.FormatInt(order.ID, 10),
		NotificationURL:   h.cfg.BaseURL + "/webhook",
	}
}

// rollbackOrder deletes the order created for a failed checkout and logs an
// explicit outcome either way, so a leaked row is visible in the logs
// instead of silently swallowed.
func (h *Handler) rollbackOrder(ctx context.Context, orderID int64) {
	if err := h.ledger.DeleteOrder(ctx, orderID); err != nil {
		slog.ErrorContext(ctx, "order rollback failed", "order_id", orderID, "error", err)
		return
	}
	slog.InfoContext(ctx, "order rolled back", "order_id", orderID)
}

// PaymentSuccess is the gateway's success redirect. It trusts the
// caller-supplied payment_id and status query parameters without
// re-verifying them against the gateway; the webhook is the only
// gateway-verified path. Legacy behavior, kept deliberately.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentSuccess")
	defer span.End()

	order, ok := h.orderFromPath(ctx, w, r)
	if !ok {
		return
	}

	paymentID := r.URL.Query().Get("payment_id")
	status := r.URL.Query().Get("status")

	if err := h.ledger.SetPayment(ctx, order.ID, paymentID, store.StatusCompleted); err != nil {
		slog.ErrorContext(ctx, "mark order completed", "order_id", order.ID, "error", err)
		renderError(w, http.StatusInternalServerError, "no se pudo actualizar la orden")
		return
	}
	order.PaymentID = paymentID
	order.PaymentStatus = store.StatusCompleted

	render(w, http.StatusOK, "payment_success.html", paymentSuccessView{
		Order:     order,
		PaymentID: paymentID,
		Status:    status,
	})
}

// PaymentFailure is the gateway's failure redirect.
func (h *Handler) PaymentFailure(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentFailure")
	defer span.End()

	order, ok := h.orderFromPath(ctx, w, r)
	if !ok {
		return
	}

	if err := h.ledger.SetPayment(ctx, order.ID, order.PaymentID, store.StatusFailed); err != nil {
		slog.ErrorContext(ctx, "mark order failed", "order_id", order.ID, "error", err)
		renderError(w, http.StatusInternalServerError, "no se pudo actualizar la orden")
		return
	}
	order.PaymentStatus = store.StatusFailed

	render(w, http.StatusOK, "payment_failure.html", paymentFailureView{
		Order: order,
		Error: r.URL.Query().Get("error"),
	})
}

// PaymentPending is the gateway's pending redirect.
func (h *Handler) PaymentPending(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentPending")
	defer span.End()

	order, ok := h.orderFromPath(ctx, w, r)
	if !ok {
		return
	}

	if err := h.ledger.SetPayment(ctx, order.ID, order.PaymentID, store.StatusPending); err != nil {
		slog.ErrorContext(ctx, "mark order pending", "order_id", order.ID, "error", err)
		renderError(w, http.StatusInternalServerError, "no se pudo actualizar la orden")
		return
	}
	order.PaymentStatus = store.StatusPending

	render(w, http.StatusOK, "payment_pending.html", paymentPendingView{Order: order})
}

// Webhook receives asynchronous payment notifications from the gateway.
// Unlike the redirect callbacks it fetches the authoritative payment record
// before touching the ledger. Non-POST requests are acknowledged with 200
// and ignored.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "Webhook")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.ErrorContext(ctx, "webhook read body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var note gateway.WebhookNotification
	if err := json.Unmarshal(body, &note); err != nil {
		slog.ErrorContext(ctx, "webhook parse body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if note.Type != "payment" {
		w.WriteHeader(http.StatusOK)
		return
	}

	payment, err := h.gateway.GetPayment(ctx, note.Data.ID)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			// The gateway answered but not with the payment; acknowledge
			// so it does not retry forever.
			slog.WarnContext(ctx, "webhook payment lookup rejected",
				"payment_id", note.Data.ID, "status", apiErr.StatusCode)
			w.WriteHeader(http.StatusOK)
			return
		}
		slog.ErrorContext(ctx, "webhook payment lookup failed", "payment_id", note.Data.ID, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if payment.ExternalReference == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	orderID, err := strconv.ParseInt(payment.ExternalReference, 10, 64)
	if err != nil {
		// The reference does not name any order of ours, so answer 404 like
		// any other unknown order. Earlier storefront versions surfaced this
		// as a 400; 404 is deliberate since the reference is self-issued.
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// The gateway's status string is persisted verbatim, even when it falls
	// outside the local pending/completed/failed set.
	if err := h.ledger.SetPayment(ctx, orderID, note.Data.ID, payment.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "webhook update order", "order_id", orderID, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "order updated from webhook",
		"order_id", orderID, "payment_id", note.Data.ID, "status", payment.Status)
	w.WriteHeader(http.StatusOK)
}

// orderFromPath resolves the {orderID} path parameter to a ledger row,
// writing a 404 and returning ok=false when it does not exist.
func (h *Handler) orderFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request) (*store.Order, bool) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}

	order, err := h.ledger.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		slog.ErrorContext(ctx, "get order", "order_id", orderID, "error", err)
		renderError(w, http.StatusInternalServerError, "no se pudo cargar la orden")
		return nil, false
	}
	return order, true
}

// truncate cuts s to at most n runes, matching the gateway's limit on
// line-item descriptions.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
