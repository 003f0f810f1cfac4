// Package gateway is a thin client for the Mercado Pago Checkout Pro REST
// API. The storefront only needs two operations: creating a checkout
// preference and fetching a payment by ID.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultTimeout bounds every outbound call. A timed-out call surfaces as a
// transport error, which the checkout handler treats as a checkout failure.
const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the gateway. Body carries the raw
// response so the error page can show the gateway's own details.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client talks to the gateway with a bearer access token.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	tracer      trace.Tracer
}

// NewClient builds a gateway client. baseURL is the API root
// (https://api.mercadopago.com in production, an httptest server in tests).
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		tracer:      otel.Tracer("gateway"),
	}
}

// CreatePreference creates a checkout preference and returns the redirect
// targets. Only 200 and 201 count as success; any other status is an
// *APIError, and network failures are returned wrapped.
func (c *Client) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	ctx, span := c.tracer.Start(ctx, "CreatePreference")
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode preference: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway: build preference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	// The gateway deduplicates retried preference creations by this key.
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: create preference: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read preference response: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &APIError{Operation: "create preference", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var pref Preference
	if err := json.Unmarshal(body, &pref); err != nil {
		return nil, fmt.Errorf("gateway: decode preference response: %w", err)
	}
	return &pref, nil
}

// GetPayment fetches the authoritative payment record for a payment ID.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	ctx, span := c.tracer.Start(ctx, "GetPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", paymentID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: get payment %s: %w", paymentID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read payment response: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Operation: "get payment", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("gateway: decode payment response: %w", err)
	}
	return &payment, nil
}
