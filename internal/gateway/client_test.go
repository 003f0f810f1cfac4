package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreference(t *testing.T) {
	tests := []struct {
		name          string
		mockHandler   func(w http.ResponseWriter, r *http.Request)
		wantErr       bool
		errorContains string
		wantAPIError  bool
		wantInitPoint string
	}{
		{
			name: "Success - 201 Created",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(Preference{
					ID:               "pref-1",
					InitPoint:        "https://gw/pay/abc",
					SandboxInitPoint: "https://sandbox.gw/pay/abc",
				})
			},
			wantInitPoint: "https://gw/pay/abc",
		},
		{
			name: "Success - 200 OK",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(Preference{ID: "pref-2", InitPoint: "https://gw/pay/def"})
			},
			wantInitPoint: "https://gw/pay/def",
		},
		{
			name: "Failure - 400 Bad Request",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"message":"invalid items"}`))
			},
			wantErr:       true,
			wantAPIError:  true,
			errorContains: "invalid items",
		},
		{
			name: "Failure - 500 Internal Server Error",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			},
			wantErr:       true,
			wantAPIError:  true,
			errorContains: "status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq *http.Request
			var gotBody PreferenceRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotReq = r.Clone(context.Background())
				require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
				tt.mockHandler(w, r)
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-token")

			req := &PreferenceRequest{
				Items: []Item{{
					Title:      "Café de grano",
					Quantity:   1,
					CurrencyID: "CLP",
					UnitPrice:  12990,
				}},
				BackURLs: BackURLs{
					Success: "http://store.local/payment/success/7/",
					Failure: "http://store.local/payment/failure/7/",
					Pending: "http://store.local/payment/pending/7/",
				},
				AutoReturn:        "approved",
				ExternalReference: "7",
				NotificationURL:   "http://store.local/webhook",
			}

			pref, err := client.CreatePreference(context.Background(), req)

			require.NotNil(t, gotReq)
			assert.Equal(t, http.MethodPost, gotReq.Method)
			assert.Equal(t, "/checkout/preferences", gotReq.URL.Path)
			assert.Equal(t, "Bearer test-token", gotReq.Header.Get("Authorization"))
			assert.NotEmpty(t, gotReq.Header.Get("X-Idempotency-Key"))
			assert.Equal(t, "7", gotBody.ExternalReference)
			assert.Equal(t, "approved", gotBody.AutoReturn)
			require.Len(t, gotBody.Items, 1)
			assert.Equal(t, "CLP", gotBody.Items[0].CurrencyID)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.errorContains)
				var apiErr *APIError
				assert.Equal(t, tt.wantAPIError, errors.As(err, &apiErr))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantInitPoint, pref.InitPoint)
		})
	}
}

func TestCreatePreferenceTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, "test-token")

	_, err := client.CreatePreference(context.Background(), &PreferenceRequest{})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures must not be APIErrors")
}

func TestGetPayment(t *testing.T) {
	tests := []struct {
		name          string
		mockHandler   func(w http.ResponseWriter, r *http.Request)
		wantErr       bool
		wantAPIError  bool
		wantStatus    string
		wantReference string
	}{
		{
			name: "Success - Approved Payment",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(Payment{
					ID:                314159,
					Status:            "approved",
					ExternalReference: "7",
				})
			},
			wantStatus:    "approved",
			wantReference: "7",
		},
		{
			name: "Failure - 404 Not Found",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"message":"Payment not found"}`))
			},
			wantErr:      true,
			wantAPIError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				tt.mockHandler(w, r)
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-token")

			payment, err := client.GetPayment(context.Background(), "314159")

			assert.Equal(t, "/v1/payments/314159", gotPath)
			assert.Equal(t, "Bearer test-token", gotAuth)

			if tt.wantErr {
				require.Error(t, err)
				var apiErr *APIError
				assert.Equal(t, tt.wantAPIError, errors.As(err, &apiErr))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, payment.Status)
			assert.Equal(t, tt.wantReference, payment.ExternalReference)
		})
	}
}
