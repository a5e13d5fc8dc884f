package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"krume-backend/config"
	"krume-backend/internal/domain"
	infracache "krume-backend/internal/infrastructure/cache"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		ShippingBaseURL:        srv.URL,
		ShippingEmail:          "ops@krume.test",
		ShippingPassword:       "secret",
		ShippingPickupLocation: "Primary",
		ShippingTokenTTL:       time.Hour,
		ShippingTimeout:        2 * time.Second,
	}
	return NewClient(cfg, infracache.NewMemoryCache(time.Hour, time.Hour), nil)
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:    "ord-1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Linen Shirt", Size: "M", Color: "White", Quantity: 2, Price: 1080},
		},
		ShippingAddress: domain.ShippingAddress{
			FullName: "Asha Rao", Phone: "9999999999", Address: "12 MG Road",
			City: "Pune", State: "MH", PostalCode: "411001", Country: "India",
		},
		PaymentMethod: domain.PaymentMethodCOD,
		ItemsPrice:    2160,
		TaxPrice:      259,
		ShippingPrice: 0,
		TotalPrice:    2419,
	}
}

func TestAuthenticate_CachesToken(t *testing.T) {
	var logins atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@krume.test", body.Email)
		_, _ = w.Write([]byte(`{"token":"tok-1"}`))
	})
	c := newTestClient(t, mux)

	for i := 0; i < 3; i++ {
		token, err := c.Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", token)
	}
	assert.Equal(t, int32(1), logins.Load())
}

func TestAuthenticate_RejectedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid email and password combination"}`, http.StatusBadRequest)
	})
	c := newTestClient(t, mux)

	_, err := c.Authenticate(context.Background())
	assert.Error(t, err)
}

func TestCreateForwardOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders/create/adhoc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body forwardOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ord-1", body.OrderID)
		assert.Equal(t, "COD", body.PaymentMethod)
		assert.Equal(t, "Primary", body.PickupLocation)
		assert.Equal(t, int64(2419), body.SubTotal)
		require.Len(t, body.OrderItems, 1)
		assert.Equal(t, "p1-M-White", body.OrderItems[0].SKU)
		assert.Equal(t, 2, body.OrderItems[0].Units)

		_, _ = w.Write([]byte(`{"order_id":512345,"shipment_id":498765,"status":"NEW"}`))
	})
	c := newTestClient(t, mux)

	ref, err := c.CreateForwardOrder(context.Background(), sampleOrder(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "512345", ref.ExternalOrderID)
	assert.Equal(t, "498765", ref.ExternalShipmentID)
}

func TestCreateReturnOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders/create/return", func(w http.ResponseWriter, r *http.Request) {
		var body returnOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "R-ord-1", body.OrderID)
		assert.Equal(t, "Pune", body.PickupCity)
		_, _ = w.Write([]byte(`{"order_id":777,"shipment_id":778}`))
	})
	c := newTestClient(t, mux)

	id, err := c.CreateReturnOrder(context.Background(), sampleOrder(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "777", id)
}

func TestCancelOrder(t *testing.T) {
	var got cancelRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders/cancel", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.CancelOrder(context.Background(), "512345", "tok-1"))
	assert.Equal(t, []int64{512345}, got.IDs)

	assert.Error(t, c.CancelOrder(context.Background(), "not-a-number", "tok-1"))
}

func TestUnauthorizedDropsCachedToken(t *testing.T) {
	var logins atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	})
	mux.HandleFunc("POST /orders/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := newTestClient(t, mux)

	token, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Error(t, c.CancelOrder(context.Background(), "1", token))

	_, err = c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), logins.Load())
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(&config.Config{ShippingTimeout: time.Second}, infracache.NewMemoryCache(time.Hour, time.Hour), nil)

	_, err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.CreateForwardOrder(context.Background(), sampleOrder(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
