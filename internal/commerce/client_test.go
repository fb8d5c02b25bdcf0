package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelink/affbridge/internal/config"
	"github.com/storelink/affbridge/internal/models"
	"github.com/storelink/affbridge/internal/store"
	"github.com/storelink/affbridge/internal/testlog"
)

func newClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := store.NewMemoryTokenStore()
	require.NoError(t, tokens.Set(context.Background(), "1", "tok-1"))

	cfg := config.Config{
		CommerceAPIBase:    srv.URL,
		CommerceAPIVersion: "2025-03",
		CommerceTokenURL:   srv.URL + "/oauth/token",
		CommerceUserAgent:  "test-agent",
		CommerceClientID:   "cid",
	}
	return NewClient(http.DefaultClient, tokens, cfg, testlog.New(t)), srv
}

func TestGetOrderAuthAndDecode(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2025-03/1/orders/42", r.URL.Path)
		assert.Equal(t, "bearer tok-1", r.Header.Get("Authentication"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		// the platform serializes totals as strings
		w.Write([]byte(`{"id":42,"coupon":"X","total":"100.50","currency":"USD","customer":{"email":"a@b.com"}}`))
	}))

	order, err := c.GetOrder(context.Background(), "1", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, "X", order.Coupon)
	assert.Equal(t, "100.5", order.Total.String())
	assert.Equal(t, "a@b.com", order.Customer.Email)
}

func TestGetOrderUnknownStore(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a token")
	}))
	_, err := c.GetOrder(context.Background(), "999", 42)
	assert.ErrorContains(t, err, "no token for store 999")
}

func TestEnsureCustomFieldsIdempotent(t *testing.T) {
	var fields []models.CustomField
	var creates int
	nextID := int64(100)

	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(fields)
		case http.MethodPost:
			var cf models.CustomField
			json.NewDecoder(r.Body).Decode(&cf)
			cf.ID = nextID
			nextID++
			creates++
			fields = append(fields, cf)
			json.NewEncoder(w).Encode(cf)
		}
	}))

	required := []string{"UTM Source", "UTM Medium"}
	ctx := context.Background()

	first, err := c.EnsureCustomFields(ctx, "1", required)
	require.NoError(t, err)
	assert.Equal(t, 2, creates)

	second, err := c.EnsureCustomFields(ctx, "1", required)
	require.NoError(t, err)
	// second pass reuses existing definitions
	assert.Equal(t, 2, creates)
	assert.Equal(t, first, second)
}

func TestRegisterWebhookAlreadyExists(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "already registered", http.StatusUnprocessableEntity)
	}))
	// 422 means the subscription exists, not an error
	assert.NoError(t, c.RegisterWebhook(context.Background(), "1", "order/paid", "https://x/webhooks/commerce"))
}

func TestRegisterWebhookOtherError(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	assert.Error(t, c.RegisterWebhook(context.Background(), "1", "order/paid", "https://x/webhooks/commerce"))
}

func TestExchangeCode(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "authorization_code", in["grant_type"])
		assert.Equal(t, "cid", in["client_id"])
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "user_id": 77, "scope": "read_orders"})
	}))

	storeID, token, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "77", storeID)
	assert.Equal(t, "fresh", token)
}

func TestAPIErrorIncludesBody(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	_, err := c.GetOrder(context.Background(), "1", 42)
	assert.ErrorContains(t, err, "429")
	assert.ErrorContains(t, err, "rate limited")
}
