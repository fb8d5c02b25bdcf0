package affiliate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelink/affbridge/internal/models"
	"github.com/storelink/affbridge/internal/testlog"
)

func TestSendOrderForwardsNulls(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/orders", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(accessTokenHeader))
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	c := NewClient(http.DefaultClient, srv.URL, "tok", testlog.New(t))
	push := models.OrderPush{OrderID: 42, Total: decimal.NewFromInt(100), Currency: "USD", StoreID: "1"}
	require.NoError(t, c.SendOrder(context.Background(), push))

	// coupon and email stay explicit nulls for the platform's own matching
	assert.Contains(t, got, "coupon")
	assert.Nil(t, got["coupon"])
	assert.Contains(t, got, "email")
	assert.Nil(t, got["email"])
}

func TestSendOrderSkippedWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a token")
	}))
	defer srv.Close()

	c := NewClient(http.DefaultClient, srv.URL, "", testlog.New(t))
	assert.NoError(t, c.SendOrder(context.Background(), models.OrderPush{OrderID: 1}))
}

func TestAssignCoupon(t *testing.T) {
	var path, code string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		code = in["code"]
	}))
	defer srv.Close()

	c := NewClient(http.DefaultClient, srv.URL, "tok", testlog.New(t))
	require.NoError(t, c.AssignCoupon(context.Background(), "7", "CAFE10"))
	assert.Equal(t, "/admin/affiliates/7/coupons", path)
	assert.Equal(t, "CAFE10", code)
}

func TestSendOrderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(http.DefaultClient, srv.URL, "tok", testlog.New(t))
	err := c.SendOrder(context.Background(), models.OrderPush{OrderID: 1})
	assert.ErrorContains(t, err, "502")
}
