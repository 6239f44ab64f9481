package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ctenarsky-denik/journal/internal/middleware"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/webhook"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheckout struct {
	got webhook.CheckoutRequest
	err error
}

func (f *fakeCheckout) CreateCheckout(_ context.Context, req webhook.CheckoutRequest) (string, error) {
	f.got = req
	if f.err != nil {
		return "", f.err
	}
	return "https://checkout.example/session", nil
}

func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, id)
		c.Set(middleware.ContextKeyEmail, id+"@example.com")
		c.Next()
	}
}

func newRouter(t *testing.T, checkout *fakeCheckout) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ledger := quota.NewLedger(quota.NewMemoryStore(), quota.NewMemoryReceipts(), quota.NewPlans(nil), nil)
	prices := webhook.NewPrices(map[string]string{"price_basic": "basic", "price_free": "free"})
	h := NewHandler(ledger, checkout, prices, URLs{Success: "https://app/ok", Cancel: "https://app/cancel"}, nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"), asUser("u1"))
	return r
}

func TestHandler_Account(t *testing.T) {
	t.Parallel()
	r := newRouter(t, &fakeCheckout{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/account", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ID      string        `json:"id"`
		Tier    string        `json:"tier"`
		Credits quota.Balance `json:"credits"`
		Limits  quota.Limits  `json:"limits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.ID)
	assert.Equal(t, "free", body.Tier)
	assert.Equal(t, quota.Balance{Remaining: 3, Total: 3}, body.Credits)
	assert.Equal(t, 20, body.Limits.MaxBooks)
}

func TestHandler_Checkout(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "known price", body: `{"priceId":"price_basic"}`, wantCode: http.StatusOK},
		{name: "free price is not purchasable", body: `{"priceId":"price_free"}`, wantCode: http.StatusUnprocessableEntity},
		{name: "unknown price", body: `{"priceId":"price_x"}`, wantCode: http.StatusUnprocessableEntity},
		{name: "missing price", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "provider failure", body: `{"priceId":"price_basic"}`, err: errors.New("boom"), wantCode: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkout := &fakeCheckout{err: tc.err}
			r := newRouter(t, checkout)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.wantCode, w.Code)
			if tc.wantCode == http.StatusOK {
				assert.Contains(t, w.Body.String(), "https://checkout.example/session")
				assert.Equal(t, "u1", checkout.got.UserID)
				assert.Equal(t, "price_basic", checkout.got.PriceID)
				assert.Equal(t, "https://app/ok", checkout.got.SuccessURL)
			}
		})
	}
}

func TestHandler_CheckoutWhileSubscribed(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	ledger := quota.NewLedger(quota.NewMemoryStore(), quota.NewMemoryReceipts(), quota.NewPlans(nil), nil)
	prices := webhook.NewPrices(map[string]string{"price_basic": "basic", "price_premium": "premium"})
	checkout := &fakeCheckout{}
	r := gin.New()
	NewHandler(ledger, checkout, prices, URLs{}, nil).RegisterRoutes(r.Group("/api/v1"), asUser("u1"))

	_, err := ledger.Account(ctx, "u1", "")
	require.NoError(t, err)
	basic := quota.TierBasic
	_, err = ledger.Apply(ctx, "u1", quota.Patch{Tier: &basic, SubscriptionID: quota.Ptr("sub_1")})
	require.NoError(t, err)

	send := func(price string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(`{"priceId":"`+price+`"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusConflict, send("price_basic"))
	assert.Equal(t, http.StatusOK, send("price_premium"))
	assert.Equal(t, "price_premium", checkout.got.PriceID)

	premium := quota.TierPremium
	_, err = ledger.Apply(ctx, "u1", quota.Patch{Tier: &premium})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, send("price_basic"))
}
