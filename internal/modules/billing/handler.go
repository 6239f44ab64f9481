// Package billing exposes the account view and subscription checkout.
package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ctenarsky-denik/journal/internal/middleware"
	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/webhook"
	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckoutCreator opens a hosted checkout and returns its URL.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, req webhook.CheckoutRequest) (string, error)
}

// URLs are the redirect targets after checkout.
type URLs struct {
	Success string
	Cancel  string
}

type Handler struct {
	ledger   *quota.Ledger
	checkout CheckoutCreator
	prices   webhook.Prices
	urls     URLs
	log      *zap.Logger
}

func NewHandler(ledger *quota.Ledger, checkout CheckoutCreator, prices webhook.Prices, urls URLs, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: ledger, checkout: checkout, prices: prices, urls: urls, log: logger.Named("billing")}
}

// RegisterRoutes mounts the authenticated account routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/account", authMW, h.account)
	rg.POST("/billing/checkout", authMW, h.createCheckout)
}

type accountView struct {
	ID                string        `json:"id"`
	Email             string        `json:"email,omitempty"`
	Tier              quota.Tier    `json:"tier"`
	Credits           quota.Balance `json:"credits"`
	Limits            quota.Limits  `json:"limits"`
	StartDate         *time.Time    `json:"startDate,omitempty"`
	RenewalDate       *time.Time    `json:"renewalDate,omitempty"`
	AutoRenew         bool          `json:"autoRenew"`
	CancelAtPeriodEnd bool          `json:"cancelAtPeriodEnd"`
	BillingInterval   string        `json:"billingInterval,omitempty"`
	IsYearly          bool          `json:"isYearly"`
}

func (h *Handler) view(user *models.UserModel) accountView {
	sub := user.Subscription
	return accountView{
		ID:                user.ID,
		Email:             user.Email,
		Tier:              quota.TierOf(user),
		Credits:           quota.BalanceOf(user),
		Limits:            h.ledger.Limits(user),
		StartDate:         sub.StartDate,
		RenewalDate:       sub.RenewalDate,
		AutoRenew:         sub.AutoRenew,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		BillingInterval:   sub.BillingInterval,
		IsYearly:          sub.IsYearly,
	}
}

func (h *Handler) account(c *gin.Context) {
	user, err := h.ledger.Account(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentEmail(c))
	if err != nil {
		if quota.WriteError(c, err) {
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, h.view(user))
}

type checkoutBody struct {
	PriceID string `json:"priceId" binding:"required"`
}

func (h *Handler) createCheckout(c *gin.Context) {
	var body checkoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tier, ok := h.prices.TierFor(body.PriceID)
	if !ok {
		response.UnprocessableEntity(c, "unknown price")
		return
	}

	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)
	user, err := h.ledger.Account(ctx, userID, middleware.CurrentEmail(c))
	if err != nil {
		if quota.WriteError(c, err) {
			return
		}
		response.InternalError(c, err)
		return
	}
	if user.Subscription.StripeSubscriptionID != "" && quota.TierOf(user).AtLeast(tier) {
		response.Conflict(c, "already subscribed to this plan or a higher one")
		return
	}

	url, err := h.checkout.CreateCheckout(ctx, webhook.CheckoutRequest{
		UserID:     userID,
		Email:      user.Email,
		PriceID:    body.PriceID,
		SuccessURL: h.urls.Success,
		CancelURL:  h.urls.Cancel,
	})
	if err != nil {
		h.log.Error("create checkout failed", zap.String("user", userID), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			response.Error(c, http.StatusGatewayTimeout, "payment provider timed out", nil)
			return
		}
		response.BadGateway(c, "payment provider unavailable")
		return
	}
	response.OK(c, gin.H{"url": url, "tier": tier})
}
