package v1

import (
	"io"
	"net/http"

	"go-saas-backend/internal/delivery/http/middleware"
	"go-saas-backend/internal/delivery/http/response"
	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingUC domain.BillingUsecase
}

// NewBillingHandler mounts the billing routes. The webhook is public: Stripe
// authenticates with its signature header, not a bearer token.
func NewBillingHandler(public, protected *gin.RouterGroup, billingUC domain.BillingUsecase) {
	handler := &BillingHandler{billingUC: billingUC}

	public.POST("/billing/webhook", handler.Webhook)

	billing := protected.Group("/billing")
	{
		billing.GET("/subscription", handler.GetSubscription)
		billing.POST("/create-checkout-session", handler.CreateCheckoutSession)
		billing.POST("/create-portal-session", handler.CreatePortalSession)
	}
}

type CheckoutRequest struct {
	PriceID string `json:"price_id" binding:"required"`
}

func (h *BillingHandler) GetSubscription(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	info, err := h.billingUC.Subscription(c.Request.Context(), user)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	url, err := h.billingUC.CreateCheckoutSession(c.Request.Context(), user, req.PriceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	url, err := h.billingUC.CreatePortalSession(c.Request.Context(), user)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(apperror.BadRequest("Invalid payload"))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.billingUC.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
