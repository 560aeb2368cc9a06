package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/coupon"
)

type cartProductPayload struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
}

type applyCouponRequest struct {
	CouponCode string               `json:"coupon_code"`
	Products   []cartProductPayload `json:"products"`
	TotalPrice decimal.Decimal      `json:"total_price"`
}

type couponResponse struct {
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	Percentage  decimal.Decimal `json:"percentage,omitempty"`
	Description string          `json:"description,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// ApplyCoupon quotes the discount a coupon code yields for the submitted
// cart.
func (h *Handler) ApplyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	items := make([]coupon.Item, len(req.Products))
	for i, p := range req.Products {
		items[i] = coupon.Item{ProductID: p.ProductID, Price: p.Price}
	}

	quote, err := h.coupons.Evaluate(c.Request.Context(), req.CouponCode, items, req.TotalPrice)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrCodeRequired):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Coupon code is required"})
		case errors.Is(err, coupon.ErrInvalidCoupon):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid coupon code"})
		case errors.Is(err, coupon.ErrCouponExpired):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Coupon has expired"})
		case errors.Is(err, coupon.ErrUsageLimitReached):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Coupon usage limit exceeded"})
		case errors.Is(err, coupon.ErrNotApplicable):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Coupon not applicable to any cart items"})
		default:
			zctx.From(c.Request.Context()).Error("Evaluating coupon", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Coupon applied successfully",
		"discount":   quote.Discount,
		"grandTotal": quote.GrandTotal,
	})
}

// ListCoupons returns every coupon on file so clients can surface available
// promotions.
func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.catalog.List(c.Request.Context())
	if err != nil {
		zctx.From(c.Request.Context()).Error("Listing coupons", zap.Error(err))
		c.JSON(http.StatusInternalServerError, message("Internal server error"))
		return
	}

	out := make([]couponResponse, len(coupons))
	for i, cp := range coupons {
		out[i] = couponResponse{
			Code:        cp.Code,
			Type:        string(cp.Type),
			Amount:      cp.Amount,
			Percentage:  cp.Percentage,
			Description: cp.Description,
			ExpiresAt:   cp.ExpiresAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"coupons": out})
}
