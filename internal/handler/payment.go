package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/order"
)

type verifyPaymentRequest struct {
	PaymentID      string `json:"razorpay_payment_id"`
	GatewayOrderID string `json:"razorpay_order_id"`
	Signature      string `json:"razorpay_signature"`
}

// VerifyPayment handles the gateway's signed payment callback. A valid
// signature promotes the staged order; anything else leaves it untouched.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing required payment details.",
		})
		return
	}

	result, err := h.orders.VerifyPayment(c.Request.Context(), req.PaymentID, req.GatewayOrderID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrMissingPaymentFields):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Missing required payment details.",
			})
		case errors.Is(err, order.ErrPaymentRejected):
			c.JSON(http.StatusForbidden, gin.H{
				"success":  false,
				"redirect": order.RedirectFailed,
				"message":  "Payment verification failed.",
			})
		case errors.Is(err, order.ErrStagedNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Order not found.",
			})
		default:
			zctx.From(c.Request.Context()).Error("Verifying payment", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "An error occurred while verifying payment.",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": result.Redirect,
		"order_id": result.OrderID,
		"message":  "Payment verified and order processed successfully.",
	})
}
