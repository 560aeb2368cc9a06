// Package handler exposes the checkout API over HTTP.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/carepharm/api-server/internal/domain/coupon"
	"github.com/carepharm/api-server/internal/domain/customer"
	"github.com/carepharm/api-server/internal/domain/order"
)

// Handler carries the services behind the HTTP surface.
type Handler struct {
	orders    *order.Service
	coupons   *coupon.Evaluator
	catalog   coupon.Repository
	addresses customer.AddressRepository
}

// New creates a Handler over the given services.
func New(
	orders *order.Service,
	coupons *coupon.Evaluator,
	catalog coupon.Repository,
	addresses customer.AddressRepository,
) *Handler {
	return &Handler{
		orders:    orders,
		coupons:   coupons,
		catalog:   catalog,
		addresses: addresses,
	}
}

// RegisterRoutes mounts the API under /api/v1. authn guards the
// customer-scoped routes; payment callbacks and coupon checks stay public.
func (h *Handler) RegisterRoutes(r gin.IRouter, authn gin.HandlerFunc) {
	v1 := r.Group("/api/v1")

	v1.POST("/verify-payment", h.VerifyPayment)
	v1.POST("/apply-coupon_code", h.ApplyCoupon)
	v1.GET("/check_coupons", h.ListCoupons)

	priv := v1.Group("", authn)
	priv.POST("/make-a-order", h.MakeOrder)
	priv.GET("/get-my-order", h.GetMyOrders)
	priv.POST("/add-new-address", h.AddAddress)
	priv.GET("/get-my-address", h.GetMyAddresses)
	priv.PATCH("/update-my-address/:addressId", h.UpdateAddress)
	priv.DELETE("/delete-my-address/:addressId", h.DeleteAddress)
}

type messageResponse struct {
	Message string `json:"message"`
}

func message(msg string) messageResponse {
	return messageResponse{Message: msg}
}
