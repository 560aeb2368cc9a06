package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/customer"
	"github.com/carepharm/api-server/internal/domain/order"
)

type cartLinePayload struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"unit_quantity"`
	TaxPercent   decimal.Decimal `json:"tax_percent"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
}

type cartPayload struct {
	Items      []cartLinePayload `json:"items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	CouponCode string            `json:"coupon_code"`
	Discount   decimal.Decimal   `json:"discount"`
}

type deliveryAddressPayload struct {
	StreetAddress string `json:"street_address"`
	Pincode       string `json:"pincode"`
}

type makeOrderRequest struct {
	Cart              cartPayload            `json:"cart"`
	Address           deliveryAddressPayload `json:"address"`
	PatientName       string                 `json:"patient_name"`
	PatientPhone      string                 `json:"patient_phone"`
	PrescriptionID    string                 `json:"prescription_id"`
	HospitalName      string                 `json:"hospital_name"`
	DoctorName        string                 `json:"doctor_name"`
	PrescriptionNotes string                 `json:"prescription_notes"`
	PaymentOption     string                 `json:"payment_option"`
	PaymentMode       string                 `json:"payment_mode"`
}

type paymentIntentPayload struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

type lineResponse struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"unit_quantity"`
	TaxPercent   decimal.Decimal `json:"tax_percent"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
}

type orderResponse struct {
	OrderID         string          `json:"order_id"`
	OrderDate       time.Time       `json:"order_date"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status,omitempty"`
	PaymentOption   string          `json:"payment_option"`
	PaymentMode     string          `json:"payment_mode"`
	PatientName     string          `json:"patient_name"`
	ShippingAddress string          `json:"shipping_address"`
	ShippingPincode string          `json:"shipping_pincode"`
	Amount          decimal.Decimal `json:"amount"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	CouponDiscount  decimal.Decimal `json:"coupon_discount"`
	ShippingCharge  decimal.Decimal `json:"shipping_charge"`
	Details         []lineResponse  `json:"details"`
}

func toOrderResponse(o order.Order) orderResponse {
	details := make([]lineResponse, len(o.Lines))
	for i, l := range o.Lines {
		details[i] = lineResponse{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			ProductImage: l.ProductImage,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			TaxPercent:   l.TaxPercent,
			TaxAmount:    l.TaxAmount,
		}
	}
	return orderResponse{
		OrderID:         o.ID,
		OrderDate:       o.OrderDate,
		Status:          string(o.Status),
		PaymentStatus:   o.PaymentStatus,
		PaymentOption:   string(o.PaymentOption),
		PaymentMode:     o.PaymentMode,
		PatientName:     o.PatientName,
		ShippingAddress: o.ShippingAddress,
		ShippingPincode: o.ShippingPincode,
		Amount:          o.Amount,
		CouponCode:      o.CouponCode,
		CouponDiscount:  o.CouponDiscount,
		ShippingCharge:  o.ShippingCharge,
		Details:         details,
	}
}

// MakeOrder places an order for the authenticated customer. Pay-on-delivery
// orders are finalized immediately; online orders answer with a payment
// intent the client settles through the gateway checkout.
func (h *Handler) MakeOrder(c *gin.Context) {
	var req makeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, message("Invalid request body."))
		return
	}

	lines := make([]order.CartLine, len(req.Cart.Items))
	for i, it := range req.Cart.Items {
		lines[i] = order.CartLine{
			ProductID:  it.ProductID,
			Title:      it.ProductName,
			Image:      it.ProductImage,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			TaxPercent: it.TaxPercent,
			TaxAmount:  it.TaxAmount,
		}
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), order.PlaceOrderRequest{
		CustomerID: customerID(c),
		Lines:      lines,
		CartTotal:  req.Cart.TotalPrice,
		Address: order.DeliveryAddress{
			StreetAddress: req.Address.StreetAddress,
			Pincode:       req.Address.Pincode,
		},
		PatientName:       req.PatientName,
		PatientPhone:      req.PatientPhone,
		PrescriptionID:    req.PrescriptionID,
		HospitalName:      req.HospitalName,
		DoctorName:        req.DoctorName,
		PrescriptionNotes: req.PrescriptionNotes,
		CouponCode:        req.Cart.CouponCode,
		CouponDiscount:    req.Cart.Discount,
		PaymentOption:     order.PaymentOption(req.PaymentOption),
		PaymentMode:       req.PaymentMode,
	})
	if err != nil {
		switch {
		case errors.Is(err, customer.ErrNotFound):
			c.JSON(http.StatusNotFound, message("User not found."))
		case errors.Is(err, order.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, message("Product details are required."))
		case errors.Is(err, order.ErrMissingAddress):
			c.JSON(http.StatusBadRequest, message("Delivery address is required."))
		case errors.Is(err, order.ErrMissingPatient):
			c.JSON(http.StatusBadRequest, message("Patient details are required."))
		default:
			zctx.From(c.Request.Context()).Error("Placing order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, message("An error occurred while creating the order."))
		}
		return
	}

	if result.Mode == order.ModeOnlinePending {
		c.JSON(http.StatusCreated, gin.H{
			"message":  "Order created successfully. Please pay.",
			"order_id": result.Staged.ID,
			"payment": paymentIntentPayload{
				GatewayOrderID: result.Intent.ID,
				Amount:         result.Intent.Amount,
				Currency:       result.Intent.Currency,
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully.",
		"order":   toOrderResponse(*result.Order),
	})
}

// GetMyOrders returns a page of the customer's order history, newest first.
func (h *Handler) GetMyOrders(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	orders, totalPages, err := h.orders.ListOrders(c.Request.Context(), customerID(c), page, limit)
	if err != nil {
		if errors.Is(err, order.ErrNoOrders) {
			c.JSON(http.StatusNotFound, message("No orders found"))
			return
		}
		zctx.From(c.Request.Context()).Error("Listing orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, message("Internal server error"))
		return
	}

	data := make([]orderResponse, len(orders))
	for i, o := range orders {
		data[i] = toOrderResponse(o)
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Orders fetched successfully",
		"data":       data,
		"totalPages": totalPages,
	})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
