// Package notify publishes order lifecycle events for downstream consumers
// (fulfillment, notifications). Publishing is best-effort: a failed publish
// is logged by the caller and never fails the originating request.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys for order lifecycle events.
const (
	KeyOrderPlaced     = "order.placed"
	KeyPaymentCaptured = "payment.captured"
)

// OrderPlacedEvent is emitted when a pay-on-delivery order is finalized.
type OrderPlacedEvent struct {
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentOption string          `json:"paymentOption"`
	PlacedAt      time.Time       `json:"placedAt"`
}

// PaymentCapturedEvent is emitted when an online payment is verified and its
// staged order promoted.
type PaymentCapturedEvent struct {
	OrderID        string          `json:"orderId"`
	GatewayOrderID string          `json:"gatewayOrderId"`
	PaymentID      string          `json:"paymentId"`
	Amount         decimal.Decimal `json:"amount"`
	CapturedAt     time.Time       `json:"capturedAt"`
}

// Publisher delivers an event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}
