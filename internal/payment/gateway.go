// Package payment abstracts the online payment gateway: creating payment
// intents at checkout and verifying signed payment callbacks.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrGateway wraps failures talking to the remote gateway.
var ErrGateway = errors.New("payment gateway error")

// Intent is a gateway-issued reference identifying a pending charge attempt.
type Intent struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
}

// Gateway is the payment provider contract used by the checkout pipeline.
type Gateway interface {
	// CreateIntent registers a pending charge for the given amount (major
	// currency units) and returns the gateway's intent reference. Called
	// exactly once per online order attempt.
	CreateIntent(ctx context.Context, amount decimal.Decimal) (*Intent, error)

	// VerifySignature checks the authenticity of a payment callback for the
	// (gatewayOrderID, paymentID) pair. Pure; no side effects.
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}
