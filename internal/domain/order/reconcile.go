package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/carepharm/api-server/internal/notify"
)

// PromotionResult reports a successful staged-to-finalized promotion.
type PromotionResult struct {
	OrderID  string
	Redirect string
}

// VerifyPayment authenticates a gateway payment callback and promotes the
// matching staged order into a finalized one.
//
// The promotion itself (mark paid, copy, re-bind lines, delete staged) runs
// in a single transaction inside the staging repository, so a failure at any
// point leaves the staged order untouched and retryable. A replay after a
// successful promotion finds no staged order and returns ErrStagedNotFound
// rather than producing a duplicate finalized order.
func (s *Service) VerifyPayment(ctx context.Context, paymentID, gatewayOrderID, signature string) (*PromotionResult, error) {
	if paymentID == "" || gatewayOrderID == "" || signature == "" {
		return nil, ErrMissingPaymentFields
	}

	if !s.gateway.VerifySignature(gatewayOrderID, paymentID, signature) {
		return nil, ErrPaymentRejected
	}

	staged, err := s.staging.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, ErrStagedNotFound) {
			return nil, ErrStagedNotFound
		}
		return nil, errors.Wrap(err, "find staged order")
	}

	newOrderID := uuid.New().String()
	if err := s.staging.Promote(ctx, gatewayOrderID, paymentID, newOrderID); err != nil {
		if errors.Is(err, ErrStagedNotFound) {
			return nil, ErrStagedNotFound
		}
		return nil, errors.Wrap(err, "promote staged order")
	}

	s.emit(ctx, notify.KeyPaymentCaptured, notify.PaymentCapturedEvent{
		OrderID:        newOrderID,
		GatewayOrderID: gatewayOrderID,
		PaymentID:      paymentID,
		Amount:         staged.Amount,
		CapturedAt:     s.now(),
	})

	return &PromotionResult{
		OrderID:  newOrderID,
		Redirect: RedirectSuccess,
	}, nil
}
