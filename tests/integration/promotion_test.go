//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepharm/api-server/internal/domain/order"
	"github.com/carepharm/api-server/internal/storage/postgres"
)

// Exercises the real promotion transaction against the compose postgres:
// every staged line must end up bound to the new order id, the staged row
// must be gone, and the finalized copy must be Completed/Paid.
func TestPromote_RebindsLinesAndDeletesStaged(t *testing.T) {
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, hostDatabaseURL)
	require.NoError(t, err)
	defer pool.Close()

	staging := postgres.NewStagingRepository(pool)
	orders := postgres.NewOrderRepository(pool)

	customerID := "promote-test-" + uuid.NewString()
	stagedID := uuid.NewString()
	gatewayOrderID := "order_itest_" + uuid.NewString()

	staged := &order.StagedOrder{
		ID:             stagedID,
		GatewayOrderID: gatewayOrderID,
		Snapshot: order.Snapshot{
			OrderDate:       time.Now().UTC(),
			OrderFrom:       "Application",
			CustomerID:      customerID,
			CustomerEmail:   "promote@example.com",
			PatientName:     "Test Patient",
			PatientPhone:    "9999999999",
			ShippingAddress: "12 Test Lane",
			ShippingPincode: "560001",
			Amount:          decimal.NewFromInt(1290),
			Subtotal:        decimal.NewFromInt(1090),
			ShippingCharge:  decimal.NewFromInt(200),
			PaymentMode:     "Razorpay",
			PaymentOption:   order.PayOnline,
		},
		Status: order.StatusPending,
	}
	lines := []order.Line{
		{OrderID: stagedID, ProductID: "prod-paracetamol", ProductName: "Paracetamol 500mg", UnitPrice: decimal.NewFromInt(45), Quantity: 2},
		{OrderID: stagedID, ProductID: "prod-bp-monitor", ProductName: "BP Monitor", UnitPrice: decimal.NewFromInt(1000), Quantity: 1},
	}
	require.NoError(t, staging.Create(ctx, staged, lines))

	paymentID := "pay_itest_" + uuid.NewString()
	newOrderID := uuid.NewString()
	require.NoError(t, staging.Promote(ctx, gatewayOrderID, paymentID, newOrderID))

	// The staged row is gone.
	_, err = staging.FindByGatewayOrderID(ctx, gatewayOrderID)
	require.ErrorIs(t, err, order.ErrStagedNotFound)

	// Exactly one finalized order exists, Completed and Paid.
	got, total, err := orders.ListByCustomer(ctx, customerID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, got, 1)

	o := got[0]
	assert.Equal(t, newOrderID, o.ID)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.Equal(t, order.PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, paymentID, o.TransactionRef)
	assert.Equal(t, gatewayOrderID, o.GatewayOrderID)
	assert.True(t, o.Amount.Equal(decimal.NewFromInt(1290)), "amount %s", o.Amount)

	// Every line was transferred to the new order id.
	require.Len(t, o.Lines, len(lines))
	for _, l := range o.Lines {
		assert.Equal(t, newOrderID, l.OrderID)
	}

	// No line still references the staged order id.
	var orphaned int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM order_items WHERE order_id = $1", stagedID,
	).Scan(&orphaned))
	assert.Zero(t, orphaned)

	// A replayed promotion finds nothing and creates nothing.
	err = staging.Promote(ctx, gatewayOrderID, paymentID, uuid.NewString())
	require.ErrorIs(t, err, order.ErrStagedNotFound)

	_, total, err = orders.ListByCustomer(ctx, customerID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
