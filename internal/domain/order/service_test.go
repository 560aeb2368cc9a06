package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepharm/api-server/internal/domain/customer"
	"github.com/carepharm/api-server/internal/payment"
)

type mockCustomerRepo struct {
	customer *customer.Customer
	err      error
}

func (m *mockCustomerRepo) FindByID(_ context.Context, _ string) (*customer.Customer, error) {
	return m.customer, m.err
}

type mockOrderRepo struct {
	created      *Order
	createdLines []Line
	createErr    error

	listOrders []Order
	listTotal  int
	listErr    error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, lines []Line) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	m.createdLines = lines
	return nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, _ string, _, _ int) ([]Order, int, error) {
	return m.listOrders, m.listTotal, m.listErr
}

type mockStagingRepo struct {
	created      *StagedOrder
	createdLines []Line
	createErr    error

	staged  *StagedOrder
	findErr error

	promoteErr     error
	promotedPayID  string
	promotedNewID  string
	promoteCalled  bool
	promoteGWOrder string
}

func (m *mockStagingRepo) Create(_ context.Context, o *StagedOrder, lines []Line) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	m.createdLines = lines
	return nil
}

func (m *mockStagingRepo) FindByGatewayOrderID(_ context.Context, _ string) (*StagedOrder, error) {
	return m.staged, m.findErr
}

func (m *mockStagingRepo) Promote(_ context.Context, gatewayOrderID, paymentID, newOrderID string) error {
	m.promoteCalled = true
	m.promoteGWOrder = gatewayOrderID
	m.promotedPayID = paymentID
	m.promotedNewID = newOrderID
	return m.promoteErr
}

type mockGateway struct {
	intent      *payment.Intent
	createErr   error
	createCalls int

	verifyOK bool
}

func (m *mockGateway) CreateIntent(_ context.Context, amount decimal.Decimal) (*payment.Intent, error) {
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.intent != nil {
		return m.intent, nil
	}
	return &payment.Intent{ID: "rzp_order_1", Amount: amount, Currency: "INR"}, nil
}

func (m *mockGateway) VerifySignature(_, _, _ string) bool {
	return m.verifyOK
}

type mockUsageRecorder struct {
	codes []string
	err   error
}

func (m *mockUsageRecorder) IncrementUses(_ context.Context, code string) error {
	m.codes = append(m.codes, code)
	return m.err
}

func testCustomer() *customer.Customer {
	return &customer.Customer{ID: "cust-1", Name: "Asha", Email: "asha@example.com"}
}

func validRequest(option PaymentOption, total int64) PlaceOrderRequest {
	return PlaceOrderRequest{
		CustomerID: "cust-1",
		Lines: []CartLine{
			{ProductID: "p1", Title: "Paracetamol", UnitPrice: decimal.NewFromInt(total), Quantity: 1},
		},
		CartTotal:     decimal.NewFromInt(total),
		Address:       DeliveryAddress{StreetAddress: "12 MG Road", Pincode: "560001"},
		PatientName:   "Asha",
		PatientPhone:  "9999999999",
		PaymentOption: option,
	}
}

func TestPlaceOrder_PayOnDelivery(t *testing.T) {
	customers := &mockCustomerRepo{customer: testCustomer()}
	orders := &mockOrderRepo{}
	staging := &mockStagingRepo{}
	gateway := &mockGateway{}
	usage := &mockUsageRecorder{}

	s := NewService(customers, orders, staging, gateway, usage, nil, DefaultCharges())

	result, err := s.PlaceOrder(context.Background(), validRequest(PayOnDelivery, 2000))
	require.NoError(t, err)

	assert.Equal(t, ModePayOnDelivery, result.Mode)
	require.NotNil(t, result.Order)
	assert.Equal(t, StatusPending, result.Order.Status)
	assert.NotEmpty(t, result.Order.ID)
	assert.Len(t, orders.createdLines, 1)
	assert.Equal(t, result.Order.ID, orders.createdLines[0].OrderID)

	// Above the free shipping threshold.
	assert.True(t, result.Order.ShippingCharge.IsZero())

	// No gateway interaction, nothing staged.
	assert.Zero(t, gateway.createCalls)
	assert.Nil(t, staging.created)
}

func TestPlaceOrder_Online(t *testing.T) {
	customers := &mockCustomerRepo{customer: testCustomer()}
	orders := &mockOrderRepo{}
	staging := &mockStagingRepo{}
	gateway := &mockGateway{}

	s := NewService(customers, orders, staging, gateway, nil, nil, DefaultCharges())

	result, err := s.PlaceOrder(context.Background(), validRequest(PayOnline, 800))
	require.NoError(t, err)

	assert.Equal(t, ModeOnlinePending, result.Mode)
	require.NotNil(t, result.Staged)
	require.NotNil(t, result.Intent)
	assert.Equal(t, 1, gateway.createCalls, "exactly one payment intent")
	assert.Equal(t, "rzp_order_1", result.Staged.GatewayOrderID)
	assert.Equal(t, StatusPending, result.Staged.Status)

	// At or below the threshold the flat fee applies.
	assert.True(t, result.Staged.ShippingCharge.Equal(decimal.NewFromInt(200)))

	// Lines bound to the staged order id; no finalized order exists.
	require.Len(t, staging.createdLines, 1)
	assert.Equal(t, result.Staged.ID, staging.createdLines[0].OrderID)
	assert.Nil(t, orders.created)
}

func TestPlaceOrder_ShippingBoundary(t *testing.T) {
	customers := &mockCustomerRepo{customer: testCustomer()}
	orders := &mockOrderRepo{}

	s := NewService(customers, orders, &mockStagingRepo{}, &mockGateway{}, nil, nil, DefaultCharges())

	// Exactly at the threshold still pays the fee.
	result, err := s.PlaceOrder(context.Background(), validRequest(PayOnDelivery, 1500))
	require.NoError(t, err)
	assert.True(t, result.Order.ShippingCharge.Equal(decimal.NewFromInt(200)))

	result, err = s.PlaceOrder(context.Background(), validRequest(PayOnDelivery, 1501))
	require.NoError(t, err)
	assert.True(t, result.Order.ShippingCharge.IsZero())
}

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlaceOrderRequest)
		repo    *mockCustomerRepo
		wantErr error
	}{
		{
			name:    "unknown customer",
			mutate:  func(_ *PlaceOrderRequest) {},
			repo:    &mockCustomerRepo{err: customer.ErrNotFound},
			wantErr: customer.ErrNotFound,
		},
		{
			name:    "empty cart",
			mutate:  func(r *PlaceOrderRequest) { r.Lines = nil },
			repo:    &mockCustomerRepo{customer: testCustomer()},
			wantErr: ErrEmptyCart,
		},
		{
			name:    "missing street address",
			mutate:  func(r *PlaceOrderRequest) { r.Address.StreetAddress = "" },
			repo:    &mockCustomerRepo{customer: testCustomer()},
			wantErr: ErrMissingAddress,
		},
		{
			name:    "missing pincode",
			mutate:  func(r *PlaceOrderRequest) { r.Address.Pincode = "" },
			repo:    &mockCustomerRepo{customer: testCustomer()},
			wantErr: ErrMissingAddress,
		},
		{
			name:    "missing patient phone",
			mutate:  func(r *PlaceOrderRequest) { r.PatientPhone = "" },
			repo:    &mockCustomerRepo{customer: testCustomer()},
			wantErr: ErrMissingPatient,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.repo, &mockOrderRepo{}, &mockStagingRepo{}, &mockGateway{}, nil, nil, DefaultCharges())

			req := validRequest(PayOnDelivery, 500)
			tt.mutate(&req)

			_, err := s.PlaceOrder(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPlaceOrder_RecordsCouponUse(t *testing.T) {
	customers := &mockCustomerRepo{customer: testCustomer()}
	usage := &mockUsageRecorder{}

	s := NewService(customers, &mockOrderRepo{}, &mockStagingRepo{}, &mockGateway{}, usage, nil, DefaultCharges())

	req := validRequest(PayOnDelivery, 900)
	req.CouponCode = "SAVE10"
	req.CouponDiscount = decimal.NewFromInt(90)

	_, err := s.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"SAVE10"}, usage.codes)
}

func TestListOrders(t *testing.T) {
	customers := &mockCustomerRepo{customer: testCustomer()}

	t.Run("computes total pages", func(t *testing.T) {
		orders := &mockOrderRepo{
			listOrders: []Order{{ID: "o1"}, {ID: "o2"}},
			listTotal:  25,
		}
		s := NewService(customers, orders, &mockStagingRepo{}, &mockGateway{}, nil, nil, DefaultCharges())

		got, totalPages, err := s.ListOrders(context.Background(), "cust-1", 1, 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, 3, totalPages)
	})

	t.Run("defaults page and limit", func(t *testing.T) {
		orders := &mockOrderRepo{listOrders: []Order{{ID: "o1"}}, listTotal: 1}
		s := NewService(customers, orders, &mockStagingRepo{}, &mockGateway{}, nil, nil, DefaultCharges())

		_, totalPages, err := s.ListOrders(context.Background(), "cust-1", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, totalPages)
	})

	t.Run("no orders", func(t *testing.T) {
		orders := &mockOrderRepo{}
		s := NewService(customers, orders, &mockStagingRepo{}, &mockGateway{}, nil, nil, DefaultCharges())

		_, _, err := s.ListOrders(context.Background(), "cust-1", 1, 10)
		assert.ErrorIs(t, err, ErrNoOrders)
	})
}
