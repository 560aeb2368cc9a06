package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment status of a finalized order. Only two values
// exist in this pipeline: Pending (pay-on-delivery, or awaiting out-of-band
// fulfillment updates) and Completed (reached exclusively through successful
// payment verification).
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// PaymentStatusPaid marks an order whose online payment has been captured.
const PaymentStatusPaid = "Paid"

// PaymentOption selects the checkout path.
type PaymentOption string

const (
	// PayOnline defers commitment until the gateway confirms payment.
	PayOnline PaymentOption = "Online"
	// PayOnDelivery commits the order immediately with payment due at
	// delivery. Any option other than PayOnline takes this path.
	PayOnDelivery PaymentOption = "COD"
)

// RedirectSuccess and RedirectFailed are client redirect hints returned from
// payment verification.
const (
	RedirectSuccess = "success_screen"
	RedirectFailed  = "failed_screen"
)

var (
	// ErrEmptyCart is returned when an order carries no line items.
	ErrEmptyCart = errors.New("product details are required")
	// ErrMissingAddress is returned when the delivery address lacks a street
	// address or pincode.
	ErrMissingAddress = errors.New("delivery address is required")
	// ErrMissingPatient is returned when patient name or phone is absent.
	ErrMissingPatient = errors.New("patient details are required")
	// ErrMissingPaymentFields is returned when a payment callback omits any
	// of its three identifiers.
	ErrMissingPaymentFields = errors.New("missing required payment details")
	// ErrPaymentRejected is returned when the gateway signature check fails.
	ErrPaymentRejected = errors.New("payment verification failed")
	// ErrStagedNotFound is returned when no staged order matches a gateway
	// order id, including replays after a successful promotion.
	ErrStagedNotFound = errors.New("staged order not found")
	// ErrNoOrders is returned when a customer's order history is empty.
	ErrNoOrders = errors.New("no orders found")
)

// Snapshot holds the order fields shared by staged and finalized orders.
type Snapshot struct {
	OrderDate         time.Time
	OrderFrom         string
	CustomerID        string
	CustomerEmail     string
	PatientName       string
	PatientPhone      string
	PrescriptionID    string
	HospitalName      string
	DoctorName        string
	PrescriptionNotes string
	ShippingAddress   string
	ShippingPincode   string
	Amount            decimal.Decimal
	Subtotal          decimal.Decimal
	CouponCode        string
	CouponDiscount    decimal.Decimal
	ShippingCharge    decimal.Decimal
	AdditionalCharge  decimal.Decimal
	PaymentMode       string
	PaymentOption     PaymentOption
}

// Order is a finalized, billable order. Immutable once created except for
// fulfillment-status updates outside this pipeline.
type Order struct {
	ID string
	Snapshot
	Status         Status
	PaymentStatus  string
	TransactionRef string
	GatewayOrderID string
	Lines          []Line
}

// StagedOrder holds an online order awaiting payment confirmation. It must
// never outlive its promotion: the row is deleted in the same transaction
// that creates the finalized copy.
type StagedOrder struct {
	ID             string
	GatewayOrderID string
	Snapshot
	Status         Status
	PaymentStatus  string
	TransactionRef string
}

// Line is a single order line item, bound to a staged order id at creation
// and re-bound to the finalized order id at promotion.
type Line struct {
	ID           int64
	OrderID      string
	ProductID    string
	ProductName  string
	ProductImage string
	UnitPrice    decimal.Decimal
	Quantity     int
	TaxPercent   decimal.Decimal
	TaxAmount    decimal.Decimal
}

// Repository is the finalized order store.
type Repository interface {
	// Create persists an order and its lines in a single transaction.
	Create(ctx context.Context, o *Order, lines []Line) error
	// ListByCustomer returns a page of the customer's orders, newest first,
	// with lines embedded, plus the total order count for pagination.
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, int, error)
}

// StagingRepository is the durable holding area for orders with an
// outstanding payment obligation.
type StagingRepository interface {
	// Create persists a staged order and its lines in a single transaction.
	Create(ctx context.Context, o *StagedOrder, lines []Line) error
	// FindByGatewayOrderID resolves a staged order by its payment intent
	// reference. Returns ErrStagedNotFound when absent.
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*StagedOrder, error)
	// Promote atomically marks the staged order paid, copies it into the
	// finalized store under newOrderID with status Completed, re-binds its
	// lines to newOrderID, and deletes the staged row. Returns
	// ErrStagedNotFound when the staged order vanished, e.g. a concurrent
	// promotion already completed.
	Promote(ctx context.Context, gatewayOrderID, paymentID, newOrderID string) error
}

// CouponUsageRecorder records a coupon redemption at order commit time.
// Implemented by the coupon repository.
type CouponUsageRecorder interface {
	IncrementUses(ctx context.Context, code string) error
}
