package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/customer"
	"github.com/carepharm/api-server/internal/notify"
	"github.com/carepharm/api-server/internal/payment"
)

// Charges configures the derived charges applied at checkout.
type Charges struct {
	// FreeShippingOver is the cart total above which shipping is free.
	FreeShippingOver decimal.Decimal
	// ShippingFee is the flat fee charged at or below the threshold.
	ShippingFee decimal.Decimal
}

// DefaultCharges matches the production fee schedule.
func DefaultCharges() Charges {
	return Charges{
		FreeShippingOver: decimal.NewFromInt(1500),
		ShippingFee:      decimal.NewFromInt(200),
	}
}

// ShippingFor returns the shipping charge for a cart total: free above the
// threshold, flat fee at or below it.
func (c Charges) ShippingFor(cartTotal decimal.Decimal) decimal.Decimal {
	if cartTotal.GreaterThan(c.FreeShippingOver) {
		return decimal.Zero
	}
	return c.ShippingFee
}

// CartLine is a client-supplied order line.
type CartLine struct {
	ProductID  string
	Title      string
	Image      string
	UnitPrice  decimal.Decimal
	Quantity   int
	TaxPercent decimal.Decimal
	TaxAmount  decimal.Decimal
}

// DeliveryAddress is the destination for an order.
type DeliveryAddress struct {
	StreetAddress string
	Pincode       string
}

// PlaceOrderRequest is the input to order placement.
type PlaceOrderRequest struct {
	CustomerID        string
	Lines             []CartLine
	CartTotal         decimal.Decimal
	Address           DeliveryAddress
	PatientName       string
	PatientPhone      string
	PrescriptionID    string
	HospitalName      string
	DoctorName        string
	PrescriptionNotes string
	CouponCode        string
	CouponDiscount    decimal.Decimal
	PaymentOption     PaymentOption
	PaymentMode       string
}

// Mode tells the caller which commit path was taken.
type Mode string

const (
	// ModePayOnDelivery means a finalized order exists.
	ModePayOnDelivery Mode = "pay_on_delivery"
	// ModeOnlinePending means a staged order awaits payment confirmation.
	ModeOnlinePending Mode = "online_pending"
)

// PlaceOrderResult is the outcome of order placement. Order is set on the
// pay-on-delivery path; Staged and Intent on the online path.
type PlaceOrderResult struct {
	Mode   Mode
	Order  *Order
	Staged *StagedOrder
	Intent *payment.Intent
}

// Service is the order commit engine: it validates checkout input, computes
// charges, and commits through the pay-on-delivery or online path.
type Service struct {
	customers customer.Repository
	orders    Repository
	staging   StagingRepository
	gateway   payment.Gateway
	coupons   CouponUsageRecorder
	publisher notify.Publisher
	charges   Charges
	now       func() time.Time
}

// NewService creates a Service. publisher may be nil, in which case no
// events are emitted.
func NewService(
	customers customer.Repository,
	orders Repository,
	staging StagingRepository,
	gateway payment.Gateway,
	coupons CouponUsageRecorder,
	publisher notify.Publisher,
	charges Charges,
) *Service {
	return &Service{
		customers: customers,
		orders:    orders,
		staging:   staging,
		gateway:   gateway,
		coupons:   coupons,
		publisher: publisher,
		charges:   charges,
		now:       time.Now,
	}
}

// PlaceOrder validates the request and commits it. Pay-on-delivery orders
// are finalized immediately with status Pending; online orders are staged
// against a freshly created gateway payment intent.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	cust, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrap(err, "resolve customer")
	}

	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if req.Address.StreetAddress == "" || req.Address.Pincode == "" {
		return nil, ErrMissingAddress
	}
	if req.PatientName == "" || req.PatientPhone == "" {
		return nil, ErrMissingPatient
	}

	snap := s.buildSnapshot(req, cust)

	if req.PaymentOption == PayOnline {
		return s.placeOnline(ctx, snap, req.Lines)
	}
	return s.placeOnDelivery(ctx, snap, req.Lines)
}

func (s *Service) buildSnapshot(req PlaceOrderRequest, cust *customer.Customer) Snapshot {
	mode := req.PaymentMode
	if mode == "" {
		mode = "Razorpay"
	}
	option := req.PaymentOption
	if option == "" {
		option = PayOnline
	}

	return Snapshot{
		OrderDate:         s.now(),
		OrderFrom:         "Application",
		CustomerID:        cust.ID,
		CustomerEmail:     cust.Email,
		PatientName:       req.PatientName,
		PatientPhone:      req.PatientPhone,
		PrescriptionID:    req.PrescriptionID,
		HospitalName:      req.HospitalName,
		DoctorName:        req.DoctorName,
		PrescriptionNotes: req.PrescriptionNotes,
		ShippingAddress:   req.Address.StreetAddress,
		ShippingPincode:   req.Address.Pincode,
		Amount:            req.CartTotal,
		Subtotal:          req.CartTotal,
		CouponCode:        req.CouponCode,
		CouponDiscount:    req.CouponDiscount,
		ShippingCharge:    s.charges.ShippingFor(req.CartTotal),
		AdditionalCharge:  decimal.Zero,
		PaymentMode:       mode,
		PaymentOption:     option,
	}
}

// placeOnDelivery finalizes the order directly: the order row and every line
// are written in one transaction, so the order either exists with all its
// lines or not at all.
func (s *Service) placeOnDelivery(ctx context.Context, snap Snapshot, cart []CartLine) (*PlaceOrderResult, error) {
	o := &Order{
		ID:       uuid.New().String(),
		Snapshot: snap,
		Status:   StatusPending,
	}
	lines := buildLines(o.ID, cart)

	if err := s.orders.Create(ctx, o, lines); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	o.Lines = lines

	s.recordCouponUse(ctx, snap.CouponCode)
	s.emit(ctx, notify.KeyOrderPlaced, notify.OrderPlacedEvent{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		Amount:        o.Amount,
		PaymentOption: string(o.PaymentOption),
		PlacedAt:      o.OrderDate,
	})

	return &PlaceOrderResult{Mode: ModePayOnDelivery, Order: o}, nil
}

// placeOnline requests a payment intent, then stages the order carrying the
// intent id. No finalized order exists until the callback is verified.
func (s *Service) placeOnline(ctx context.Context, snap Snapshot, cart []CartLine) (*PlaceOrderResult, error) {
	intent, err := s.gateway.CreateIntent(ctx, snap.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	staged := &StagedOrder{
		ID:             uuid.New().String(),
		GatewayOrderID: intent.ID,
		Snapshot:       snap,
		Status:         StatusPending,
	}
	lines := buildLines(staged.ID, cart)

	if err := s.staging.Create(ctx, staged, lines); err != nil {
		return nil, errors.Wrap(err, "create staged order")
	}

	s.recordCouponUse(ctx, snap.CouponCode)

	return &PlaceOrderResult{Mode: ModeOnlinePending, Staged: staged, Intent: intent}, nil
}

// ListOrders returns a page of the customer's order history, newest first,
// with lines embedded. Returns ErrNoOrders when the customer has none.
func (s *Service) ListOrders(ctx context.Context, customerID string, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	orders, total, err := s.orders.ListByCustomer(ctx, customerID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	if total == 0 {
		return nil, 0, ErrNoOrders
	}

	totalPages := (total + limit - 1) / limit
	return orders, totalPages, nil
}

func buildLines(orderID string, cart []CartLine) []Line {
	lines := make([]Line, len(cart))
	for i, c := range cart {
		lines[i] = Line{
			OrderID:      orderID,
			ProductID:    c.ProductID,
			ProductName:  c.Title,
			ProductImage: c.Image,
			UnitPrice:    c.UnitPrice,
			Quantity:     c.Quantity,
			TaxPercent:   c.TaxPercent,
			TaxAmount:    c.TaxAmount,
		}
	}
	return lines
}

// recordCouponUse bumps the redemption counter. Counts are recorded on every
// order carrying a coupon code but enforce nothing on their own: they only
// become a limit when the evaluator is given a coupon.MaxUsesPolicy, the
// default policy being unlimited. Best-effort, failures are logged and
// swallowed.
func (s *Service) recordCouponUse(ctx context.Context, code string) {
	if code == "" || s.coupons == nil {
		return
	}
	if err := s.coupons.IncrementUses(ctx, code); err != nil {
		zctx.From(ctx).Warn("Coupon usage increment failed",
			zap.String("code", code), zap.Error(err))
	}
}

// emit publishes an event in the background so a slow or down broker never
// delays the request.
func (s *Service) emit(ctx context.Context, key string, event any) {
	if s.publisher == nil {
		return
	}
	lg := zctx.From(ctx)
	go func() {
		if err := s.publisher.Publish(context.Background(), key, event); err != nil {
			lg.Warn("Event publish failed", zap.String("key", key), zap.Error(err))
		}
	}()
}
