package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carepharm/api-server/internal/domain/order"
)

const (
	orderColumns = `id, order_date, order_from, customer_id, customer_email,
		patient_name, patient_phone, prescription_id, hospital_name, doctor_name,
		prescription_notes, shipping_address, shipping_pincode, amount, subtotal,
		coupon_code, coupon_discount, shipping_charge, additional_charge,
		payment_mode, payment_option, status, payment_status, transaction_ref,
		gateway_order_id`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`

	insertStagedOrderSQL = `INSERT INTO staged_orders (id, gateway_order_id, order_date,
		order_from, customer_id, customer_email, patient_name, patient_phone,
		prescription_id, hospital_name, doctor_name, prescription_notes,
		shipping_address, shipping_pincode, amount, subtotal, coupon_code,
		coupon_discount, shipping_charge, additional_charge, payment_mode,
		payment_option, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name,
		product_image, unit_price, quantity, tax_percent, tax_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1 ORDER BY order_date DESC LIMIT $2 OFFSET $3`

	countOrdersSQL = `SELECT COUNT(*) FROM orders WHERE customer_id = $1`

	listItemsSQL = `SELECT id, order_id, product_id, product_name, product_image,
		unit_price, quantity, tax_percent, tax_amount
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	findStagedSQL = `SELECT id, gateway_order_id, order_date, order_from, customer_id,
		customer_email, patient_name, patient_phone, prescription_id, hospital_name,
		doctor_name, prescription_notes, shipping_address, shipping_pincode, amount,
		subtotal, coupon_code, coupon_discount, shipping_charge, additional_charge,
		payment_mode, payment_option, status, payment_status, transaction_ref
		FROM staged_orders WHERE gateway_order_id = $1`

	lockStagedSQL = `SELECT id FROM staged_orders WHERE gateway_order_id = $1 FOR UPDATE`

	markStagedPaidSQL = `UPDATE staged_orders
		SET payment_status = $2, transaction_ref = $3
		WHERE gateway_order_id = $1`

	copyStagedToOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		SELECT $2, order_date, order_from, customer_id, customer_email,
			patient_name, patient_phone, prescription_id, hospital_name, doctor_name,
			prescription_notes, shipping_address, shipping_pincode, amount, subtotal,
			coupon_code, coupon_discount, shipping_charge, additional_charge,
			payment_mode, payment_option, 'Completed', 'Paid', $3, gateway_order_id
		FROM staged_orders WHERE gateway_order_id = $1`

	rebindItemsSQL = `UPDATE order_items SET order_id = $2 WHERE order_id = $1`

	deleteStagedSQL = `DELETE FROM staged_orders WHERE gateway_order_id = $1`
)

var (
	_ order.Repository        = (*OrderRepository)(nil)
	_ order.StagingRepository = (*StagingRepository)(nil)
)

// OrderRepository implements the finalized order store backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order and all its lines in a single transaction, so a
// partially written order cannot exist.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, lines []order.Line) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderDate, o.OrderFrom, o.CustomerID, o.CustomerEmail,
		o.PatientName, o.PatientPhone, o.PrescriptionID, o.HospitalName, o.DoctorName,
		o.PrescriptionNotes, o.ShippingAddress, o.ShippingPincode, o.Amount, o.Subtotal,
		o.CouponCode, o.CouponDiscount, o.ShippingCharge, o.AdditionalCharge,
		o.PaymentMode, string(o.PaymentOption), string(o.Status), o.PaymentStatus,
		o.TransactionRef, o.GatewayOrderID,
	); err != nil {
		return errors.Wrapf(err, "inserting order %q", o.ID)
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			o.ID, l.ProductID, l.ProductName, l.ProductImage,
			l.UnitPrice, l.Quantity, l.TaxPercent, l.TaxAmount,
		); err != nil {
			return errors.Wrapf(err, "inserting line for order %q", o.ID)
		}
	}

	return tx.Commit(ctx)
}

// ListByCustomer returns a page of the customer's orders, newest first, with
// lines embedded, plus the total order count.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]order.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, customerID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "counting orders")
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, customerID, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing orders")
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing orders")
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// attachLines fetches the lines for every order in one query and distributes
// them by parent id.
func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, listItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "listing order lines")
	}

	lines, err := pgx.CollectRows(rows, scanLine)
	if err != nil {
		return errors.Wrap(err, "listing order lines")
	}

	for _, l := range lines {
		if o, ok := byID[l.OrderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return nil
}

// StagingRepository implements the staged order store backed by PostgreSQL.
type StagingRepository struct {
	pool *pgxpool.Pool
}

// NewStagingRepository returns a StagingRepository that uses the given pool.
func NewStagingRepository(pool *pgxpool.Pool) *StagingRepository {
	return &StagingRepository{pool: pool}
}

// Create persists a staged order and its lines in a single transaction.
func (r *StagingRepository) Create(ctx context.Context, o *order.StagedOrder, lines []order.Line) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertStagedOrderSQL,
		o.ID, o.GatewayOrderID, o.OrderDate, o.OrderFrom, o.CustomerID,
		o.CustomerEmail, o.PatientName, o.PatientPhone, o.PrescriptionID,
		o.HospitalName, o.DoctorName, o.PrescriptionNotes, o.ShippingAddress,
		o.ShippingPincode, o.Amount, o.Subtotal, o.CouponCode, o.CouponDiscount,
		o.ShippingCharge, o.AdditionalCharge, o.PaymentMode,
		string(o.PaymentOption), string(o.Status),
	); err != nil {
		return errors.Wrapf(err, "inserting staged order %q", o.ID)
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			o.ID, l.ProductID, l.ProductName, l.ProductImage,
			l.UnitPrice, l.Quantity, l.TaxPercent, l.TaxAmount,
		); err != nil {
			return errors.Wrapf(err, "inserting line for staged order %q", o.ID)
		}
	}

	return tx.Commit(ctx)
}

// FindByGatewayOrderID resolves a staged order by its payment intent id.
func (r *StagingRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.StagedOrder, error) {
	rows, err := r.pool.Query(ctx, findStagedSQL, gatewayOrderID)
	if err != nil {
		return nil, errors.Wrapf(err, "finding staged order %q", gatewayOrderID)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanStagedOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrStagedNotFound
		}
		return nil, errors.Wrapf(err, "finding staged order %q", gatewayOrderID)
	}
	return &o, nil
}

// Promote runs the full staged-to-finalized sequence in one transaction:
// lock the staged row, mark it paid, copy it into orders as Completed/Paid,
// re-bind its lines to the new order id, and delete it. Any failure rolls
// everything back, so a paid staged order can never be left orphaned.
//
// The row lock serializes concurrent promotions of the same intent: the
// loser of the race observes the deleted row and gets ErrStagedNotFound.
func (r *StagingRepository) Promote(ctx context.Context, gatewayOrderID, paymentID, newOrderID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stagedID string
	if err := tx.QueryRow(ctx, lockStagedSQL, gatewayOrderID).Scan(&stagedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrStagedNotFound
		}
		return errors.Wrapf(err, "locking staged order %q", gatewayOrderID)
	}

	if _, err := tx.Exec(ctx, markStagedPaidSQL, gatewayOrderID, order.PaymentStatusPaid, paymentID); err != nil {
		return errors.Wrapf(err, "marking staged order %q paid", gatewayOrderID)
	}

	tag, err := tx.Exec(ctx, copyStagedToOrderSQL, gatewayOrderID, newOrderID, paymentID)
	if err != nil {
		return errors.Wrapf(err, "copying staged order %q", gatewayOrderID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStagedNotFound
	}

	if _, err := tx.Exec(ctx, rebindItemsSQL, stagedID, newOrderID); err != nil {
		return errors.Wrapf(err, "re-binding lines of staged order %q", gatewayOrderID)
	}

	if _, err := tx.Exec(ctx, deleteStagedSQL, gatewayOrderID); err != nil {
		return errors.Wrapf(err, "deleting staged order %q", gatewayOrderID)
	}

	return tx.Commit(ctx)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		paymentOption string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.OrderDate, &o.OrderFrom, &o.CustomerID, &o.CustomerEmail,
		&o.PatientName, &o.PatientPhone, &o.PrescriptionID, &o.HospitalName,
		&o.DoctorName, &o.PrescriptionNotes, &o.ShippingAddress, &o.ShippingPincode,
		&o.Amount, &o.Subtotal, &o.CouponCode, &o.CouponDiscount, &o.ShippingCharge,
		&o.AdditionalCharge, &o.PaymentMode, &paymentOption, &status,
		&o.PaymentStatus, &o.TransactionRef, &o.GatewayOrderID,
	)
	o.PaymentOption = order.PaymentOption(paymentOption)
	o.Status = order.Status(status)
	return o, err
}

func scanStagedOrder(row pgx.CollectableRow) (order.StagedOrder, error) {
	var (
		o             order.StagedOrder
		paymentOption string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.GatewayOrderID, &o.OrderDate, &o.OrderFrom, &o.CustomerID,
		&o.CustomerEmail, &o.PatientName, &o.PatientPhone, &o.PrescriptionID,
		&o.HospitalName, &o.DoctorName, &o.PrescriptionNotes, &o.ShippingAddress,
		&o.ShippingPincode, &o.Amount, &o.Subtotal, &o.CouponCode, &o.CouponDiscount,
		&o.ShippingCharge, &o.AdditionalCharge, &o.PaymentMode, &paymentOption,
		&status, &o.PaymentStatus, &o.TransactionRef,
	)
	o.PaymentOption = order.PaymentOption(paymentOption)
	o.Status = order.Status(status)
	return o, err
}

func scanLine(row pgx.CollectableRow) (order.Line, error) {
	var (
		l        order.Line
		quantity int32
	)
	err := row.Scan(
		&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.ProductImage,
		&l.UnitPrice, &quantity, &l.TaxPercent, &l.TaxAmount,
	)
	l.Quantity = int(quantity)
	return l, err
}
