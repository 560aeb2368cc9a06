package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carepharm/api-server/internal/domain/customer"
)

const (
	insertAddressSQL = `INSERT INTO addresses (customer_id, city, state, pincode,
		house_no, street_address, type)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`

	listAddressesSQL = `SELECT id, customer_id, city, state, pincode, house_no,
		street_address, type, created_at
		FROM addresses WHERE customer_id = $1 ORDER BY id`

	deleteAddressSQL = `DELETE FROM addresses WHERE customer_id = $1 AND id = $2`
)

var _ customer.AddressRepository = (*AddressRepository)(nil)

// AddressRepository implements customer.AddressRepository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// Create persists a new address and returns its id.
func (r *AddressRepository) Create(ctx context.Context, a *customer.Address) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertAddressSQL,
		a.CustomerID, a.City, a.State, a.Pincode, a.HouseNo, a.StreetAddress, a.Type,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "inserting address")
	}
	return id, nil
}

// ListByCustomer returns every saved address for the customer.
func (r *AddressRepository) ListByCustomer(ctx context.Context, customerID string) ([]customer.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "listing addresses")
	}

	addrs, err := pgx.CollectRows(rows, scanAddress)
	if err != nil {
		return nil, errors.Wrap(err, "listing addresses")
	}
	return addrs, nil
}

// Update applies a typed partial update. The patch's non-nil fields are
// compiled into one parameterized UPDATE; the SQL text only ever contains
// fixed column names and placeholders.
func (r *AddressRepository) Update(ctx context.Context, customerID string, addressID int64, patch customer.AddressPatch) error {
	if patch.IsEmpty() {
		return customer.ErrEmptyPatch
	}

	var (
		set  []string
		args []any
	)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("city", patch.City)
	add("state", patch.State)
	add("pincode", patch.Pincode)
	add("house_no", patch.HouseNo)
	add("street_address", patch.StreetAddress)
	add("type", patch.Type)

	args = append(args, customerID, addressID)
	query := fmt.Sprintf("UPDATE addresses SET %s WHERE customer_id = $%d AND id = $%d",
		strings.Join(set, ", "), len(args)-1, len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "updating address %d", addressID)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrAddressNotFound
	}
	return nil
}

// Delete removes the customer's address.
func (r *AddressRepository) Delete(ctx context.Context, customerID string, addressID int64) error {
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, customerID, addressID)
	if err != nil {
		return errors.Wrapf(err, "deleting address %d", addressID)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrAddressNotFound
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (customer.Address, error) {
	var a customer.Address
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.City, &a.State, &a.Pincode,
		&a.HouseNo, &a.StreetAddress, &a.Type, &a.CreatedAt,
	)
	return a, err
}
