package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a customer id does not resolve.
	ErrNotFound = errors.New("customer not found")
	// ErrAddressNotFound is returned when an address id does not resolve for
	// the requesting customer.
	ErrAddressNotFound = errors.New("address not found")
	// ErrEmptyPatch is returned when an address update carries no fields.
	ErrEmptyPatch = errors.New("no fields to update")
)

// Customer is a registered account. Registration and OTP verification happen
// outside this service; orders only need the account to resolve.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Address is a saved delivery address.
type Address struct {
	ID            int64
	CustomerID    string
	City          string
	State         string
	Pincode       string
	HouseNo       string
	StreetAddress string
	Type          string
	CreatedAt     time.Time
}

// AddressPatch enumerates the optional fields of a partial address update.
// Nil fields are left untouched. The storage layer compiles a patch into a
// single parameterized UPDATE.
type AddressPatch struct {
	City          *string
	State         *string
	Pincode       *string
	HouseNo       *string
	StreetAddress *string
	Type          *string
}

// IsEmpty reports whether the patch changes nothing.
func (p AddressPatch) IsEmpty() bool {
	return p.City == nil && p.State == nil && p.Pincode == nil &&
		p.HouseNo == nil && p.StreetAddress == nil && p.Type == nil
}

// Repository provides customer account lookup.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Customer, error)
}

// AddressRepository provides persistence for saved delivery addresses.
type AddressRepository interface {
	Create(ctx context.Context, a *Address) (int64, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Address, error)
	Update(ctx context.Context, customerID string, addressID int64, patch AddressPatch) error
	Delete(ctx context.Context, customerID string, addressID int64) error
}
