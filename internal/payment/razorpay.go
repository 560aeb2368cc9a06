package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

var paiseFactor = decimal.NewFromInt(100)

var _ Gateway = (*Razorpay)(nil)

// Razorpay implements Gateway against the Razorpay Orders API.
type Razorpay struct {
	client   *razorpay.Client
	secret   []byte
	currency string
}

// NewRazorpay creates a Razorpay gateway with the given API credentials.
// The key secret doubles as the HMAC key for callback signature checks.
func NewRazorpay(keyID, keySecret, currency string) *Razorpay {
	return &Razorpay{
		client:   razorpay.NewClient(keyID, keySecret),
		secret:   []byte(keySecret),
		currency: currency,
	}
}

// CreateIntent creates a Razorpay order for the amount, converted to the
// smallest currency unit as the API expects.
func (g *Razorpay) CreateIntent(_ context.Context, amount decimal.Decimal) (*Intent, error) {
	paise := amount.Mul(paiseFactor).Round(0).IntPart()

	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":          paise,
		"currency":        g.currency,
		"payment_capture": 1,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(ErrGateway, err.Error())
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, errors.Wrap(ErrGateway, "order response missing id")
	}

	return &Intent{
		ID:       id,
		Amount:   amount,
		Currency: g.currency,
	}, nil
}

// VerifySignature checks the callback signature: HMAC-SHA256 over
// "<gatewayOrderID>|<paymentID>" keyed with the API secret, compared in
// constant time.
func (g *Razorpay) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
