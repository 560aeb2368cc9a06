//go:build integration

package integration

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
)

type couponQuote struct {
	Success    bool   `json:"success"`
	Discount   string `json:"discount"`
	GrandTotal string `json:"grandTotal"`
	Message    string `json:"message"`
}

type orderCreated struct {
	Message string `json:"message"`
	Order   struct {
		OrderID        string `json:"order_id"`
		Status         string `json:"status"`
		ShippingCharge string `json:"shipping_charge"`
	} `json:"order"`
}

type orderHistory struct {
	Message    string `json:"message"`
	TotalPages int    `json:"totalPages"`
	Data       []struct {
		OrderID string `json:"order_id"`
		Details []struct {
			ProductID string `json:"product_id"`
		} `json:"details"`
	} `json:"data"`
}

func codOrderBody(total int) map[string]any {
	return map[string]any{
		"cart": map[string]any{
			"items": []map[string]any{
				{"product_id": "prod-paracetamol", "product_name": "Paracetamol 500mg", "unit_price": 45, "unit_quantity": 2},
			},
			"total_price": total,
		},
		"address":        map[string]any{"street_address": "12 MG Road", "pincode": "560001"},
		"patient_name":   "Asha",
		"patient_phone":  "9999999999",
		"payment_option": "COD",
	}
}

func TestApplyCoupon_Save10(t *testing.T) {
	resp := doPost(t, "/api/v1/apply-coupon_code", map[string]any{
		"coupon_code": "SAVE10",
		"products": []map[string]any{
			{"product_id": "prod-paracetamol", "price": 600},
			{"product_id": "prod-vitamin-c", "price": 400},
		},
		"total_price": 1000,
	}, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	quote := decodeJSON[couponQuote](t, resp)
	if quote.Discount != "100" || quote.GrandTotal != "900" {
		t.Errorf("discount=%s grandTotal=%s, want 100/900", quote.Discount, quote.GrandTotal)
	}
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	resp := doPost(t, "/api/v1/apply-coupon_code", map[string]any{
		"coupon_code": "NOPE",
		"products":    []map[string]any{{"product_id": "prod-paracetamol", "price": 100}},
		"total_price": 100,
	}, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestMakeOrder_PayOnDelivery(t *testing.T) {
	resp := doPost(t, "/api/v1/make-a-order", codOrderBody(90), true)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}

	created := decodeJSON[orderCreated](t, resp)
	if created.Order.Status != "Pending" {
		t.Errorf("status %q, want Pending", created.Order.Status)
	}
	if created.Order.ShippingCharge != "200" {
		t.Errorf("shipping %q, want 200", created.Order.ShippingCharge)
	}

	// The order must appear in history with its line items.
	histResp := doGet(t, "/api/v1/get-my-order?page=1&limit=10", true)
	defer histResp.Body.Close()

	if histResp.StatusCode != http.StatusOK {
		t.Fatalf("history status %d, want 200", histResp.StatusCode)
	}

	hist := decodeJSON[orderHistory](t, histResp)
	found := false
	for _, o := range hist.Data {
		if o.OrderID == created.Order.OrderID {
			found = true
			if len(o.Details) != 1 {
				t.Errorf("order %s has %d details, want 1", o.OrderID, len(o.Details))
			}
		}
	}
	if !found {
		t.Errorf("order %s not found in history", created.Order.OrderID)
	}
}

func TestMakeOrder_RequiresAuth(t *testing.T) {
	resp := doPost(t, "/api/v1/make-a-order", codOrderBody(90), false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestVerifyPayment_ForgedSignature(t *testing.T) {
	resp := doPost(t, "/api/v1/verify-payment", map[string]any{
		"razorpay_payment_id": "pay_test",
		"razorpay_order_id":   "order_test",
		"razorpay_signature":  "forged",
	}, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want 403", resp.StatusCode)
	}
}

func TestVerifyPayment_ValidSignatureUnknownOrder(t *testing.T) {
	mac := hmac.New(sha256.New, []byte(testGatewaySecret))
	mac.Write([]byte("order_unknown|pay_test"))
	sig := hex.EncodeToString(mac.Sum(nil))

	resp := doPost(t, "/api/v1/verify-payment", map[string]any{
		"razorpay_payment_id": "pay_test",
		"razorpay_order_id":   "order_unknown",
		"razorpay_signature":  sig,
	}, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	resp := doPost(t, "/api/v1/verify-payment", map[string]any{
		"razorpay_payment_id": "pay_test",
	}, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestAddressLifecycle(t *testing.T) {
	createResp := doPost(t, "/api/v1/add-new-address", map[string]any{
		"city": "Bengaluru", "state": "Karnataka", "pincode": "560001",
		"house_no": "12", "street_address": "MG Road", "type": "Home",
	}, true)
	defer createResp.Body.Close()

	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d, want 201", createResp.StatusCode)
	}

	listResp := doGet(t, "/api/v1/get-my-address", true)
	defer listResp.Body.Close()

	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d, want 200", listResp.StatusCode)
	}
}
