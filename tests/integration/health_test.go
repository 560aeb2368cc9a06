//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp := doGet(t, path, false)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, resp.StatusCode)
			continue
		}

		body := decodeJSON[healthResponse](t, resp)
		if body.Status != "ok" {
			t.Errorf("GET %s: status %q, want ok (checks: %v)", path, body.Status, body.Checks)
		}
	}
}
