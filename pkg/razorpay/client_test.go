package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimart-health/medimart-backend/pkg/config"
)

func sign(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderRef, paymentRef)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "test_secret_key"
	orderRef := "order_MkWvQ4fP8cXYZa"
	paymentRef := "pay_MkWwR5gQ9dABCd"

	t.Run("valid signature passes", func(t *testing.T) {
		assert.True(t, VerifySignature(secret, orderRef, paymentRef, sign(secret, orderRef, paymentRef)))
	})

	t.Run("tampered payment ref fails", func(t *testing.T) {
		sig := sign(secret, orderRef, paymentRef)
		assert.False(t, VerifySignature(secret, orderRef, "pay_other", sig))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		sig := sign("other_secret", orderRef, paymentRef)
		assert.False(t, VerifySignature(secret, orderRef, paymentRef, sig))
	})

	t.Run("empty inputs fail", func(t *testing.T) {
		assert.False(t, VerifySignature(secret, "", paymentRef, sign(secret, orderRef, paymentRef)))
		assert.False(t, VerifySignature(secret, orderRef, paymentRef, ""))
	})
}

func TestCreateOrder(t *testing.T) {
	t.Run("creates order with basic auth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "rzp_test_key", user)
			assert.Equal(t, "rzp_test_secret", pass)
			assert.Equal(t, "/orders", r.URL.Path)

			var body createOrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(20000), body.Amount)
			assert.Equal(t, "INR", body.Currency)

			json.NewEncoder(w).Encode(Order{
				ID:       "order_MkWvQ4fP8cXYZa",
				Amount:   body.Amount,
				Currency: body.Currency,
				Receipt:  body.Receipt,
				Status:   "created",
			})
		}))
		defer srv.Close()

		client, err := New(config.RazorpayConfig{
			KeyID:   "rzp_test_key",
			Secret:  "rzp_test_secret",
			BaseURL: srv.URL,
			Timeout: 2 * time.Second,
		})
		require.NoError(t, err)

		order, err := client.CreateOrder(context.Background(), 20000, "ord-1001")
		require.NoError(t, err)
		assert.Equal(t, "order_MkWvQ4fP8cXYZa", order.ID)
		assert.Equal(t, int64(20000), order.Amount)
	})

	t.Run("surfaces gateway error description", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount must be at least 100"}}`)
		}))
		defer srv.Close()

		client, err := New(config.RazorpayConfig{
			KeyID:   "rzp_test_key",
			Secret:  "rzp_test_secret",
			BaseURL: srv.URL,
			Timeout: 2 * time.Second,
		})
		require.NoError(t, err)

		_, err = client.CreateOrder(context.Background(), 1, "ord-1002")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "amount must be at least 100")
	})

	t.Run("requires credentials", func(t *testing.T) {
		_, err := New(config.RazorpayConfig{})
		require.Error(t, err)
	})
}
