package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/middleware"
	"hotelrides/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newPaymentRouter(t *testing.T) (*gin.Engine, *paymentEnv, *jwt.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := setupPayment(t)
	tokens := jwt.New("payment-secret", time.Hour)

	h := NewHandler(env.svc, nil)
	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	h.RegisterProtectedRoutes(api.Group("", middleware.JWTAuth(tokens)))
	return r, env, tokens
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHandler_WebhookRejectsBadSignature(t *testing.T) {
	r, env, _ := newPaymentRouter(t)
	b := env.quotedBooking(t)

	body, _ := signedWebhook(t, env.gateway, map[string]interface{}{
		"merchantOrderId": b.Reference,
		"transactionId":   "tx-h1",
		"status":          "SUCCESS",
		"amount":          "115.00",
		"currency":        "EGP",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", decode(t, w).Error.Code)

	got, err := env.repo.GetByReference(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentPending, got.Status)
	assert.Equal(t, domain.PaymentPending, got.Payment.Status)
}

func TestHandler_WebhookAcknowledges(t *testing.T) {
	r, env, _ := newPaymentRouter(t)
	b := env.quotedBooking(t)

	body, sig := signedWebhook(t, env.gateway, map[string]interface{}{
		"merchantOrderId": b.Reference,
		"transactionId":   "tx-h2",
		"status":          "SUCCESS",
		"amount":          "115.00",
		"currency":        "EGP",
	})
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first struct {
		Processed        bool `json:"processed"`
		AlreadyProcessed bool `json:"already_processed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &first))
	assert.True(t, first.Processed)
	assert.False(t, first.AlreadyProcessed)

	w = post()
	require.Equal(t, http.StatusOK, w.Code)
	var second struct {
		AlreadyProcessed bool `json:"already_processed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &second))
	assert.True(t, second.AlreadyProcessed)
}

func TestHandler_WebhookProcessingFailureStillAcknowledged(t *testing.T) {
	r, env, _ := newPaymentRouter(t)

	body, sig := signedWebhook(t, env.gateway, map[string]interface{}{
		"merchantOrderId": "TRB-20260301-UNKNWN",
		"transactionId":   "tx-h3",
		"status":          "SUCCESS",
		"amount":          "10.00",
		"currency":        "EGP",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, sig)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Processed bool `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.False(t, data.Processed)
}

func TestHandler_RedirectThenWebhookConverge(t *testing.T) {
	r, env, tokens := newPaymentRouter(t)
	token, _ := tokens.GenerateToken(guest.ID, "guest", "hotel-1")

	payload, err := json.Marshal(tripRequest())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var co struct {
		Order struct {
			TempReference string `json:"temp_reference"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &co))
	tempRef := co.Order.TempReference

	q := signedRedirect(env.gateway, map[string]string{
		"paymentStatus":   "SUCCESS",
		"merchantOrderId": tempRef,
		"transactionId":   "tx-h4",
		"amount":          "115.00",
		"currency":        "EGP",
	})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/redirect?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Processed bool `json:"processed"`
		Booking   struct {
			Reference string `json:"booking_reference"`
			Status    string `json:"status"`
		} `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	assert.True(t, out.Processed)
	assert.Equal(t, "payment_completed", out.Booking.Status)

	body, sig := signedWebhook(t, env.gateway, map[string]interface{}{
		"merchantOrderId": tempRef,
		"transactionId":   "tx-h4",
		"status":          "SUCCESS",
		"amount":          "115.00",
		"currency":        "EGP",
	})
	hook := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	hook.Header.Set(SignatureHeader, sig)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, hook)
	require.Equal(t, http.StatusOK, w.Code)

	assert.EqualValues(t, 1, env.countBookings(t))
	got, err := env.repo.GetByTransactionID(context.Background(), "tx-h4")
	require.NoError(t, err)
	assert.Equal(t, out.Booking.Reference, got.Reference)
}

func TestHandler_RedirectBadSignature(t *testing.T) {
	r, _, _ := newPaymentRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/redirect?paymentStatus=SUCCESS&merchantOrderId=TMP-x&signature=00", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_RefundForUnpaidBookingNotProcessed(t *testing.T) {
	r, env, _ := newPaymentRouter(t)
	b := env.quotedBooking(t)

	body, sig := signedEvent(t, env.gateway, EventRefund, map[string]interface{}{
		"merchantOrderId": b.Reference,
		"transactionId":   "tx-h9",
		"refundId":        "rf-h9",
		"status":          "SUCCESS",
		"amount":          "115.00",
		"currency":        "EGP",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, sig)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Received  bool `json:"received"`
		Processed bool `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.True(t, data.Received)
	assert.False(t, data.Processed)

	got, err := env.repo.GetByReference(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentPending, got.Status)
	assert.Empty(t, got.Refunds)
}
