package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/infrastructure/gateway"
)

const testReturnURL = "https://app.example.com/billing?tab=plans"

func paymentRouter(checkout CheckoutService, recon ReconciliationService, caller uuid.UUID) *gin.Engine {
	h := NewPaymentHandler(checkout, recon, testReturnURL)
	r := gin.New()
	r.Use(withCaller(caller))
	r.POST("/payments/orders", h.CreateOrder)
	r.GET("/payments/callback", h.Callback)
	r.POST("/payments/verify", h.Verify)
	r.POST("/payments/webhook", h.Webhook)
	return r
}

func TestPaymentHandler_CreateOrder(t *testing.T) {
	accountID := uuid.New()
	order := gin.H{
		"amount": 49900, "plan": "pro", "accountId": accountID.String(), "email": "ann@example.com",
	}

	t.Run("success", func(t *testing.T) {
		checkout := new(MockCheckoutService)
		checkout.On("StartCheckout", mock.Anything, mock.MatchedBy(func(in *entities.CheckoutInput) bool {
			return in.AccountID == accountID && in.Amount == 49900 && in.Plan == "pro"
		})).Return(&entities.CheckoutResult{PaymentURL: "https://pay.example/o1", GatewayOrderID: "order_1"}, nil)

		w := doJSON(t, paymentRouter(checkout, new(MockReconciliationService), uuid.Nil), http.MethodPost, "/payments/orders", order)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "https://pay.example/o1", body["paymentUrl"])
		assert.Equal(t, "order_1", body["gatewayOrderId"])
	})

	t.Run("other caller forbidden", func(t *testing.T) {
		checkout := new(MockCheckoutService)
		w := doJSON(t, paymentRouter(checkout, new(MockReconciliationService), uuid.New()), http.MethodPost, "/payments/orders", order)
		assert.Equal(t, http.StatusForbidden, w.Code)
		checkout.AssertNotCalled(t, "StartCheckout", mock.Anything, mock.Anything)
	})

	t.Run("unconfigured gateway", func(t *testing.T) {
		checkout := new(MockCheckoutService)
		checkout.On("StartCheckout", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrGatewayUnconfigured)
		w := doJSON(t, paymentRouter(checkout, new(MockReconciliationService), accountID), http.MethodPost, "/payments/orders", order)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("upstream failure is generic", func(t *testing.T) {
		checkout := new(MockCheckoutService)
		checkout.On("StartCheckout", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrUpstreamGateway)
		w := doJSON(t, paymentRouter(checkout, new(MockReconciliationService), uuid.Nil), http.MethodPost, "/payments/orders", order)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	tests := []struct {
		name string
		body gin.H
	}{
		{"zero amount", gin.H{"amount": 0, "plan": "pro", "accountId": accountID.String(), "email": "ann@example.com"}},
		{"unknown plan", gin.H{"amount": 100, "plan": "gold", "accountId": accountID.String(), "email": "ann@example.com"}},
		{"bad currency", gin.H{"amount": 100, "plan": "pro", "currency": "EUR", "accountId": accountID.String(), "email": "ann@example.com"}},
		{"bad email", gin.H{"amount": 100, "plan": "pro", "accountId": accountID.String(), "email": "nope"}},
		{"missing account", gin.H{"amount": 100, "plan": "pro", "email": "ann@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout := new(MockCheckoutService)
			w := doJSON(t, paymentRouter(checkout, new(MockReconciliationService), uuid.Nil), http.MethodPost, "/payments/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			checkout.AssertNotCalled(t, "StartCheckout", mock.Anything, mock.Anything)
		})
	}
}

func TestPaymentHandler_Callback(t *testing.T) {
	recon := new(MockReconciliationService)
	recon.On("HandleRedirect", mock.Anything, &entities.RedirectConfirmation{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		Signature:        "sig",
	}).Return(entities.RedirectSuccess, entities.PlanPro)
	recon.On("HandleRedirect", mock.Anything, &entities.RedirectConfirmation{
		GatewayOrderID:   "order_2",
		GatewayPaymentID: "pay_2",
		Status:           "failed",
	}).Return(entities.RedirectFailed, entities.PlanStarter)
	r := paymentRouter(new(MockCheckoutService), recon, uuid.Nil)

	t.Run("gateway style params", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/payments/callback?razorpay_order_id=order_1&razorpay_payment_id=pay_1&razorpay_signature=sig", nil)
		require.Equal(t, http.StatusFound, w.Code)

		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "app.example.com", loc.Host)
		assert.Equal(t, "/billing", loc.Path)
		assert.Equal(t, "success", loc.Query().Get("payment"))
		assert.Equal(t, "pro", loc.Query().Get("plan"))
		assert.Equal(t, "plans", loc.Query().Get("tab"))
	})

	t.Run("plain params", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/payments/callback?gatewayOrderId=order_2&gatewayPaymentId=pay_2&status=failed", nil)
		require.Equal(t, http.StatusFound, w.Code)
		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "failed", loc.Query().Get("payment"))
	})
	recon.AssertExpectations(t)
}

func TestPaymentHandler_Verify(t *testing.T) {
	confirmation := gin.H{"gatewayOrderId": "order_1", "gatewayPaymentId": "pay_1", "signature": "sig"}

	t.Run("success", func(t *testing.T) {
		recon := new(MockReconciliationService)
		recon.On("VerifySigned", mock.Anything, mock.MatchedBy(func(in *entities.SignedConfirmation) bool {
			return in.GatewayOrderID == "order_1" && in.Signature == "sig"
		})).Return(&entities.Payment{ID: uuid.New(), Plan: entities.PlanPro, Status: entities.PaymentStatusCompleted}, nil)

		w := doJSON(t, paymentRouter(new(MockCheckoutService), recon, uuid.Nil), http.MethodPost, "/payments/verify", confirmation)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "pro", body["plan"])
	})

	t.Run("bad signature", func(t *testing.T) {
		recon := new(MockReconciliationService)
		recon.On("VerifySigned", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrInvalidSignature)

		w := doJSON(t, paymentRouter(new(MockCheckoutService), recon, uuid.Nil), http.MethodPost, "/payments/verify", confirmation)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, domainerrors.CodeInvalidSignature, decodeBody(t, w)["code"])
	})

	t.Run("missing signature", func(t *testing.T) {
		recon := new(MockReconciliationService)
		w := doJSON(t, paymentRouter(new(MockCheckoutService), recon, uuid.Nil), http.MethodPost, "/payments/verify",
			gin.H{"gatewayOrderId": "order_1", "gatewayPaymentId": "pay_1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		recon.AssertNotCalled(t, "VerifySigned", mock.Anything, mock.Anything)
	})
}

func TestPaymentHandler_Webhook(t *testing.T) {
	payload := []byte(`{"event":"payment.captured"}`)

	send := func(r http.Handler, sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(payload))
		req.Header.Set(gateway.WebhookSignatureHeader, sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	recon := new(MockReconciliationService)
	recon.On("HandleWebhook", mock.Anything, payload, "good").Return(nil)
	recon.On("HandleWebhook", mock.Anything, payload, "bad").Return(domainerrors.ErrInvalidSignature)
	r := paymentRouter(new(MockCheckoutService), recon, uuid.Nil)

	w := send(r, "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["received"])

	w = send(r, "bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	recon.AssertExpectations(t)
}

func TestRedirectTarget_FallsBackToRoot(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "")
	assert.Equal(t, "/?payment=invalid", h.redirectTarget(entities.RedirectInvalid, ""))
}
