package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/infrastructure/gateway"
	"plan-ledger.backend/internal/interfaces/http/middleware"
	"plan-ledger.backend/internal/interfaces/http/response"
)

const maxWebhookBody = 1 << 20

type CheckoutService interface {
	StartCheckout(ctx context.Context, input *entities.CheckoutInput) (*entities.CheckoutResult, error)
}

type ReconciliationService interface {
	VerifySigned(ctx context.Context, input *entities.SignedConfirmation) (*entities.Payment, error)
	HandleRedirect(ctx context.Context, input *entities.RedirectConfirmation) (entities.RedirectOutcome, entities.Plan)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// PaymentHandler handles checkout and gateway confirmations
type PaymentHandler struct {
	checkoutUsecase       CheckoutService
	reconciliationUsecase ReconciliationService
	returnURL             string
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(checkoutUsecase CheckoutService, reconciliationUsecase ReconciliationService, returnURL string) *PaymentHandler {
	RegisterValidators()
	return &PaymentHandler{
		checkoutUsecase:       checkoutUsecase,
		reconciliationUsecase: reconciliationUsecase,
		returnURL:             returnURL,
	}
}

// CreateOrder starts a checkout
// POST /payments/orders
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var input entities.CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(bindMessage(err)))
		return
	}

	// An identified caller may only pay for itself.
	if caller := middleware.GetAccountID(c); caller != uuid.Nil && caller != input.AccountID {
		response.Error(c, domainerrors.ErrForbidden)
		return
	}

	result, err := h.checkoutUsecase.StartCheckout(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Callback receives the browser redirect from the hosted payment page
// GET /payments/callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	outcome, plan := h.reconciliationUsecase.HandleRedirect(c.Request.Context(), &entities.RedirectConfirmation{
		GatewayOrderID:   firstQuery(c, "gatewayOrderId", "razorpay_order_id"),
		GatewayPaymentID: firstQuery(c, "gatewayPaymentId", "razorpay_payment_id"),
		Signature:        firstQuery(c, "signature", "razorpay_signature"),
		Status:           firstQuery(c, "status", "razorpay_payment_status"),
	})

	c.Redirect(http.StatusFound, h.redirectTarget(outcome, plan))
}

// Verify applies a client-relayed signed confirmation
// POST /payments/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	var input entities.SignedConfirmation
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(bindMessage(err)))
		return
	}

	payment, err := h.reconciliationUsecase.VerifySigned(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"plan":    payment.Plan,
		"payment": payment,
	})
}

// Webhook receives server-to-server gateway events
// POST /payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("unreadable body"))
		return
	}

	if err := h.reconciliationUsecase.HandleWebhook(c.Request.Context(), body, c.GetHeader(gateway.WebhookSignatureHeader)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"received": true})
}

func (h *PaymentHandler) redirectTarget(outcome entities.RedirectOutcome, plan entities.Plan) string {
	target, err := url.Parse(h.returnURL)
	if err != nil || h.returnURL == "" {
		target = &url.URL{Path: "/"}
	}
	q := target.Query()
	q.Set("payment", string(outcome))
	if plan != "" {
		q.Set("plan", string(plan))
	}
	target.RawQuery = q.Encode()
	return target.String()
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := c.Query(key); v != "" {
			return v
		}
	}
	return ""
}
