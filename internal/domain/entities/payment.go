package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment represents one checkout attempt for a plan
type Payment struct {
	ID               uuid.UUID     `json:"id"`
	AccountID        uuid.UUID     `json:"accountId"`
	Email            string        `json:"email"`
	Amount           int64         `json:"amount"`
	Currency         Currency      `json:"currency"`
	Plan             Plan          `json:"plan"`
	GatewayOrderID   null.String   `json:"gatewayOrderId"`
	GatewayPaymentID null.String   `json:"gatewayPaymentId"`
	Status           PaymentStatus `json:"status"`
	FailureReason    null.String   `json:"failureReason,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
}

// CheckoutInput represents POST /payments/orders
type CheckoutInput struct {
	Amount    int64     `json:"amount" binding:"required,gt=0"`
	Plan      string    `json:"plan" binding:"required,plan"`
	Currency  string    `json:"currency" binding:"omitempty,currency"`
	AccountID uuid.UUID `json:"accountId" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
}

// CheckoutResult is returned once the gateway order exists.
type CheckoutResult struct {
	PaymentURL     string `json:"paymentUrl"`
	GatewayOrderID string `json:"gatewayOrderId"`
}

// SignedConfirmation is the client-relayed gateway signature.
type SignedConfirmation struct {
	GatewayOrderID   string    `json:"gatewayOrderId" binding:"required"`
	GatewayPaymentID string    `json:"gatewayPaymentId" binding:"required"`
	Signature        string    `json:"signature" binding:"required"`
	AccountID        uuid.UUID `json:"accountId"`
	Plan             string    `json:"plan"`
}

// RedirectConfirmation is what the gateway appends to the browser redirect.
// Status is informational unless Signature verifies.
type RedirectConfirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Status           string
}

// RedirectOutcome is what the UI is told after a redirect.
type RedirectOutcome string

const (
	RedirectSuccess RedirectOutcome = "success"
	RedirectPending RedirectOutcome = "pending"
	RedirectFailed  RedirectOutcome = "failed"
	RedirectInvalid RedirectOutcome = "invalid"
)

// ReconcileChannel names where a confirmation came from.
type ReconcileChannel string

const (
	ChannelSigned   ReconcileChannel = "signed"
	ChannelRedirect ReconcileChannel = "redirect"
	ChannelWebhook  ReconcileChannel = "webhook"
)
