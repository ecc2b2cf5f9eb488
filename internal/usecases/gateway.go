package usecases

import (
	"context"

	"plan-ledger.backend/internal/infrastructure/gateway"
)

// PaymentGateway is the part of the hosted gateway the usecases depend on.
type PaymentGateway interface {
	Configured() bool
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	PaymentURL(order *gateway.Order, req gateway.OrderRequest) string
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}
