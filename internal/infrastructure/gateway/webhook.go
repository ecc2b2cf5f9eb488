package gateway

import (
	"encoding/json"
	"errors"
)

// Webhook event names acted upon.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

// WebhookEvent is the subset of a gateway webhook the ledger needs.
type WebhookEvent struct {
	Event            string
	GatewayOrderID   string
	GatewayPaymentID string
	FailureReason    string
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook decodes a verified webhook body.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrMalformedEvent
	}
	if env.Event == "" {
		return nil, ErrMalformedEvent
	}

	orderID := env.Payload.Payment.Entity.OrderID
	if orderID == "" {
		orderID = env.Payload.Order.Entity.ID
	}

	return &WebhookEvent{
		Event:            env.Event,
		GatewayOrderID:   orderID,
		GatewayPaymentID: env.Payload.Payment.Entity.ID,
		FailureReason:    env.Payload.Payment.Entity.ErrorDescription,
	}, nil
}
