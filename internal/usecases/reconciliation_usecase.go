package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/domain/repositories"
	"plan-ledger.backend/internal/infrastructure/gateway"
	"plan-ledger.backend/pkg/logger"
	"plan-ledger.backend/pkg/metrics"
)

// Reconciliation outcomes as counted in metrics.
const (
	outcomeApplied          = "applied"
	outcomeDuplicate        = "duplicate"
	outcomeFailed           = "failed"
	outcomeUnknownOrder     = "unknown_order"
	outcomeInvalidSignature = "invalid_signature"
	outcomeUnverified       = "unverified"
	outcomeIgnored          = "ignored"
	outcomeError            = "error"
)

// ReconciliationUsecase turns gateway confirmations into a one-time ledger
// transition and plan change.
type ReconciliationUsecase struct {
	accountRepo repositories.AccountRepository
	paymentRepo repositories.PaymentRepository
	uow         repositories.UnitOfWork
	gateway     PaymentGateway
	now         func() time.Time
}

// NewReconciliationUsecase creates a new reconciliation usecase
func NewReconciliationUsecase(
	accountRepo repositories.AccountRepository,
	paymentRepo repositories.PaymentRepository,
	uow repositories.UnitOfWork,
	gw PaymentGateway,
) *ReconciliationUsecase {
	return &ReconciliationUsecase{
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		uow:         uow,
		gateway:     gw,
		now:         time.Now,
	}
}

// VerifySigned applies a client-relayed confirmation once its signature
// checks out. Repeats succeed without a second plan change.
func (u *ReconciliationUsecase) VerifySigned(ctx context.Context, input *entities.SignedConfirmation) (*entities.Payment, error) {
	channel := entities.ChannelSigned

	payment, err := u.resolve(ctx, channel, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	if !u.gateway.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		u.observe(ctx, channel, outcomeInvalidSignature, input.GatewayOrderID)
		return nil, domainerrors.ErrInvalidSignature
	}

	if input.AccountID != uuid.Nil && input.AccountID != payment.AccountID {
		u.observe(ctx, channel, outcomeUnknownOrder, input.GatewayOrderID)
		return nil, domainerrors.ErrUnknownOrder
	}
	if input.Plan != "" {
		if plan, ok := entities.ParsePlan(input.Plan); !ok || plan != payment.Plan {
			return nil, domainerrors.Invalid("plan does not match the order")
		}
	}

	applied, _, err := u.apply(ctx, channel, input.GatewayOrderID, input.GatewayPaymentID)
	return applied, err
}

// HandleRedirect decides what the browser is told after the gateway redirect.
// Unsigned status parameters never change state; a redirect that carries a
// valid signature is applied like a signed confirmation.
func (u *ReconciliationUsecase) HandleRedirect(ctx context.Context, input *entities.RedirectConfirmation) (entities.RedirectOutcome, entities.Plan) {
	channel := entities.ChannelRedirect

	if input.GatewayOrderID == "" {
		return entities.RedirectInvalid, ""
	}

	payment, err := u.resolve(ctx, channel, input.GatewayOrderID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUnknownOrder) {
			return entities.RedirectInvalid, ""
		}
		return entities.RedirectPending, ""
	}

	if input.Signature != "" {
		if !u.gateway.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
			u.observe(ctx, channel, outcomeInvalidSignature, input.GatewayOrderID)
			return entities.RedirectInvalid, payment.Plan
		}
		applied, _, err := u.apply(ctx, channel, input.GatewayOrderID, input.GatewayPaymentID)
		switch {
		case err == nil:
			return entities.RedirectSuccess, applied.Plan
		case errors.Is(err, domainerrors.ErrAlreadyFinalized):
			return entities.RedirectFailed, payment.Plan
		default:
			return entities.RedirectPending, payment.Plan
		}
	}

	switch {
	case payment.Status == entities.PaymentStatusCompleted:
		return entities.RedirectSuccess, payment.Plan
	case payment.Status == entities.PaymentStatusFailed, isFailureStatus(input.Status):
		return entities.RedirectFailed, payment.Plan
	}

	u.observe(ctx, channel, outcomeUnverified, input.GatewayOrderID)
	return entities.RedirectPending, payment.Plan
}

// HandleWebhook processes a signed server-to-server gateway event. Events
// for orders the ledger does not know are acknowledged and dropped.
func (u *ReconciliationUsecase) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	channel := entities.ChannelWebhook

	if !u.gateway.VerifyWebhookSignature(body, signature) {
		u.observe(ctx, channel, outcomeInvalidSignature, "")
		return domainerrors.ErrInvalidSignature
	}

	event, err := gateway.ParseWebhook(body)
	if err != nil {
		return domainerrors.Invalid("malformed webhook payload")
	}

	switch event.Event {
	case gateway.EventPaymentCaptured, gateway.EventOrderPaid:
		if event.GatewayOrderID == "" {
			return domainerrors.Invalid("webhook event has no order id")
		}
		if _, err := u.resolve(ctx, channel, event.GatewayOrderID); err != nil {
			if errors.Is(err, domainerrors.ErrUnknownOrder) {
				return nil
			}
			return err
		}
		_, _, err := u.apply(ctx, channel, event.GatewayOrderID, event.GatewayPaymentID)
		if errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			logger.Error(ctx, "Gateway captured a payment the ledger already failed",
				zap.String("gateway_order_id", event.GatewayOrderID),
				zap.String("gateway_payment_id", event.GatewayPaymentID),
			)
			return nil
		}
		return err

	case gateway.EventPaymentFailed:
		if event.GatewayOrderID == "" {
			return domainerrors.Invalid("webhook event has no order id")
		}
		return u.fail(ctx, channel, event.GatewayOrderID, event.FailureReason)

	default:
		logger.Debug(ctx, "Ignoring webhook event", zap.String("event", event.Event))
		u.observe(ctx, channel, outcomeIgnored, event.GatewayOrderID)
		return nil
	}
}

// resolve finds the payment for an order; a missing order is ErrUnknownOrder.
func (u *ReconciliationUsecase) resolve(ctx context.Context, channel entities.ReconcileChannel, orderID string) (*entities.Payment, error) {
	if orderID == "" {
		u.observe(ctx, channel, outcomeUnknownOrder, orderID)
		return nil, domainerrors.ErrUnknownOrder
	}
	payment, err := u.paymentRepo.GetByGatewayOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			u.observe(ctx, channel, outcomeUnknownOrder, orderID)
			return nil, domainerrors.ErrUnknownOrder
		}
		u.observe(ctx, channel, outcomeError, orderID)
		return nil, err
	}
	return payment, nil
}

// apply completes the payment and, only for the call that performed the
// transition, moves the owning account to the paid plan in the same
// transaction.
func (u *ReconciliationUsecase) apply(ctx context.Context, channel entities.ReconcileChannel, orderID, paymentID string) (*entities.Payment, bool, error) {
	var (
		payment     *entities.Payment
		firstWriter bool
	)

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		p, first, err := u.paymentRepo.Complete(txCtx, orderID, paymentID)
		if err != nil {
			return err
		}
		payment, firstWriter = p, first
		if !first {
			return nil
		}

		paidAt := u.now()
		patch := entities.PlanPatch(p.Plan, p.Currency)
		patch.PaidAt = &paidAt
		if _, err := u.accountRepo.Update(txCtx, p.AccountID, patch); err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				logger.Warn(txCtx, "Payment completed for a deleted account",
					zap.String("gateway_order_id", orderID),
					zap.String("account_id", p.AccountID.String()),
				)
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			u.observe(ctx, channel, outcomeUnknownOrder, orderID)
			return nil, false, domainerrors.ErrUnknownOrder
		}
		if errors.Is(err, domainerrors.ErrAlreadyFinalized) {
			u.observe(ctx, channel, outcomeFailed, orderID)
			return nil, false, err
		}
		u.observe(ctx, channel, outcomeError, orderID)
		logger.Error(ctx, "Reconciliation failed", zap.String("gateway_order_id", orderID), zap.Error(err))
		return nil, false, err
	}

	if firstWriter {
		u.observe(ctx, channel, outcomeApplied, orderID)
		logger.Info(ctx, "Payment reconciled",
			zap.String("channel", string(channel)),
			zap.String("gateway_order_id", orderID),
			zap.String("account_id", payment.AccountID.String()),
			zap.String("plan", string(payment.Plan)),
		)
	} else {
		u.observe(ctx, channel, outcomeDuplicate, orderID)
	}
	return payment, firstWriter, nil
}

func (u *ReconciliationUsecase) fail(ctx context.Context, channel entities.ReconcileChannel, orderID, reason string) error {
	if reason == "" {
		reason = "payment failed at gateway"
	}

	_, first, err := u.paymentRepo.Fail(ctx, orderID, reason)
	switch {
	case errors.Is(err, domainerrors.ErrNotFound):
		u.observe(ctx, channel, outcomeUnknownOrder, orderID)
		return nil
	case errors.Is(err, domainerrors.ErrAlreadyFinalized):
		logger.Warn(ctx, "Failure event for a completed payment ignored", zap.String("gateway_order_id", orderID))
		u.observe(ctx, channel, outcomeIgnored, orderID)
		return nil
	case err != nil:
		u.observe(ctx, channel, outcomeError, orderID)
		return err
	}

	if first {
		u.observe(ctx, channel, outcomeFailed, orderID)
		logger.Info(ctx, "Payment failed", zap.String("gateway_order_id", orderID), zap.String("reason", reason))
	} else {
		u.observe(ctx, channel, outcomeDuplicate, orderID)
	}
	return nil
}

func (u *ReconciliationUsecase) observe(ctx context.Context, channel entities.ReconcileChannel, outcome, orderID string) {
	metrics.ObserveReconciliation(string(channel), outcome)
	switch outcome {
	case outcomeUnknownOrder, outcomeInvalidSignature:
		logger.Warn(ctx, "Payment confirmation rejected",
			zap.String("channel", string(channel)),
			zap.String("outcome", outcome),
			zap.String("gateway_order_id", orderID),
		)
	}
}

func isFailureStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "failure", "cancelled", "canceled", "error":
		return true
	}
	return false
}
