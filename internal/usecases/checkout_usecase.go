package usecases

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/domain/repositories"
	"plan-ledger.backend/internal/infrastructure/gateway"
	"plan-ledger.backend/pkg/logger"
	"plan-ledger.backend/pkg/utils"
)

// CheckoutUsecase opens gateway orders for plan purchases
type CheckoutUsecase struct {
	accountRepo repositories.AccountRepository
	paymentRepo repositories.PaymentRepository
	gateway     PaymentGateway
	callbackURL string
	prices      map[string]int64
}

// NewCheckoutUsecase creates a new checkout usecase. prices maps
// "plan:CURRENCY" to the only amount accepted for that pair.
func NewCheckoutUsecase(
	accountRepo repositories.AccountRepository,
	paymentRepo repositories.PaymentRepository,
	gw PaymentGateway,
	callbackURL string,
	prices map[string]int64,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		gateway:     gw,
		callbackURL: callbackURL,
		prices:      prices,
	}
}

// StartCheckout records a pending payment, opens the gateway order and
// attaches it. When the gateway call fails the payment stays pending with no
// order, and the caller gets a retryable ErrUpstreamGateway.
func (u *CheckoutUsecase) StartCheckout(ctx context.Context, input *entities.CheckoutInput) (*entities.CheckoutResult, error) {
	if u.gateway == nil || !u.gateway.Configured() {
		return nil, domainerrors.ErrGatewayUnconfigured
	}

	if input.Amount <= 0 {
		return nil, domainerrors.Invalid("amount must be positive")
	}
	plan, ok := entities.ParsePlan(input.Plan)
	if !ok {
		return nil, domainerrors.Invalid("unknown plan")
	}
	if !plan.Paid() {
		return nil, domainerrors.Invalid("the free plan does not need checkout")
	}
	currency := entities.DefaultCurrency
	if input.Currency != "" {
		c, ok := entities.ParseCurrency(input.Currency)
		if !ok {
			return nil, domainerrors.Invalid("unsupported currency")
		}
		currency = c
	}
	if expected, listed := u.prices[string(plan)+":"+string(currency)]; listed && expected != input.Amount {
		return nil, domainerrors.Invalid("amount does not match the plan price")
	}

	account, err := u.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, domainerrors.ErrForbidden
	}
	if entities.NormalizeEmail(input.Email) != entities.NormalizeEmail(account.Email) {
		return nil, domainerrors.Invalid("email does not match the account")
	}

	payment := &entities.Payment{
		ID:        utils.GenerateUUIDv7(),
		AccountID: account.ID,
		Email:     account.Email,
		Amount:    input.Amount,
		Currency:  currency,
		Plan:      plan,
	}
	if err := u.paymentRepo.CreatePending(ctx, payment); err != nil {
		return nil, err
	}

	req := gateway.OrderRequest{
		Amount:      payment.Amount,
		Currency:    string(payment.Currency),
		Receipt:     payment.ID.String(),
		Email:       payment.Email,
		CallbackURL: u.callbackURL,
		Notes: map[string]string{
			"payment_id": payment.ID.String(),
			"account_id": account.ID.String(),
			"plan":       string(plan),
		},
	}
	order, err := u.gateway.CreateOrder(ctx, req)
	if err != nil {
		if errors.Is(err, gateway.ErrNotConfigured) {
			return nil, domainerrors.ErrGatewayUnconfigured
		}
		logger.Error(ctx, "Gateway order creation failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create gateway order: %w", domainerrors.ErrUpstreamGateway)
	}

	if err := u.paymentRepo.AttachGatewayOrder(ctx, payment.ID, order.ID); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Checkout started",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway_order_id", order.ID),
		zap.String("plan", string(plan)),
	)

	return &entities.CheckoutResult{
		PaymentURL:     u.gateway.PaymentURL(order, req),
		GatewayOrderID: order.ID,
	}, nil
}
