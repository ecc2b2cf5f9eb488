package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"plan-ledger.backend/internal/domain/entities"
)

// PaymentRepository defines payment ledger operations
type PaymentRepository interface {
	CreatePending(ctx context.Context, payment *entities.Payment) error
	AttachGatewayOrder(ctx context.Context, paymentID uuid.UUID, gatewayOrderID string) error
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entities.Payment, error)
	// Complete moves a pending payment to completed. The bool is true only
	// for the call that performed the transition.
	Complete(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*entities.Payment, bool, error)
	Fail(ctx context.Context, gatewayOrderID, reason string) (*entities.Payment, bool, error)
	FailStale(ctx context.Context, olderThan time.Time, limit int) (int64, error)
	List(ctx context.Context) ([]*entities.Payment, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.Payment, error)
}
