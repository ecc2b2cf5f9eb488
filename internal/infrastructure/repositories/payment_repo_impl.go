package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/infrastructure/models"
)

// StaleFailureReason is recorded on payments closed by FailStale.
const StaleFailureReason = "expired before confirmation"

// PaymentRepository implements payment ledger operations
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreatePending inserts a pending payment without a gateway order
func (r *PaymentRepository) CreatePending(ctx context.Context, payment *entities.Payment) error {
	now := time.Now()
	payment.Status = entities.PaymentStatusPending
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = payment.CreatedAt

	return GetDB(ctx, r.db).Create(toPaymentModel(payment)).Error
}

// AttachGatewayOrder links the gateway order to a pending payment once.
func (r *PaymentRepository) AttachGatewayOrder(ctx context.Context, paymentID uuid.UUID, gatewayOrderID string) error {
	db := GetDB(ctx, r.db)

	result := db.Model(&models.Payment{}).
		Where("id = ? AND status = ? AND gateway_order_id IS NULL", paymentID, string(entities.PaymentStatusPending)).
		Updates(map[string]interface{}{
			"gateway_order_id": gatewayOrderID,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domainerrors.ErrAlreadyFinalized
		}
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := getPayment(db, "id = ?", paymentID); err != nil {
		return err
	}
	return domainerrors.ErrAlreadyFinalized
}

// GetByGatewayOrderID gets a payment by its gateway order
func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*entities.Payment, error) {
	return getPayment(GetDB(ctx, r.db), "gateway_order_id = ?", gatewayOrderID)
}

// Complete moves the payment from pending to completed with a single
// conditional update. Only the caller whose update matched the pending row
// gets firstWriter=true; a repeat returns the stored record.
func (r *PaymentRepository) Complete(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*entities.Payment, bool, error) {
	db := GetDB(ctx, r.db)
	now := time.Now()

	updates := map[string]interface{}{
		"status":       string(entities.PaymentStatusCompleted),
		"completed_at": now,
		"updated_at":   now,
	}
	if gatewayPaymentID != "" {
		updates["gateway_payment_id"] = gatewayPaymentID
	}

	result := db.Model(&models.Payment{}).
		Where("gateway_order_id = ? AND status = ?", gatewayOrderID, string(entities.PaymentStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return nil, false, result.Error
	}

	payment, err := getPayment(db, "gateway_order_id = ?", gatewayOrderID)
	if err != nil {
		return nil, false, err
	}
	if result.RowsAffected == 1 {
		return payment, true, nil
	}
	if payment.Status == entities.PaymentStatusFailed {
		return payment, false, domainerrors.ErrAlreadyFinalized
	}
	return payment, false, nil
}

// Fail moves the payment from pending to failed under the same first-writer
// contract as Complete.
func (r *PaymentRepository) Fail(ctx context.Context, gatewayOrderID, reason string) (*entities.Payment, bool, error) {
	db := GetDB(ctx, r.db)

	result := db.Model(&models.Payment{}).
		Where("gateway_order_id = ? AND status = ?", gatewayOrderID, string(entities.PaymentStatusPending)).
		Updates(map[string]interface{}{
			"status":         string(entities.PaymentStatusFailed),
			"failure_reason": reason,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return nil, false, result.Error
	}

	payment, err := getPayment(db, "gateway_order_id = ?", gatewayOrderID)
	if err != nil {
		return nil, false, err
	}
	if result.RowsAffected == 1 {
		return payment, true, nil
	}
	if payment.Status == entities.PaymentStatusCompleted {
		return payment, false, domainerrors.ErrAlreadyFinalized
	}
	return payment, false, nil
}

// FailStale fails at most limit pending payments created before olderThan
// that never got a gateway order. Payments with an attached order stay
// pending: the customer may still pay and be confirmed. A non-positive limit
// means no limit.
func (r *PaymentRepository) FailStale(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	db := GetDB(ctx, r.db)

	pending := string(entities.PaymentStatusPending)
	ids := db.Model(&models.Payment{}).
		Select("id").
		Where("status = ? AND gateway_order_id IS NULL AND created_at < ?", pending, olderThan).
		Order("created_at ASC")
	if limit > 0 {
		ids = ids.Limit(limit)
	}

	result := db.Model(&models.Payment{}).
		Where("status = ? AND gateway_order_id IS NULL AND id IN (?)", pending, ids).
		Updates(map[string]interface{}{
			"status":         string(entities.PaymentStatusFailed),
			"failure_reason": StaleFailureReason,
			"updated_at":     time.Now(),
		})
	return result.RowsAffected, result.Error
}

// List returns every payment, newest first
func (r *PaymentRepository) List(ctx context.Context) ([]*entities.Payment, error) {
	return listPayments(GetDB(ctx, r.db).Order("created_at DESC"))
}

// ListByAccount returns an account's payments, newest first
func (r *PaymentRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*entities.Payment, error) {
	return listPayments(GetDB(ctx, r.db).Where("account_id = ?", accountID).Order("created_at DESC"))
}

func listPayments(query *gorm.DB) ([]*entities.Payment, error) {
	var rows []models.Payment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	payments := make([]*entities.Payment, 0, len(rows))
	for i := range rows {
		payments = append(payments, toPaymentEntity(&rows[i]))
	}
	return payments, nil
}

func getPayment(db *gorm.DB, query string, arg interface{}) (*entities.Payment, error) {
	var m models.Payment
	if err := db.Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toPaymentEntity(&m), nil
}

func toPaymentModel(p *entities.Payment) *models.Payment {
	return &models.Payment{
		ID:               p.ID,
		AccountID:        p.AccountID,
		Email:            p.Email,
		Amount:           p.Amount,
		Currency:         string(p.Currency),
		Plan:             string(p.Plan),
		GatewayOrderID:   p.GatewayOrderID.Ptr(),
		GatewayPaymentID: p.GatewayPaymentID.Ptr(),
		Status:           string(p.Status),
		FailureReason:    p.FailureReason.Ptr(),
		CompletedAt:      p.CompletedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toPaymentEntity(m *models.Payment) *entities.Payment {
	return &entities.Payment{
		ID:               m.ID,
		AccountID:        m.AccountID,
		Email:            m.Email,
		Amount:           m.Amount,
		Currency:         entities.Currency(m.Currency),
		Plan:             entities.Plan(m.Plan),
		GatewayOrderID:   null.StringFromPtr(m.GatewayOrderID),
		GatewayPaymentID: null.StringFromPtr(m.GatewayPaymentID),
		Status:           entities.PaymentStatus(m.Status),
		FailureReason:    null.StringFromPtr(m.FailureReason),
		CompletedAt:      m.CompletedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
