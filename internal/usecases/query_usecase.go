package usecases

import (
	"context"

	"github.com/google/uuid"
	"plan-ledger.backend/internal/domain/entities"
	"plan-ledger.backend/internal/domain/repositories"
)

// QueryUsecase serves the redacted admin projections.
type QueryUsecase struct {
	accountRepo repositories.AccountRepository
	paymentRepo repositories.PaymentRepository
	authz       *AuthorizationUsecase
}

// NewQueryUsecase creates a new query usecase
func NewQueryUsecase(
	accountRepo repositories.AccountRepository,
	paymentRepo repositories.PaymentRepository,
	authz *AuthorizationUsecase,
) *QueryUsecase {
	return &QueryUsecase{
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		authz:       authz,
	}
}

// Dashboard returns every account without credentials, every payment and
// fresh statistics. Only admins may read it.
func (u *QueryUsecase) Dashboard(ctx context.Context, callerID uuid.UUID) (*entities.Dashboard, error) {
	if _, err := u.authz.Authorize(ctx, callerID, entities.ActionViewDashboard); err != nil {
		return nil, err
	}

	accounts, err := u.accountRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := u.paymentRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	return &entities.Dashboard{
		Accounts:   entities.SafeAccounts(accounts),
		Payments:   payments,
		Statistics: aggregate(accounts, payments),
	}, nil
}

// Statistics recomputes the aggregates from the stores for an admin caller.
func (u *QueryUsecase) Statistics(ctx context.Context, callerID uuid.UUID) (entities.Statistics, error) {
	if _, err := u.authz.Authorize(ctx, callerID, entities.ActionViewDashboard); err != nil {
		return entities.Statistics{}, err
	}
	accounts, err := u.accountRepo.List(ctx)
	if err != nil {
		return entities.Statistics{}, err
	}
	payments, err := u.paymentRepo.List(ctx)
	if err != nil {
		return entities.Statistics{}, err
	}
	return aggregate(accounts, payments), nil
}

func aggregate(accounts []*entities.Account, payments []*entities.Payment) entities.Statistics {
	stats := entities.Statistics{
		Accounts: entities.AccountStats{
			Total:    len(accounts),
			ByPlan:   make(map[entities.Plan]int, len(entities.Plans)),
			ByRole:   map[entities.Role]int{entities.RoleUser: 0, entities.RoleAdmin: 0},
			ByStatus: map[entities.AccountStatus]int{entities.AccountStatusActive: 0, entities.AccountStatusDisabled: 0},
		},
		Payments: entities.PaymentStats{
			Total: len(payments),
			ByStatus: map[entities.PaymentStatus]int{
				entities.PaymentStatusPending:   0,
				entities.PaymentStatusCompleted: 0,
				entities.PaymentStatusFailed:    0,
			},
			Revenue: make(map[entities.Currency]int64),
		},
	}
	for _, p := range entities.Plans {
		stats.Accounts.ByPlan[p] = 0
	}

	for _, a := range accounts {
		stats.Accounts.ByPlan[a.Plan]++
		stats.Accounts.ByRole[a.Role]++
		stats.Accounts.ByStatus[a.Status]++
	}
	for _, p := range payments {
		stats.Payments.ByStatus[p.Status]++
		if p.Status == entities.PaymentStatusCompleted {
			stats.Payments.Revenue[p.Currency] += p.Amount
		}
	}
	return stats
}
