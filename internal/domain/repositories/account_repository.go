package repositories

import (
	"context"

	"github.com/google/uuid"
	"plan-ledger.backend/internal/domain/entities"
)

// AccountRepository defines account data operations
type AccountRepository interface {
	// Create inserts the account; a second account with the same normalized
	// email fails with ErrDuplicateEmail.
	Create(ctx context.Context, account *entities.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error)
	GetByEmail(ctx context.Context, email string) (*entities.Account, error)
	List(ctx context.Context) ([]*entities.Account, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.AccountPatch) (*entities.Account, error)
	RecordLogin(ctx context.Context, id uuid.UUID, origin string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByRole(ctx context.Context, role entities.Role) (int64, error)
	// PromoteFirstAdmin grants the admin role only while no admin exists.
	// Concurrent callers serialize; all but the first get ErrAdminAlreadyExists.
	PromoteFirstAdmin(ctx context.Context, id uuid.UUID) (*entities.Account, error)
}
