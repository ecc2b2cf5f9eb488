package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/infrastructure/models"
)

const adminBootstrapLock = "admin_bootstrap"

// AccountRepository implements account data operations
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts the account. Uniqueness of the normalized email is enforced
// by the index, never by a prior read.
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = account.CreatedAt
	account.EmailNormalized = entities.NormalizeEmail(account.Email)

	m := toAccountModel(account)
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByID gets an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return getAccount(GetDB(ctx, r.db), "id = ?", id)
}

// GetByEmail gets an account by its normalized email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entities.Account, error) {
	return getAccount(GetDB(ctx, r.db), "email_normalized = ?", entities.NormalizeEmail(email))
}

// List returns every account, newest first
func (r *AccountRepository) List(ctx context.Context) ([]*entities.Account, error) {
	var rows []models.Account
	if err := GetDB(ctx, r.db).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	accounts := make([]*entities.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, toAccountEntity(&rows[i]))
	}
	return accounts, nil
}

// Update applies patch and returns the stored account.
func (r *AccountRepository) Update(ctx context.Context, id uuid.UUID, patch entities.AccountPatch) (*entities.Account, error) {
	db := GetDB(ctx, r.db)

	result := db.Model(&models.Account{}).Where("id = ?", id).Updates(patchColumns(patch))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domainerrors.ErrNotFound
	}
	return getAccount(db, "id = ?", id)
}

// RecordLogin stores where the last successful sign-in came from
func (r *AccountRepository) RecordLogin(ctx context.Context, id uuid.UUID, origin string) error {
	result := GetDB(ctx, r.db).Model(&models.Account{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_login_origin": origin,
		"last_login_at":     time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// Delete removes the account. Its payments stay in the ledger.
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).Delete(&models.Account{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// CountByRole counts accounts holding role
func (r *AccountRepository) CountByRole(ctx context.Context, role entities.Role) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&models.Account{}).Where("role = ?", string(role)).Count(&count).Error
	return count, err
}

// PromoteFirstAdmin grants the admin role to id if no admin exists yet. The
// admin count and the grant happen while holding the bootstrap lock row, so
// two racing callers cannot both observe zero admins.
func (r *AccountRepository) PromoteFirstAdmin(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	var promoted *entities.Account

	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		lock := models.AccountLock{Name: adminBootstrapLock, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", adminBootstrapLock).
			First(&lock).Error; err != nil {
			return err
		}

		var admins int64
		if err := tx.Model(&models.Account{}).Where("role = ?", string(entities.RoleAdmin)).Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			return domainerrors.ErrAdminAlreadyExists
		}

		result := tx.Model(&models.Account{}).Where("id = ?", id).Updates(map[string]interface{}{
			"role":       string(entities.RoleAdmin),
			"updated_at": time.Now(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotFound
		}

		if err := tx.Model(&models.AccountLock{}).Where("name = ?", adminBootstrapLock).
			Update("updated_at", time.Now()).Error; err != nil {
			return err
		}

		account, err := getAccount(tx, "id = ?", id)
		if err != nil {
			return err
		}
		promoted = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

func getAccount(db *gorm.DB, query string, arg interface{}) (*entities.Account, error) {
	var m models.Account
	if err := db.Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toAccountEntity(&m), nil
}

func patchColumns(patch entities.AccountPatch) map[string]interface{} {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Plan != nil {
		updates["plan"] = string(*patch.Plan)
	}
	if patch.Currency != nil {
		updates["currency"] = nullable(*patch.Currency)
	}
	if patch.Role != nil {
		updates["role"] = string(*patch.Role)
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.DisabledReason != nil {
		updates["disabled_reason"] = nullable(*patch.DisabledReason)
	}
	if patch.CredentialHash != nil {
		updates["credential_hash"] = *patch.CredentialHash
	}
	if patch.PaidAt != nil {
		updates["paid_at"] = *patch.PaidAt
	}
	return updates
}

// nullable turns an invalid null.String into a SQL NULL inside an update map.
func nullable(s null.String) interface{} {
	if !s.Valid {
		return gorm.Expr("NULL")
	}
	return s.String
}

func toAccountModel(a *entities.Account) *models.Account {
	return &models.Account{
		ID:              a.ID,
		Email:           a.Email,
		EmailNormalized: a.EmailNormalized,
		Name:            a.Name,
		Phone:           a.Phone,
		CredentialHash:  a.CredentialHash,
		Role:            string(a.Role),
		Plan:            string(a.Plan),
		Currency:        a.Currency.Ptr(),
		Status:          string(a.Status),
		DisabledReason:  a.DisabledReason.Ptr(),
		SignupOrigin:    a.SignupOrigin,
		LastLoginOrigin: a.LastLoginOrigin.Ptr(),
		PaidAt:          a.PaidAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toAccountEntity(m *models.Account) *entities.Account {
	return &entities.Account{
		ID:              m.ID,
		Email:           m.Email,
		EmailNormalized: m.EmailNormalized,
		Name:            m.Name,
		Phone:           m.Phone,
		CredentialHash:  m.CredentialHash,
		Role:            entities.Role(m.Role),
		Plan:            entities.Plan(m.Plan),
		Currency:        null.StringFromPtr(m.Currency),
		Status:          entities.AccountStatus(m.Status),
		DisabledReason:  null.StringFromPtr(m.DisabledReason),
		SignupOrigin:    m.SignupOrigin,
		LastLoginOrigin: null.StringFromPtr(m.LastLoginOrigin),
		PaidAt:          m.PaidAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
