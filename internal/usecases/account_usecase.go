package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/domain/repositories"
	"plan-ledger.backend/pkg/crypto"
	"plan-ledger.backend/pkg/jwt"
	"plan-ledger.backend/pkg/logger"
	"plan-ledger.backend/pkg/utils"
)

var validate = validator.New()

// AccountUsecase handles signup, login and self-service profile changes
type AccountUsecase struct {
	accountRepo repositories.AccountRepository
	paymentRepo repositories.PaymentRepository
	jwtService  *jwt.JWTService
}

// NewAccountUsecase creates a new account usecase
func NewAccountUsecase(
	accountRepo repositories.AccountRepository,
	paymentRepo repositories.PaymentRepository,
	jwtService *jwt.JWTService,
) *AccountUsecase {
	return &AccountUsecase{
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		jwtService:  jwtService,
	}
}

// Signup creates a free, active user account and issues an access token.
func (u *AccountUsecase) Signup(ctx context.Context, input *entities.SignupInput, origin entities.Origin) (*entities.Account, string, error) {
	email := strings.TrimSpace(input.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, "", domainerrors.Invalid("a valid email is required")
	}
	if err := maxLength("email", email, entities.MaxEmailLength); err != nil {
		return nil, "", err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, "", domainerrors.Invalid("name is required")
	}
	if err := maxLength("name", name, entities.MaxNameLength); err != nil {
		return nil, "", err
	}
	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return nil, "", domainerrors.Invalid("phone is required")
	}
	if err := maxLength("phone", phone, entities.MaxPhoneLength); err != nil {
		return nil, "", err
	}
	if err := validateSecret(input.Secret); err != nil {
		return nil, "", err
	}

	hash, err := crypto.HashSecret(input.Secret)
	if err != nil {
		return nil, "", err
	}

	account := &entities.Account{
		ID:             utils.GenerateUUIDv7(),
		Email:          email,
		Name:           name,
		Phone:          phone,
		CredentialHash: hash,
		Role:           entities.RoleUser,
		Plan:           entities.PlanFree,
		Status:         entities.AccountStatusActive,
		SignupOrigin:   origin.String(),
	}
	if err := u.accountRepo.Create(ctx, account); err != nil {
		return nil, "", err
	}

	logger.Info(ctx, "Account created", zap.String("account_id", account.ID.String()))

	token, err := u.issueToken(account)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Login verifies the credential. Unknown email and wrong secret produce the
// same error; a disabled account is only reported after the secret matched.
func (u *AccountUsecase) Login(ctx context.Context, input *entities.LoginInput, origin entities.Origin) (*entities.Account, string, error) {
	account, err := u.accountRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, "", domainerrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !crypto.CheckSecret(input.Secret, account.CredentialHash) {
		return nil, "", domainerrors.ErrInvalidCredentials
	}

	if !account.IsActive() {
		logger.Warn(ctx, "Login attempt on disabled account", zap.String("account_id", account.ID.String()))
		return nil, "", domainerrors.Disabled(account.DisabledReason.String)
	}

	if err := u.accountRepo.RecordLogin(ctx, account.ID, origin.String()); err != nil {
		logger.Warn(ctx, "Failed to record login", zap.String("account_id", account.ID.String()), zap.Error(err))
	} else {
		account.LastLoginOrigin.SetValid(origin.String())
	}

	token, err := u.issueToken(account)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Exists reports whether an account uses email.
func (u *AccountUsecase) Exists(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, domainerrors.Invalid("email is required")
	}
	_, err := u.accountRepo.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domainerrors.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Get returns the account when the caller owns it or is an admin.
func (u *AccountUsecase) Get(ctx context.Context, callerID, id uuid.UUID) (*entities.Account, error) {
	if _, err := ownerOrAdmin(ctx, u.accountRepo, callerID, id); err != nil {
		return nil, err
	}
	return u.accountRepo.GetByID(ctx, id)
}

// UpdateProfile applies a self-service change. Owners may edit name and
// phone and drop to the free plan; paid plans set directly need an admin.
func (u *AccountUsecase) UpdateProfile(ctx context.Context, callerID, id uuid.UUID, input *entities.ProfileUpdateInput) (*entities.Account, error) {
	caller, err := ownerOrAdmin(ctx, u.accountRepo, callerID, id)
	if err != nil {
		return nil, err
	}

	var patch entities.AccountPatch
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domainerrors.Invalid("name cannot be empty")
		}
		if err := maxLength("name", name, entities.MaxNameLength); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			return nil, domainerrors.Invalid("phone cannot be empty")
		}
		if err := maxLength("phone", phone, entities.MaxPhoneLength); err != nil {
			return nil, err
		}
		patch.Phone = &phone
	}

	if input.Plan != nil {
		plan, ok := entities.ParsePlan(*input.Plan)
		if !ok {
			return nil, domainerrors.Invalid("unknown plan")
		}
		if plan.Paid() && !caller.IsAdmin() {
			return nil, domainerrors.Invalid("paid plans require checkout")
		}
		var currency entities.Currency
		if plan.Paid() {
			currency = entities.DefaultCurrency
			if input.Currency != nil {
				c, ok := entities.ParseCurrency(*input.Currency)
				if !ok {
					return nil, domainerrors.Invalid("unsupported currency")
				}
				currency = c
			}
		}
		planPatch := entities.PlanPatch(plan, currency)
		patch.Plan, patch.Currency = planPatch.Plan, planPatch.Currency
	} else if input.Currency != nil {
		return nil, domainerrors.Invalid("currency can only change together with plan")
	}

	if patch.Empty() {
		return nil, domainerrors.Invalid("nothing to update")
	}

	account, err := u.accountRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Account profile updated",
		zap.String("account_id", id.String()),
		zap.String("by", caller.ID.String()),
	)
	return account, nil
}

// ListPayments returns an account's payment history to its owner or an admin.
func (u *AccountUsecase) ListPayments(ctx context.Context, callerID, id uuid.UUID) ([]*entities.Payment, error) {
	if _, err := ownerOrAdmin(ctx, u.accountRepo, callerID, id); err != nil {
		return nil, err
	}
	return u.paymentRepo.ListByAccount(ctx, id)
}

func (u *AccountUsecase) issueToken(account *entities.Account) (string, error) {
	if u.jwtService == nil {
		return "", nil
	}
	return u.jwtService.GenerateAccessToken(account.ID, account.Email, string(account.Role))
}

func validateSecret(secret string) error {
	if len(secret) < entities.MinSecretLength {
		return domainerrors.Invalid(fmt.Sprintf("secret must be at least %d characters", entities.MinSecretLength))
	}
	if len(secret) > entities.MaxSecretBytes {
		return domainerrors.Invalid(fmt.Sprintf("secret must be at most %d bytes", entities.MaxSecretBytes))
	}
	return nil
}

// maxLength keeps values within their column width so storage never rejects them.
func maxLength(field, value string, limit int) error {
	if err := validate.Var(value, fmt.Sprintf("max=%d", limit)); err != nil {
		return domainerrors.Invalid(fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	return nil
}

// ownerOrAdmin loads the caller fresh and allows it to act on id when it is
// the same account or an admin.
func ownerOrAdmin(ctx context.Context, accounts repositories.AccountRepository, callerID, id uuid.UUID) (*entities.Account, error) {
	caller, err := loadCaller(ctx, accounts, callerID)
	if err != nil {
		return nil, err
	}
	if caller.ID != id && !caller.IsAdmin() {
		return nil, domainerrors.ErrForbidden
	}
	return caller, nil
}

// loadCaller re-reads the caller on every request; roles are never cached.
func loadCaller(ctx context.Context, accounts repositories.AccountRepository, callerID uuid.UUID) (*entities.Account, error) {
	if callerID == uuid.Nil {
		return nil, domainerrors.ErrUnauthorized
	}
	caller, err := accounts.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrUnauthorized
		}
		return nil, err
	}
	if !caller.IsActive() {
		return nil, domainerrors.ErrForbidden
	}
	return caller, nil
}
