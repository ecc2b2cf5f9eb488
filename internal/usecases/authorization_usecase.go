package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/domain/repositories"
	"plan-ledger.backend/pkg/crypto"
	"plan-ledger.backend/pkg/logger"
)

// AuthorizationUsecase gates and executes privileged account mutations.
type AuthorizationUsecase struct {
	accountRepo repositories.AccountRepository
}

// NewAuthorizationUsecase creates a new authorization usecase
func NewAuthorizationUsecase(accountRepo repositories.AccountRepository) *AuthorizationUsecase {
	return &AuthorizationUsecase{accountRepo: accountRepo}
}

// Authorize applies the standard rule: the caller, read fresh, must be an
// active admin.
func (u *AuthorizationUsecase) Authorize(ctx context.Context, callerID uuid.UUID, action entities.AdminAction) (*entities.Account, error) {
	caller, err := loadCaller(ctx, u.accountRepo, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		logger.Warn(ctx, "Privileged action denied",
			zap.String("account_id", callerID.String()),
			zap.String("action", string(action)),
		)
		return nil, domainerrors.ErrForbidden
	}
	return caller, nil
}

// Execute runs an admin command and returns a human-readable summary.
// makeAdmin is allowed for any signed-in caller while no admin exists.
func (u *AuthorizationUsecase) Execute(ctx context.Context, callerID uuid.UUID, cmd *entities.AdminCommand) (string, error) {
	targetID, err := uuid.Parse(strings.TrimSpace(cmd.TargetAccountID))
	if err != nil {
		return "", domainerrors.Invalid("a valid targetAccountId is required")
	}

	switch cmd.Action {
	case entities.ActionMakeAdmin:
		return u.makeAdmin(ctx, callerID, targetID)
	case entities.ActionRemoveAdmin,
		entities.ActionUpdatePlan,
		entities.ActionDisable,
		entities.ActionEnable,
		entities.ActionResetPassword,
		entities.ActionDeleteAccount:
	default:
		return "", domainerrors.Invalid("unknown action")
	}

	caller, err := u.Authorize(ctx, callerID, cmd.Action)
	if err != nil {
		return "", err
	}
	target, err := u.accountRepo.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}

	self := caller.ID == target.ID
	var (
		patch   entities.AccountPatch
		message string
	)

	switch cmd.Action {
	case entities.ActionRemoveAdmin:
		if self {
			return "", domainerrors.Invalid("admins cannot remove their own admin role")
		}
		role := entities.RoleUser
		patch.Role = &role
		message = fmt.Sprintf("%s is no longer an admin", target.Email)

	case entities.ActionUpdatePlan:
		plan, ok := entities.ParsePlan(cmd.Plan)
		if !ok {
			return "", domainerrors.Invalid("unknown plan")
		}
		var currency entities.Currency
		if plan.Paid() {
			currency = entities.DefaultCurrency
			if target.Currency.Valid {
				currency = entities.Currency(target.Currency.String)
			}
			if cmd.Currency != "" {
				c, ok := entities.ParseCurrency(cmd.Currency)
				if !ok {
					return "", domainerrors.Invalid("unsupported currency")
				}
				currency = c
			}
		}
		patch = entities.PlanPatch(plan, currency)
		message = fmt.Sprintf("%s moved to the %s plan", target.Email, plan)

	case entities.ActionDisable:
		if self {
			return "", domainerrors.Invalid("admins cannot disable themselves")
		}
		reason := strings.TrimSpace(cmd.Reason)
		if reason == "" {
			return "", domainerrors.Invalid("a reason is required to disable an account")
		}
		status := entities.AccountStatusDisabled
		disabledReason := null.StringFrom(reason)
		patch.Status, patch.DisabledReason = &status, &disabledReason
		message = fmt.Sprintf("%s disabled", target.Email)

	case entities.ActionEnable:
		status := entities.AccountStatusActive
		cleared := null.String{}
		patch.Status, patch.DisabledReason = &status, &cleared
		message = fmt.Sprintf("%s enabled", target.Email)

	case entities.ActionResetPassword:
		if err := validateSecret(cmd.NewSecret); err != nil {
			return "", err
		}
		hash, err := crypto.HashSecret(cmd.NewSecret)
		if err != nil {
			return "", err
		}
		patch.CredentialHash = &hash
		message = fmt.Sprintf("secret reset for %s", target.Email)

	case entities.ActionDeleteAccount:
		if self {
			return "", domainerrors.Invalid("admins cannot delete themselves")
		}
		if err := u.accountRepo.Delete(ctx, target.ID); err != nil {
			return "", err
		}
		u.audit(ctx, caller, target, cmd.Action)
		return fmt.Sprintf("%s deleted", target.Email), nil
	}

	if _, err := u.accountRepo.Update(ctx, target.ID, patch); err != nil {
		return "", err
	}
	u.audit(ctx, caller, target, cmd.Action)
	return message, nil
}

// makeAdmin grants the admin role. A non-admin caller may only use the
// bootstrap path while no admin exists. Both an existing admin and a lost
// bootstrap race surface as ErrAdminAlreadyExists.
func (u *AuthorizationUsecase) makeAdmin(ctx context.Context, callerID, targetID uuid.UUID) (string, error) {
	caller, err := loadCaller(ctx, u.accountRepo, callerID)
	if err != nil {
		return "", err
	}

	if caller.IsAdmin() {
		role := entities.RoleAdmin
		target, err := u.accountRepo.Update(ctx, targetID, entities.AccountPatch{Role: &role})
		if err != nil {
			return "", err
		}
		u.audit(ctx, caller, target, entities.ActionMakeAdmin)
		return fmt.Sprintf("%s is now an admin", target.Email), nil
	}

	admins, err := u.accountRepo.CountByRole(ctx, entities.RoleAdmin)
	if err != nil {
		return "", err
	}
	if admins > 0 {
		logger.Warn(ctx, "Privileged action denied",
			zap.String("account_id", callerID.String()),
			zap.String("action", string(entities.ActionMakeAdmin)),
		)
		return "", domainerrors.ErrAdminAlreadyExists
	}

	target, err := u.accountRepo.PromoteFirstAdmin(ctx, targetID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAdminAlreadyExists) {
			logger.Warn(ctx, "Admin bootstrap lost the race",
				zap.String("account_id", callerID.String()),
				zap.String("target_account_id", targetID.String()),
			)
		}
		return "", err
	}

	logger.Info(ctx, "First admin bootstrapped",
		zap.String("account_id", callerID.String()),
		zap.String("target_account_id", target.ID.String()),
	)
	return fmt.Sprintf("%s is now the first admin", target.Email), nil
}

func (u *AuthorizationUsecase) audit(ctx context.Context, caller, target *entities.Account, action entities.AdminAction) {
	logger.Info(ctx, "Admin action applied",
		zap.String("action", string(action)),
		zap.String("account_id", caller.ID.String()),
		zap.String("target_account_id", target.ID.String()),
	)
}
