package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/interfaces/http/middleware"
	"plan-ledger.backend/internal/interfaces/http/response"
)

// AccessTokenHeader echoes the issued token for clients that do not keep cookies.
const AccessTokenHeader = "X-Access-Token"

type AccountService interface {
	Signup(ctx context.Context, input *entities.SignupInput, origin entities.Origin) (*entities.Account, string, error)
	Login(ctx context.Context, input *entities.LoginInput, origin entities.Origin) (*entities.Account, string, error)
	Exists(ctx context.Context, email string) (bool, error)
	Get(ctx context.Context, callerID, id uuid.UUID) (*entities.Account, error)
	UpdateProfile(ctx context.Context, callerID, id uuid.UUID, input *entities.ProfileUpdateInput) (*entities.Account, error)
	ListPayments(ctx context.Context, callerID, id uuid.UUID) ([]*entities.Payment, error)
}

// AccountHandler handles account endpoints
type AccountHandler struct {
	accountUsecase AccountService
	tokenTTL       time.Duration
	secureCookie   bool
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountUsecase AccountService, tokenTTL time.Duration, secureCookie bool) *AccountHandler {
	RegisterValidators()
	return &AccountHandler{
		accountUsecase: accountUsecase,
		tokenTTL:       tokenTTL,
		secureCookie:   secureCookie,
	}
}

type accountRequest struct {
	Action string `json:"action" binding:"required"`
	Email  string `json:"email"`
	Secret string `json:"secret"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// Accounts dispatches on the action field
// POST /accounts
func (h *AccountHandler) Accounts(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(bindMessage(err)))
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "signup":
		h.signup(c, &req)
	case "login":
		h.login(c, &req)
	case "check":
		h.check(c, &req)
	default:
		response.Error(c, domainerrors.BadRequest("unknown action"))
	}
}

func (h *AccountHandler) signup(c *gin.Context, req *accountRequest) {
	account, token, err := h.accountUsecase.Signup(c.Request.Context(), &entities.SignupInput{
		Email:  req.Email,
		Secret: req.Secret,
		Name:   req.Name,
		Phone:  req.Phone,
	}, requestOrigin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setToken(c, token)
	response.Success(c, http.StatusCreated, account.Safe())
}

func (h *AccountHandler) login(c *gin.Context, req *accountRequest) {
	if req.Email == "" || req.Secret == "" {
		response.Error(c, domainerrors.BadRequest("email and secret are required"))
		return
	}

	account, token, err := h.accountUsecase.Login(c.Request.Context(), &entities.LoginInput{
		Email:  req.Email,
		Secret: req.Secret,
	}, requestOrigin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setToken(c, token)
	response.Success(c, http.StatusOK, account.Safe())
}

func (h *AccountHandler) check(c *gin.Context, req *accountRequest) {
	exists, err := h.accountUsecase.Exists(c.Request.Context(), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exists": exists})
}

// GetAccount returns one account to its owner or an admin
// GET /accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := pathAccountID(c)
	if !ok {
		return
	}

	account, err := h.accountUsecase.Get(c.Request.Context(), middleware.GetAccountID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account.Safe())
}

// UpdateAccount applies a self-service profile or plan change
// PATCH /accounts/:id
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id, ok := pathAccountID(c)
	if !ok {
		return
	}

	var input entities.ProfileUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(bindMessage(err)))
		return
	}

	account, err := h.accountUsecase.UpdateProfile(c.Request.Context(), middleware.GetAccountID(c), id, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account.Safe())
}

// ListAccountPayments returns an account's payment history
// GET /accounts/:id/payments
func (h *AccountHandler) ListAccountPayments(c *gin.Context) {
	id, ok := pathAccountID(c)
	if !ok {
		return
	}

	payments, err := h.accountUsecase.ListPayments(c.Request.Context(), middleware.GetAccountID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payments": payments})
}

func (h *AccountHandler) setToken(c *gin.Context, token string) {
	if token == "" {
		return
	}
	c.Header(AccessTokenHeader, token)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(h.tokenTTL.Seconds()), "/", "", h.secureCookie, true)
}

func pathAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid account id"))
		return uuid.Nil, false
	}
	return id, true
}

func requestOrigin(c *gin.Context) entities.Origin {
	return entities.Origin{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
