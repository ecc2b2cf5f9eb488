package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/interfaces/http/middleware"
	"plan-ledger.backend/internal/interfaces/http/response"
)

type AdminQueryService interface {
	Dashboard(ctx context.Context, callerID uuid.UUID) (*entities.Dashboard, error)
	Statistics(ctx context.Context, callerID uuid.UUID) (entities.Statistics, error)
}

type AdminCommandService interface {
	Execute(ctx context.Context, callerID uuid.UUID, cmd *entities.AdminCommand) (string, error)
}

// AdminHandler handles the admin surface
type AdminHandler struct {
	queryUsecase AdminQueryService
	authzUsecase AdminCommandService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(queryUsecase AdminQueryService, authzUsecase AdminCommandService) *AdminHandler {
	return &AdminHandler{
		queryUsecase: queryUsecase,
		authzUsecase: authzUsecase,
	}
}

// Dashboard returns accounts, payments and statistics
// GET /admin
func (h *AdminHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.queryUsecase.Dashboard(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dashboard)
}

// Statistics returns only the aggregate counters
// GET /admin/statistics
func (h *AdminHandler) Statistics(c *gin.Context) {
	stats, err := h.queryUsecase.Statistics(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// Execute runs a privileged mutation
// POST /admin
func (h *AdminHandler) Execute(c *gin.Context) {
	var cmd entities.AdminCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, domainerrors.BadRequest(bindMessage(err)))
		return
	}

	message, err := h.authzUsecase.Execute(c.Request.Context(), middleware.GetAccountID(c), &cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
