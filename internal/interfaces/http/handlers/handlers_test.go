package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"plan-ledger.backend/internal/domain/entities"
	"plan-ledger.backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withCaller stands in for the identity middleware.
func withCaller(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != uuid.Nil {
			c.Set(middleware.AccountIDKey, id)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Signup(ctx context.Context, input *entities.SignupInput, origin entities.Origin) (*entities.Account, string, error) {
	args := m.Called(ctx, input, origin)
	account, _ := args.Get(0).(*entities.Account)
	return account, args.String(1), args.Error(2)
}

func (m *MockAccountService) Login(ctx context.Context, input *entities.LoginInput, origin entities.Origin) (*entities.Account, string, error) {
	args := m.Called(ctx, input, origin)
	account, _ := args.Get(0).(*entities.Account)
	return account, args.String(1), args.Error(2)
}

func (m *MockAccountService) Exists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountService) Get(ctx context.Context, callerID, id uuid.UUID) (*entities.Account, error) {
	args := m.Called(ctx, callerID, id)
	account, _ := args.Get(0).(*entities.Account)
	return account, args.Error(1)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, callerID, id uuid.UUID, input *entities.ProfileUpdateInput) (*entities.Account, error) {
	args := m.Called(ctx, callerID, id, input)
	account, _ := args.Get(0).(*entities.Account)
	return account, args.Error(1)
}

func (m *MockAccountService) ListPayments(ctx context.Context, callerID, id uuid.UUID) ([]*entities.Payment, error) {
	args := m.Called(ctx, callerID, id)
	payments, _ := args.Get(0).([]*entities.Payment)
	return payments, args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) StartCheckout(ctx context.Context, input *entities.CheckoutInput) (*entities.CheckoutResult, error) {
	args := m.Called(ctx, input)
	result, _ := args.Get(0).(*entities.CheckoutResult)
	return result, args.Error(1)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) VerifySigned(ctx context.Context, input *entities.SignedConfirmation) (*entities.Payment, error) {
	args := m.Called(ctx, input)
	payment, _ := args.Get(0).(*entities.Payment)
	return payment, args.Error(1)
}

func (m *MockReconciliationService) HandleRedirect(ctx context.Context, input *entities.RedirectConfirmation) (entities.RedirectOutcome, entities.Plan) {
	args := m.Called(ctx, input)
	return args.Get(0).(entities.RedirectOutcome), args.Get(1).(entities.Plan)
}

func (m *MockReconciliationService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	args := m.Called(ctx, body, signature)
	return args.Error(0)
}

type MockAdminQueryService struct {
	mock.Mock
}

func (m *MockAdminQueryService) Dashboard(ctx context.Context, callerID uuid.UUID) (*entities.Dashboard, error) {
	args := m.Called(ctx, callerID)
	dashboard, _ := args.Get(0).(*entities.Dashboard)
	return dashboard, args.Error(1)
}

func (m *MockAdminQueryService) Statistics(ctx context.Context, callerID uuid.UUID) (entities.Statistics, error) {
	args := m.Called(ctx, callerID)
	stats, _ := args.Get(0).(entities.Statistics)
	return stats, args.Error(1)
}

type MockAdminCommandService struct {
	mock.Mock
}

func (m *MockAdminCommandService) Execute(ctx context.Context, callerID uuid.UUID, cmd *entities.AdminCommand) (string, error) {
	args := m.Called(ctx, callerID, cmd)
	return args.String(0), args.Error(1)
}
