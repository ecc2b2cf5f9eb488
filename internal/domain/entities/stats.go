package entities

// Statistics is recomputed from the stores on every call.
type Statistics struct {
	Accounts AccountStats `json:"accounts"`
	Payments PaymentStats `json:"payments"`
}

type AccountStats struct {
	Total    int                   `json:"total"`
	ByPlan   map[Plan]int          `json:"byPlan"`
	ByRole   map[Role]int          `json:"byRole"`
	ByStatus map[AccountStatus]int `json:"byStatus"`
}

type PaymentStats struct {
	Total    int                   `json:"total"`
	ByStatus map[PaymentStatus]int `json:"byStatus"`
	// Revenue sums completed payments in minor units.
	Revenue map[Currency]int64 `json:"revenue"`
}

// Dashboard is the admin GET payload.
type Dashboard struct {
	Accounts   []SafeAccount `json:"accounts"`
	Payments   []*Payment    `json:"payments"`
	Statistics Statistics    `json:"statistics"`
}

// AdminAction names a privileged mutation.
type AdminAction string

const (
	ActionMakeAdmin     AdminAction = "makeAdmin"
	ActionRemoveAdmin   AdminAction = "removeAdmin"
	ActionUpdatePlan    AdminAction = "updatePlan"
	ActionDisable       AdminAction = "disable"
	ActionEnable        AdminAction = "enable"
	ActionResetPassword AdminAction = "resetPassword"
	ActionDeleteAccount AdminAction = "deleteAccount"
	ActionViewDashboard AdminAction = "viewDashboard"
)

// AdminCommand represents POST /admin
type AdminCommand struct {
	Action          AdminAction `json:"action" binding:"required"`
	TargetAccountID string      `json:"targetAccountId"`
	Plan            string      `json:"plan"`
	Currency        string      `json:"currency"`
	Reason          string      `json:"reason"`
	NewSecret       string      `json:"newSecret"`
}
