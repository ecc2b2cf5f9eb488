package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// MinSecretLength is the shortest secret accepted at signup and reset.
const MinSecretLength = 6

// MaxSecretBytes is bcrypt's input limit.
const MaxSecretBytes = 72

// Column widths of the accounts table.
const (
	MaxEmailLength = 255
	MaxNameLength  = 100
	MaxPhoneLength = 32
)

// Role represents account roles
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Plan represents the subscription tier of an account
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Plans lists every tier in display order.
var Plans = []Plan{PlanFree, PlanStarter, PlanPro, PlanEnterprise}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Paid reports whether the plan must be bought through checkout.
func (p Plan) Paid() bool {
	return p.Valid() && p != PlanFree
}

// ParsePlan accepts any casing and surrounding whitespace.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Currency is an ISO-4217 code accepted by the gateway
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyINR Currency = "INR"
)

// DefaultCurrency is used when checkout does not name one.
const DefaultCurrency = CurrencyINR

func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyINR
}

// ParseCurrency accepts any casing and surrounding whitespace.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// AccountStatus represents whether an account may sign in
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusDisabled
}

// Account represents a registered customer
type Account struct {
	ID              uuid.UUID
	Email           string
	EmailNormalized string
	Name            string
	Phone           string
	CredentialHash  string
	Role            Role
	Plan            Plan
	Currency        null.String
	Status          AccountStatus
	DisabledReason  null.String
	SignupOrigin    string
	LastLoginOrigin null.String
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// SafeAccount is the only account shape that leaves the service.
type SafeAccount struct {
	ID              uuid.UUID     `json:"id"`
	Email           string        `json:"email"`
	Name            string        `json:"name"`
	Phone           string        `json:"phone"`
	Role            Role          `json:"role"`
	Plan            Plan          `json:"plan"`
	Currency        null.String   `json:"currency"`
	Status          AccountStatus `json:"status"`
	DisabledReason  null.String   `json:"disabledReason"`
	LastLoginOrigin null.String   `json:"lastLoginOrigin,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
}

// Safe projects the account without its credential.
func (a *Account) Safe() SafeAccount {
	return SafeAccount{
		ID:              a.ID,
		Email:           a.Email,
		Name:            a.Name,
		Phone:           a.Phone,
		Role:            a.Role,
		Plan:            a.Plan,
		Currency:        a.Currency,
		Status:          a.Status,
		DisabledReason:  a.DisabledReason,
		LastLoginOrigin: a.LastLoginOrigin,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		PaidAt:          a.PaidAt,
	}
}

// SafeAccounts projects a list of accounts.
func SafeAccounts(accounts []*Account) []SafeAccount {
	out := make([]SafeAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Safe())
	}
	return out
}

// NormalizeEmail is the comparison form used by the unique index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountPatch is a partial update; nil fields are left untouched.
type AccountPatch struct {
	Name           *string
	Phone          *string
	Plan           *Plan
	Currency       *null.String
	Role           *Role
	Status         *AccountStatus
	DisabledReason *null.String
	CredentialHash *string
	PaidAt         *time.Time
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Plan == nil && p.Currency == nil &&
		p.Role == nil && p.Status == nil && p.DisabledReason == nil &&
		p.CredentialHash == nil && p.PaidAt == nil
}

// PlanPatch moves an account to plan. Currency is cleared for the free plan.
func PlanPatch(plan Plan, currency Currency) AccountPatch {
	cur := null.StringFrom(string(currency))
	if plan == PlanFree || currency == "" {
		cur = null.String{}
	}
	return AccountPatch{Plan: &plan, Currency: &cur}
}

// SignupInput represents input for creating an account
type SignupInput struct {
	Email  string `json:"email" binding:"required,email"`
	Secret string `json:"secret" binding:"required"`
	Name   string `json:"name" binding:"required,min=1,max=100"`
	Phone  string `json:"phone" binding:"required,max=32"`
}

// LoginInput represents input for signing in
type LoginInput struct {
	Email  string `json:"email" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// ProfileUpdateInput represents PATCH /accounts/{id}
type ProfileUpdateInput struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone" binding:"omitempty,min=1,max=32"`
	Plan     *string `json:"plan" binding:"omitempty,plan"`
	Currency *string `json:"currency" binding:"omitempty,currency"`
}

// Origin captures where a request came from.
type Origin struct {
	IP        string
	UserAgent string
}

func (o Origin) String() string {
	if o.UserAgent == "" {
		return o.IP
	}
	return o.IP + " " + o.UserAgent
}
