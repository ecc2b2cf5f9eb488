package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"plan-ledger.backend/internal/domain/entities"
)

var registerOnce sync.Once

// RegisterValidators adds the plan and currency tags to gin's validator.
// Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
			_, ok := entities.ParsePlan(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			_, ok := entities.ParseCurrency(fl.Field().String())
			return ok
		})
	})
}

// bindMessage turns a binding failure into a short client message.
func bindMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "a valid email is required"
	case "plan":
		return "unknown plan"
	case "currency":
		return "unsupported currency"
	default:
		return fe.Field() + " is invalid"
	}
}
