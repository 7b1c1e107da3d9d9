package rbachttp

import (
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

func newValidator() *validator.Validate {
	v := validator.New()
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("rbac_role", func(fl validator.FieldLevel) bool {
		_, err := rbac.ParseRole(fl.Field().String())
		return err == nil
	})
	must("rbac_module", func(fl validator.FieldLevel) bool {
		_, err := rbac.ParseModule(fl.Field().String())
		return err == nil
	})
	must("rbac_action", func(fl validator.FieldLevel) bool {
		_, err := rbac.ParseAction(fl.Field().String())
		return err == nil
	})
	return v
}
