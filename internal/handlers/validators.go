package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"authservice/internal/services"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// max=72 считает руны, bcrypt считает байты
		_ = v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= services.MaxPasswordBytes
		})
	}
}
