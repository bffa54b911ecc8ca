package handler

import (
	"sync"

	"github.com/diario/internal/logger"
	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// registerValidators 向 gin 的校验引擎注册自定义规则。
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("categorias", validCategories); err != nil {
			logger.L().Error("register categorias validator failed", zap.Error(err))
		}
	})
}

func validCategories(fl validator.FieldLevel) bool {
	_, err := service.NormalizeCategories(fl.Field().String())
	return err == nil
}
