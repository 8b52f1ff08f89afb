package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	stageNamespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("stage_ns", func(fl validator.FieldLevel) bool {
			return stageNamespacePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Validate checks a settings document.
func Validate(cfg *Settings) error {
	if cfg == nil {
		return planerrors.NewValidationError("settings", "settings are nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	return nil
}

func convertValidationError(err error) error {
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		field := fieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return planerrors.NewValidationError(field, msg, err)
	}

	return planerrors.NewValidationError("settings", err.Error(), err)
}

// fieldName turns Settings.Cache.SQLitePath into cache.sqlitepath.
func fieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}
	return strings.Join(parts, ".")
}
