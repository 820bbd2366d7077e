package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"linkpage/internal/errcode"
	"linkpage/internal/service"
)

var registerValidatorsOnce sync.Once

// registerValidators 让校验错误使用 JSON 字段名，并注册自定义规则。
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return service.ValidSlug(fl.Field().String())
		})
	})
}

// bindJSON 解析请求体，失败时登记 VALIDATION_ERROR。
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Fail(c, validationError(err))
		return false
	}
	return true
}

// validationError 将绑定错误转换为以 ", " 拼接的字段消息。
func validationError(err error) *errcode.Error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return errcode.Validation(msgs...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return errcode.Validation(fmt.Sprintf("%s has an invalid type", typeErr.Field))
	}
	if strings.Contains(err.Error(), "invalid UUID") {
		return errcode.Validation("id must be a valid UUID")
	}
	return errcode.Validation("Invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	return namedFieldMessage(fe, fieldPath(fe))
}

func namedFieldMessage(fe validator.FieldError, field string) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s can have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "slug":
		return field + " may only contain lowercase letters, digits and inner hyphens"
	default:
		return field + " is invalid"
	}
}

// fieldPath 去掉顶层结构体名，保留嵌套路径，例如 links[0].id。
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func engine() *validator.Validate {
	registerValidators()
	v, _ := binding.Validator.Engine().(*validator.Validate)
	return v
}

// checkVar 用 binding 规则校验单个值，返回带 name 前缀的消息。
func checkVar(name string, value any, tag string) []string {
	return collect(engine().Var(value, tag), func(fe validator.FieldError) string {
		return name + fe.Namespace()
	})
}

// checkStruct 校验嵌套结构体的 binding 标签。
func checkStruct(name string, value any) []string {
	return collect(engine().Struct(value), func(fe validator.FieldError) string {
		return name + "." + fieldPath(fe)
	})
}

func collect(err error, name func(validator.FieldError) string) []string {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, namedFieldMessage(fe, name(fe)))
	}
	return msgs
}
