package validation

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// BindJSON decodes the request body into out and validates it. Failures come
// back as validation errors so the handler can render them uniformly.
func BindJSON(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return apperror.Validation("Invalid request body: %v", err)
	}
	return Struct(out, v)
}

// BindOptionalJSON is BindJSON for endpoints whose body may be omitted. An
// empty body leaves out untouched whatever the Content-Length says.
func BindOptionalJSON(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.Validation("Invalid request body: %v", err)
	}
	return Struct(out, v)
}

// Struct validates an already populated request
func Struct(out interface{}, v *validatorv10.Validate) error {
	if err := v.Struct(out); err != nil {
		fields := ErrorsToMap(err)
		return apperror.ValidationFields("Validation failed", fields)
	}
	return nil
}

// ErrorsToMap flattens validator errors into namespace -> message
func ErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[trimRoot(fe.Namespace())] = message(fe)
	}
	return out
}

func trimRoot(ns string) string {
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email address"
	case "payment_method":
		return "must be one of [cod online wallet card]"
	case "pincode":
		return "must be a 6 digit postal code"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
