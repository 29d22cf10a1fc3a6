package validation

import (
	"reflect"
	"regexp"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

var paymentMethods = map[string]struct{}{
	"cod":    {},
	"online": {},
	"wallet": {},
	"card":   {},
}

// New returns a validator that reports fields by their JSON names and knows
// the store's custom tags.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("payment_method", func(fl validatorv10.FieldLevel) bool {
		_, ok := paymentMethods[fl.Field().String()]
		return ok
	})

	// Indian postal code
	_ = v.RegisterValidation("pincode", func(fl validatorv10.FieldLevel) bool {
		return pincodePattern.MatchString(fl.Field().String())
	})

	return v
}
