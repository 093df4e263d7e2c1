// Package validation holds the marketplace's input rules. They run before any
// store call, so the same checks apply in unit tests without a database.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/go-playground/validator/v10"
)

// InstitutionalIDPattern is branch code + "2K" + two year digits + four roll
// digits, e.g. C2K221234.
var InstitutionalIDPattern = regexp.MustCompile(`^(C|I|E|A|EC)2K[0-9]{6}$`)

var labels = map[string]string{
	"name":            "Name",
	"email":           "Email",
	"password":        "Password",
	"phone":           "Phone",
	"whatsapp":        "WhatsApp",
	"year":            "Year",
	"branch":          "Branch",
	"institutionalId": "Institutional ID",
	"otp":             "OTP",
	"title":           "Title",
	"description":     "Description",
	"price":           "Price",
	"category":        "Category",
	"condition":       "Condition",
	"buyerId":         "Buyer ID",
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "institutional_id", func(fl validator.FieldLevel) bool {
		return InstitutionalIDPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "item_category", func(fl validator.FieldLevel) bool {
		return slices.Contains(models.Categories, fl.Field().String())
	})
	mustRegister(v, "item_condition", func(fl validator.FieldLevel) bool {
		return slices.Contains(models.Conditions, fl.Field().String())
	})
	mustRegister(v, "price", func(fl validator.FieldLevel) bool {
		_, ok := ParsePrice(fl.Field().String())
		return ok
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates s and returns an apperr validation error listing every
// violated field, or nil.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal(err, "validation failed")
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return apperr.Validation(fields)
}

// ParsePrice accepts a finite, non-negative decimal.
func ParsePrice(s string) (float64, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, false
	}
	return p, true
}

func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "len":
		if fe.Field() == "otp" {
			return "OTP must be 6 digits"
		}
		return fmt.Sprintf("%s must be %s digits", label, fe.Param())
	case "number":
		return label + " must contain only digits"
	case "email":
		return "Please enter a valid email"
	case "oneof":
		return "Invalid " + strings.ToLower(label)
	case "uuid", "uuid4":
		return label + " must be a valid id"
	case "institutional_id":
		return "Please enter a valid institutional ID (e.g. C2K221234)"
	case "item_category":
		return "Invalid category"
	case "item_condition":
		return "Invalid condition"
	case "price":
		return "Price must be a positive number"
	default:
		return label + " is invalid"
	}
}
