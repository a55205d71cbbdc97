package service

import (
	"database/sql"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/bips-college-api/internal/repository"
	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
)

// maxAmount is the first value that no longer fits a NUMERIC(14,2) column.
var maxAmount = decimal.New(1, 12)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// NewValidator returns a validator that understands decimal amounts, so tags such as gte=0 apply to them.
// Every decimal field of the request types below must also fit the money columns exactly.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterStructValidation(validateAmounts,
		InitializeDonationRequest{}, CreateStudentRequest{}, BatchStudentInput{}, PaymentInput{})
	return validate
}

// ValidAmount reports whether d has at most two decimal places and fits a money column.
func ValidAmount(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2)) && d.Abs().LessThan(maxAmount)
}

func validateAmounts(sl validator.StructLevel) {
	current := sl.Current()
	for i := 0; i < current.NumField(); i++ {
		field := current.Field(i)
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}
		if field.Type() != decimalType {
			continue
		}
		if !ValidAmount(field.Interface().(decimal.Decimal)) {
			name := current.Type().Field(i).Name
			sl.ReportError(field.Interface(), name, name, "money", "")
		}
	}
}

const amountMessage = "amounts must have at most two decimal places and be less than 1,000,000,000,000"

func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Tag() == "money" {
				message = amountMessage
				break
			}
		}
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// amountError rejects computed totals that no longer fit a money column.
func amountError(amounts ...decimal.Decimal) error {
	for _, d := range amounts {
		if !ValidAmount(d) {
			return appErrors.Clone(appErrors.ErrValidation, amountMessage)
		}
	}
	return nil
}

// storeError maps repository failures onto the API error taxonomy.
func storeError(err error, notFound, conflict, internal string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrDuplicateKey), errors.Is(err, repository.ErrStaleWrite):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict)
	default:
		return appErrors.Internal(err, internal)
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
