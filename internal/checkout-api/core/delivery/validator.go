// Package delivery decides whether an address can be delivered to.
package delivery

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
)

// Validator checks required fields, the contact email and the service area,
// in that order. Only the first failure is returned by Validate.
type Validator struct {
	validate    *validator.Validate
	serviceArea map[string]struct{}
}

// NewValidator accepts the spellings of every serviceable city; they are
// normalised the same way user input is.
func NewValidator(serviceAreaCities []string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	area := make(map[string]struct{}, len(serviceAreaCities))
	for _, c := range serviceAreaCities {
		if n := NormalizeCity(c); n != "" {
			area[n] = struct{}{}
		}
	}
	return &Validator{validate: v, serviceArea: area}
}

// NormalizeCity trims and lowercases a city name.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// Validate returns nil, a *entity.ValidationError or a *entity.ServiceAreaError.
func (v *Validator) Validate(addr entity.Address) error {
	if violations := v.fieldViolations(addr, false); len(violations) > 0 {
		return &violations[0]
	}
	if !v.Serviceable(addr.City) {
		return entity.NewServiceAreaError(strings.TrimSpace(addr.City))
	}
	return nil
}

// ValidatePresence only checks the required fields. It is used for the
// billing address, which is neither emailed nor delivered to.
func (v *Validator) ValidatePresence(addr entity.Address) error {
	if violations := v.fieldViolations(addr, true); len(violations) > 0 {
		return &violations[0]
	}
	return nil
}

// Violations lists every rule addr breaks, in the order Validate checks them.
func (v *Validator) Violations(addr entity.Address) []entity.ValidationError {
	violations := v.fieldViolations(addr, false)
	if strings.TrimSpace(addr.City) != "" && !v.Serviceable(addr.City) {
		violations = append(violations, entity.NewServiceAreaError(addr.City).ValidationError)
	}
	return violations
}

func (v *Validator) Serviceable(city string) bool {
	_, ok := v.serviceArea[NormalizeCity(city)]
	return ok
}

func (v *Validator) fieldViolations(addr entity.Address, presenceOnly bool) []entity.ValidationError {
	trimmed := addr.Trimmed()

	var err error
	if presenceOnly {
		err = v.validate.StructExcept(trimmed, "Email")
	} else {
		err = v.validate.Struct(trimmed)
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []entity.ValidationError{{Reason: entity.ReasonMissingField}}
	}

	out := make([]entity.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reason := entity.ReasonMissingField
		if fe.StructField() == "Email" {
			reason = entity.ReasonInvalidEmail
		}
		out = append(out, entity.ValidationError{Reason: reason, Field: fe.Field()})
	}
	return out
}
