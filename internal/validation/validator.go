package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// Reject a customer snapshot with neither email nor phone: there would be
	// no way to reach them about the order.
	v.RegisterStructValidation(customerStructValidation, CustomerPayload{})

	return v
}

func customerStructValidation(sl validatorv10.StructLevel) {
	c := sl.Current().Interface().(CustomerPayload)
	if c.Email == "" && c.Phone == "" {
		sl.ReportError(c.Email, "email", "Email", "email_or_phone", "")
	}
}
