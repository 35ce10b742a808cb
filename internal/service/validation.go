package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

const (
	usernameRules = "required,max=150,username"
	emailRules    = "required,email"
	passwordRules = "required,bcryptlen"
	nameRules     = "max=150"

	msgBlank           = "This field may not be blank."
	msgTooLong         = "Ensure this field has no more than 150 characters."
	msgInvalidEmail    = "Enter a valid email address."
	msgInvalidUsername = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgUsernameTaken   = "A user with that username already exists."
	msgPasswordTooLong = "Ensure this field has no more than 72 bytes."

	// bcrypt only accepts this many bytes of input.
	maxPasswordBytes = 72
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

type fieldValidator struct {
	v *validator.Validate
}

func newFieldValidator() *fieldValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return &fieldValidator{v: v}
}

// check validates value against rules and records the first violation under
// field.
func (f *fieldValidator) check(verr *ValidationError, field, value, rules string) {
	err := f.v.Var(value, rules)
	if err == nil {
		return
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		verr.add(field, "Invalid value.")
		return
	}
	verr.add(field, messageFor(errs[0].Tag()))
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return msgBlank
	case "max":
		return msgTooLong
	case "email":
		return msgInvalidEmail
	case "username":
		return msgInvalidUsername
	case "bcryptlen":
		return msgPasswordTooLong
	default:
		return "Invalid value."
	}
}
