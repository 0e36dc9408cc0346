// Package validator checks decoded request payloads with struct tags.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"

	"backoffice/internal/money"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidPassword = errors.New("password must be at least 8 characters")
)

var (
	emailRegex      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nationalIDRegex = regexp.MustCompile(`^[0-9][0-9-]{3,18}[0-9]$`)
)

// FieldError describes the first rule a payload broke.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e *FieldError) Error() string {
	switch e.Rule {
	case "required":
		return e.Field + " is required"
	case "email":
		return e.Field + " must be a valid email"
	case "password":
		return e.Field + " must be at least 8 characters"
	case "national_id":
		return e.Field + " must be a valid national id"
	case "amount":
		return e.Field + " must be a positive amount with at most two decimals"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	}
	return e.Field + " is invalid"
}

func (e *FieldError) Unwrap() error { return ErrValidation }

var (
	instance *playground.Validate
	once     sync.Once
	initErr  error
)

func get() (*playground.Validate, error) {
	once.Do(func() {
		v := playground.New(playground.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		rules := map[string]playground.Func{
			"password": func(fl playground.FieldLevel) bool {
				return ValidatePassword(fl.Field().String()) == nil
			},
			"national_id": func(fl playground.FieldLevel) bool {
				return nationalIDRegex.MatchString(fl.Field().String())
			},
			"amount": func(fl playground.FieldLevel) bool {
				minor, err := money.ParseMinor(fl.Field().String())
				return err == nil && minor > 0
			},
		}
		for tag, fn := range rules {
			if err := v.RegisterValidation(tag, fn); err != nil {
				initErr = fmt.Errorf("register %s: %w", tag, err)
				return
			}
		}
		instance = v
	})
	return instance, initErr
}

// Struct validates payload and returns a *FieldError for the first failure.
func Struct(payload any) error {
	v, err := get()
	if err != nil {
		return err
	}
	if err := v.Struct(payload); err != nil {
		var fieldErrs playground.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return &FieldError{Field: first.Field(), Rule: first.Tag(), Param: first.Param()}
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}
