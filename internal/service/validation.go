package service

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"

	apperrors "gptcatalog/internal/errors"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest password bcrypt can hash, in bytes.
const MaxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^"]+@[^"]+\.[a-zA-Z]{2,}$`)

// NewValidator returns a validator with the catalog_email tag registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("catalog_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	// min counts runes; bcrypt's limit is on bytes
	_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	return v
}

type loginInput struct {
	Email    string `validate:"required,catalog_email"`
	Password string `validate:"required"`
}

type signupInput struct {
	Email    string `validate:"required,catalog_email"`
	Password string `validate:"required,min=6,bcrypt_len"`
}

// translateValidation maps validator failures onto domain errors. Missing
// fields win over format errors, and email problems are reported before
// password problems.
func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return apperrors.ErrMissingCredentials
		}
	}
	for _, fe := range verrs {
		if fe.Tag() == "catalog_email" {
			return apperrors.ErrInvalidEmail
		}
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "min":
			return apperrors.ErrPasswordTooShort
		case "bcrypt_len":
			return apperrors.ErrPasswordTooLong
		}
	}
	return apperrors.ErrInvalidRequest
}
