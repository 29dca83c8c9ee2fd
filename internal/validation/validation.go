// Package validation checks catalog input before it reaches the services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"catalog/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ISBNPattern matches 10 or 13 ASCII digits.
var ISBNPattern = regexp.MustCompile(`^([0-9]{10}|[0-9]{13})$`)

var bookMessages = map[string]map[string]string{
	"isbn": {
		"required":     "The book ISBN must be defined.",
		"catalog_isbn": "The ISBN format must be valid.",
	},
	"title": {
		"required": "The book title must be defined.",
		"notblank": "The book title must be defined.",
	},
	"author": {
		"required": "The book author must be defined.",
		"notblank": "The book author must be defined.",
	},
	"price": {
		"required": "The book price must be defined.",
		"gt":       "The book price must be greater than zero.",
	},
}

// Errors maps a JSON field name to the reason it was rejected.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the catalog rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("catalog_isbn", func(fl validator.FieldLevel) bool {
		return ISBNPattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// ValidateBook returns Errors describing every invalid field of book, or nil.
func (v *Validator) ValidateBook(book models.Book) error {
	return v.check(book, bookMessages)
}

// Struct validates any tagged struct, such as a user or login request.
func (v *Validator) Struct(s interface{}) error {
	return v.check(s, nil)
}

func (v *Validator) check(s interface{}, messages map[string]map[string]string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate: %w", err)
	}

	result := make(Errors, len(validationErrors))
	for _, e := range validationErrors {
		if msg, ok := messages[e.Field()][e.Tag()]; ok {
			result[e.Field()] = msg
			continue
		}
		result[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return result
}
