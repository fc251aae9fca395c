package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/article-generation-api/internal/models"
	"github.com/go-playground/validator/v10"
)

// MaxTagLength bounds a single tag in manual edits
const MaxTagLength = 64

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator checks inbound requests before they reach the store
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{validate: v}
}

// ValidateGenerationRequest validates a submit or regenerate request
func (v *Validator) ValidateGenerationRequest(req *models.GenerationRequest) []ValidationError {
	if req == nil {
		return []ValidationError{{Field: "topic", Message: "topic is required"}}
	}
	return v.translate(v.validate.Struct(req))
}

// ValidateEdit validates a manual article edit
func (v *Validator) ValidateEdit(edit *models.ArticleEdit) []ValidationError {
	if edit == nil {
		return []ValidationError{{Field: "body", Message: "request body is required"}}
	}

	errs := v.translate(v.validate.Struct(edit))

	seen := make(map[string]bool, len(edit.Tags))
	for i, tag := range edit.Tags {
		field := fmt.Sprintf("tags[%d]", i)
		trimmed := strings.TrimSpace(tag)
		switch {
		case trimmed == "":
			// reported by the notblank tag
		case utf8.RuneCountInString(trimmed) > MaxTagLength:
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("tag exceeds maximum of %d characters", MaxTagLength), Value: tag})
		case seen[strings.ToLower(trimmed)]:
			errs = append(errs, ValidationError{Field: field, Message: "duplicate tag", Value: tag})
		}
		seen[strings.ToLower(trimmed)] = true
	}

	return errs
}

// translate converts validator errors into ValidationError values
func (v *Validator) translate(err error) []ValidationError {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "body", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: message(fe),
			Value:   valueOf(fe),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func valueOf(fe validator.FieldError) interface{} {
	if s, ok := fe.Value().(string); ok && s == "" {
		return nil
	}
	switch fe.Kind() {
	case reflect.String, reflect.Int, reflect.Int64:
		return fe.Value()
	}
	return nil
}
