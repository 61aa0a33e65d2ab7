package setup

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// anythingLLMKeyPattern matches keys such as ABCD123-EFGH456-IJKL789-MNOP012
var anythingLLMKeyPattern = regexp.MustCompile(`^[A-Z0-9]{7}-[A-Z0-9]{7}-[A-Z0-9]{7}-[A-Z0-9]{7}$`)

// Request is the first-run setup form
type Request struct {
	AnythingLLMURL   string `json:"anythingLLMUrl" validate:"required,http_url"`
	AnythingLLMKey   string `json:"anythingLLMKey" validate:"required,anythingllm_key"`
	OutputDir        string `json:"outputDir,omitempty" validate:"omitempty,max=1024"`
	DefaultWorkspace string `json:"defaultWorkspace,omitempty" validate:"omitempty,max=128"`
}

// FieldErrors maps form field names to inline messages
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, f[field]))
	}
	return "invalid setup: " + strings.Join(parts, "; ")
}

// IsAnythingLLMKey reports whether key has the AnythingLLM key format
func IsAnythingLLMKey(key string) bool {
	return anythingLLMKeyPattern.MatchString(key)
}

func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = validate.RegisterValidation("anythingllm_key", func(fl validator.FieldLevel) bool {
		return IsAnythingLLMKey(fl.Field().String())
	})

	return validate
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "http_url":
		return "must be an http:// or https:// URL"
	case "anythingllm_key":
		return "must look like XXXXXXX-XXXXXXX-XXXXXXX-XXXXXXX"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// validate returns FieldErrors for an invalid request, nil otherwise
func (s *Service) validate(req *Request) error {
	req.AnythingLLMURL = strings.TrimSpace(req.AnythingLLMURL)
	req.AnythingLLMKey = strings.TrimSpace(req.AnythingLLMKey)

	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate setup request: %w", err)
	}

	fieldErrors := make(FieldErrors, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors[fe.Field()] = messageFor(fe)
	}
	return fieldErrors
}
