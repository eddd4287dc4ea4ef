// Package validation decides whether application content is complete enough to submit.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/daco-workflow/internal/domain/entity"
	"github.com/garyjia/daco-workflow/internal/domain/workflow"
)

// Validator checks submit readiness. Implementations must not perform I/O.
type Validator interface {
	Validate(content *entity.ApplicationContent) error
}

// FieldError names one incomplete or malformed field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error lists every field that failed validation
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return fmt.Sprintf("%s: %s", workflow.ErrIncompleteApplication, strings.Join(parts, ", "))
}

// Is makes errors.Is(err, workflow.ErrIncompleteApplication) hold for validation failures
func (e *Error) Is(target error) bool {
	return target == workflow.ErrIncompleteApplication
}

// FieldNames returns the failing field paths
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

type structValidator struct {
	validate *validator.Validate
}

// New returns the default tag-driven content validator
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	v.RegisterStructValidation(distinctRepresentative, entity.ApplicationContent{})
	return &structValidator{validate: v}
}

func (s *structValidator) Validate(content *entity.ApplicationContent) error {
	if content == nil {
		return &Error{Fields: []FieldError{{Field: "content", Rule: "required"}}}
	}

	err := s.validate.Struct(content)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate content: %w", err)
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: trimRoot(fe.Namespace()),
			Rule:  fe.Tag(),
		})
	}
	return out
}

// distinctRepresentative rejects applications signed off by the applicant themselves
func distinctRepresentative(sl validator.StructLevel) {
	content := sl.Current().Interface().(entity.ApplicationContent)
	applicant := strings.TrimSpace(content.Applicant.Email)
	rep := strings.TrimSpace(content.Representative.Email)
	if applicant != "" && strings.EqualFold(applicant, rep) {
		sl.ReportError(content.Representative.Email, "representative.email", "Email", "nefield", "applicant.email")
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// trimRoot drops the top-level struct name from a validator namespace
func trimRoot(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
