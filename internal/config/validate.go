package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Severity values for ValidationError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a descriptor validation error or warning.
type ValidationError struct {
	Field    string // Descriptor field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == SeverityError
}

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return structValidator
}

// Validate returns an error listing every validation error. Warnings are
// not errors; use Check to see them.
func (e *Environment) Validate() error {
	var msgs []string
	for _, ve := range e.Check() {
		if ve.IsError() {
			msgs = append(msgs, ve.Error())
		}
	}
	if len(msgs) > 0 {
		return errors.New(strings.Join(msgs, "\n  "))
	}
	return nil
}

// Check runs every validation rule and returns errors and warnings.
func (e *Environment) Check() []ValidationError {
	var out []ValidationError

	if err := getValidator().Struct(e); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				out = append(out, ValidationError{
					Field:    strings.TrimPrefix(fe.Namespace(), "Environment."),
					Message:  describeFieldError(fe),
					Severity: SeverityError,
				})
			}
		} else {
			out = append(out, ValidationError{Field: "environment", Message: err.Error(), Severity: SeverityError})
		}
	}

	out = append(out, e.checkInstanceNames()...)
	out = append(out, e.checkSecurityTargets()...)
	out = append(out, e.checkServices()...)

	return out
}

func (e *Environment) checkInstanceNames() []ValidationError {
	var out []ValidationError
	seen := make(map[string]int, len(e.Instances))
	for i, inst := range e.Instances {
		if inst.Name == "" {
			continue
		}
		if first, dup := seen[inst.Name]; dup {
			out = append(out, ValidationError{
				Field:    fmt.Sprintf("instances[%d].name", i),
				Message:  fmt.Sprintf("duplicate instance name %q (first declared at instances[%d])", inst.Name, first),
				Severity: SeverityError,
			})
			continue
		}
		seen[inst.Name] = i
	}
	return out
}

func (e *Environment) checkSecurityTargets() []ValidationError {
	if e.Security == nil {
		return nil
	}

	var out []ValidationError
	seen := make(map[string]bool, len(e.Security.Targets))
	for i, target := range e.Security.Targets {
		field := fmt.Sprintf("security.targets[%d]", i)
		if target == "" {
			continue
		}
		if _, ok := e.Instance(target); !ok {
			out = append(out, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("target %q is not a declared instance", target),
				Severity: SeverityError,
			})
		}
		if seen[target] {
			out = append(out, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("target %q listed more than once", target),
				Severity: SeverityError,
			})
		}
		seen[target] = true
	}
	return out
}

func (e *Environment) checkServices() []ValidationError {
	var out []ValidationError
	seen := make(map[[2]string]bool, len(e.Services))
	for i, svc := range e.Services {
		key := [2]string{svc.Kind, svc.Target}
		if svc.Kind != "" && seen[key] {
			out = append(out, ValidationError{
				Field:    fmt.Sprintf("services[%d]", i),
				Message:  fmt.Sprintf("service %q is already deployed to %q", svc.Kind, svc.Target),
				Severity: SeverityError,
			})
		}
		seen[key] = true
		if svc.Target != "" {
			if _, ok := e.Instance(svc.Target); !ok {
				out = append(out, ValidationError{
					Field:    fmt.Sprintf("services[%d].target", i),
					Message:  fmt.Sprintf("target %q is not a declared instance", svc.Target),
					Severity: SeverityError,
				})
			}
		}
		if svc.Kind != "" && !slices.Contains(KnownServiceKinds, svc.Kind) {
			out = append(out, ValidationError{
				Field:    fmt.Sprintf("services[%d].kind", i),
				Message:  fmt.Sprintf("unknown service kind %q will be skipped (known: %s)", svc.Kind, strings.Join(KnownServiceKinds, ", ")),
				Severity: SeverityWarning,
			})
		}
	}
	return out
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "hostname_rfc1123":
		return fmt.Sprintf("%q is not a valid DNS label", fe.Value())
	case "cidrv4":
		return fmt.Sprintf("%q is not a valid IPv4 CIDR", fe.Value())
	case "oneof":
		return fmt.Sprintf("%v must be one of [%s]", fe.Value(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("violates %s=%s", fe.Tag(), fe.Param())
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
