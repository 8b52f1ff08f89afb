package errors

import (
	"fmt"
	"strings"
)

// NotFoundError reports a stage with no backing source under either the
// directory or the leaf naming convention.
type NotFoundError struct {
	Stage string
	Path  string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(stage, path string) error {
	return &NotFoundError{Stage: stage, Path: path}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path != "" {
		return fmt.Sprintf("orchestration not found: could not determine path for %s (tried %s)", e.Stage, e.Path)
	}
	return fmt.Sprintf("orchestration not found: could not determine path for %s", e.Stage)
}

// RequisiteError reports a requisite directive that names a step missing
// from the expanded plan.
type RequisiteError struct {
	Step      string
	Directive string
	Module    string
	Name      string
}

// NewRequisiteError constructs a RequisiteError.
func NewRequisiteError(step, directive, module, name string) error {
	return &RequisiteError{Step: step, Directive: directive, Module: module, Name: name}
}

func (e *RequisiteError) Error() string {
	if e == nil {
		return ""
	}
	target := e.Name
	if e.Module != "" {
		target = fmt.Sprintf("%s: %s", e.Module, e.Name)
	}
	return fmt.Sprintf("requisite error on step %s: %s references unknown step {%s}", e.Step, e.Directive, target)
}

// ArgumentError reports step arguments or include declarations with a shape
// that cannot be interpreted.
type ArgumentError struct {
	Step    string
	Message string
}

// NewArgumentError constructs an ArgumentError.
func NewArgumentError(step, message string) error {
	return &ArgumentError{Step: step, Message: message}
}

func (e *ArgumentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Step != "" {
		return fmt.Sprintf("malformed arguments on step %s: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("malformed arguments: %s", e.Message)
}

// IncludeCycleError reports a stage that includes itself, directly or
// through other stages. Path lists the stages from the first occurrence
// back to the repeated one.
type IncludeCycleError struct {
	Path []string
}

// NewIncludeCycleError constructs an IncludeCycleError.
func NewIncludeCycleError(path []string) error {
	return &IncludeCycleError{Path: append([]string(nil), path...)}
}

func (e *IncludeCycleError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("include cycle: %s", strings.Join(e.Path, " -> "))
}

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
