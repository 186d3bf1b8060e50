// Package flerr provides the structured error type used by the faultline
// SDK's own infrastructure: catalog, settings and audit stores, configuration
// loading, and the wire codec. It defines machine-readable codes, helper
// constructors, and predicates for creating, wrapping, and inspecting errors.
//
// flerr errors describe faults *of* the SDK (a store is unreachable, a config
// file is invalid). They are distinct from the domain failures the SDK
// propagates between call frames; those are fault trees re-signaled as
// propagate.Failure values.
//
// # Usage
//
// Create a new error:
//
//	err := flerr.New(flerr.CodeValidation, "budget must be positive")
//
// Wrap an underlying cause:
//
//	err := flerr.Wrap(err, flerr.CodeStore, "audit: insert failed")
//
// Inspect:
//
//	if flerr.HasCode(err, flerr.CodeCatalogMiss) { ... }
package flerr

import "fmt"

// Error is a structured error with a machine-readable code, a human-readable
// message, and an optional cause. Error values are immutable after creation;
// WithDetail returns a copy.
type Error struct {
	// Code is the machine-readable error code (e.g. "STORE_001").
	Code Code

	// Message is the human-readable error message.
	Message string

	// Cause is the underlying error, if any. Unwrap exposes it to
	// errors.Is and errors.As.
	Cause error

	// Details holds additional structured context for logging.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, supporting errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of e with one detail key-value pair added.
// The original error is not modified.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// Format implements fmt.Formatter. %v prints the standard form; %+v adds
// details and the full cause chain.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "Error{Code: %q, Message: %q", e.Code, e.Message)
			if len(e.Details) > 0 {
				fmt.Fprintf(s, ", Details: %v", e.Details)
			}
			if e.Cause != nil {
				fmt.Fprintf(s, ", Cause: %+v", e.Cause)
			}
			fmt.Fprint(s, "}")
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
