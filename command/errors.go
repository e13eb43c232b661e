package command

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrRegistration marks configuration errors found while building a registry.
	ErrRegistration = errors.New("command registration failed")

	// ErrParse marks model output that could not be turned into commands.
	ErrParse = errors.New("failed to parse commands")
)

// RegistrationError reports a command type that cannot be registered.
type RegistrationError struct {
	Name   string
	Types  []reflect.Type
	Reason string
}

func (e *RegistrationError) Error() string {
	names := make([]string, len(e.Types))
	for i, t := range e.Types {
		names[i] = typeName(t)
	}
	if e.Name == "" {
		return fmt.Sprintf("command type %s: %s", strings.Join(names, ", "), e.Reason)
	}
	return fmt.Sprintf("command %q (%s): %s", e.Name, strings.Join(names, ", "), e.Reason)
}

func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistration
}

// MissingFieldError reports a required field absent from a known command.
type MissingFieldError struct {
	Command string
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("command %q is missing required field %q", e.Command, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrParse
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
