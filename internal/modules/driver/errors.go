package driver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("driver not found")
	ErrBadRequest        = errors.New("bad request")
	ErrConflict          = errors.New("conflict")
	ErrDuplicateDriverID = errors.New("duplicate driver id")
	ErrDuplicatePhone    = errors.New("duplicate phone")
)

// ValidationError lists field problems for a rejected command.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid driver (%d fields)", len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

// DuplicateError reports a unique driver_id or phone collision.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	if e.Field == "driver_id" {
		return fmt.Sprintf("Driver ID %s is already in use", e.Value)
	}
	return fmt.Sprintf("Phone %s is already in use", e.Value)
}

// Code is the machine-readable error code surfaced to clients.
func (e *DuplicateError) Code() string {
	return "DUPLICATE_" + strings.ToUpper(e.Field)
}

func (e *DuplicateError) Unwrap() []error {
	if e.Field == "driver_id" {
		return []error{ErrDuplicateDriverID, ErrConflict}
	}
	return []error{ErrDuplicatePhone, ErrConflict}
}
