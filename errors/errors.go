/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a row is not present in a table
	ErrNotFound = errors.New("row not found")

	// ErrAlreadyExists is returned when creating a row whose key is already stored
	ErrAlreadyExists = errors.New("row already exists")

	// ErrInvalidInput is returned when an entry or model definition is malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrPrecondition marks a programming error in the caller, such as writing an abstract entity type
	ErrPrecondition = errors.New("precondition violated")

	// ErrStoreClosed is returned when a table is used after its store was closed
	ErrStoreClosed = errors.New("store closed")
)

// NotFoundError represents an error when a row is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when a row already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// PreconditionError is raised (as a panic value) when a caller breaks a contract of the registry.
type PreconditionError struct {
	Operation string
	Message   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition violated in %s: %s", e.Operation, e.Message)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewPreconditionError creates a new PreconditionError
func NewPreconditionError(operation, message string) error {
	return &PreconditionError{Operation: operation, Message: message}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsPrecondition checks if an error is a precondition violation
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}
