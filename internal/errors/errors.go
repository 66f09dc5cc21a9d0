// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrRequestFailed         = errors.New("request failed")
	ErrChannel               = errors.New("push channel error")
	ErrMalformedNotification = errors.New("malformed notification")
	ErrCommandFailed         = errors.New("command failed")
	ErrSessionClosed         = errors.New("session closed")
	ErrConfigInvalid         = errors.New("invalid configuration")
	ErrInputValidation       = errors.New("input validation failed")
)

// RequestError represents a failed call against the remote API.
// A timeout, a transport failure and a non-success response all land here.
type RequestError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request error [%s] %s: status %d: %v", e.Op, e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("request error [%s] %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is reports ErrRequestFailed as a match for any RequestError.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// NewRequestError creates a new RequestError.
func NewRequestError(op, endpoint string, statusCode int, err error) *RequestError {
	return &RequestError{
		Op:         op,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ChannelError represents a push channel malfunction.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel error [%s]: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

func (e *ChannelError) Is(target error) bool {
	return target == ErrChannel
}

// NewChannelError creates a new ChannelError.
func NewChannelError(op string, err error) *ChannelError {
	return &ChannelError{
		Op:  op,
		Err: err,
	}
}

// NotificationError represents a push payload that could not be interpreted.
type NotificationError struct {
	Payload string
	Reason  string
	Err     error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed notification: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed notification: %s", e.Reason)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func (e *NotificationError) Is(target error) bool {
	return target == ErrMalformedNotification
}

// NewNotificationError creates a new NotificationError. Long payloads are truncated.
func NewNotificationError(payload []byte, reason string, err error) *NotificationError {
	p := string(payload)
	if len(p) > 256 {
		p = p[:256] + "..."
	}
	return &NotificationError{
		Payload: p,
		Reason:  reason,
		Err:     err,
	}
}

// CommandError represents a user-initiated mutation that did not complete.
type CommandError struct {
	Command string
	Target  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed [%s] %s: %v", e.Command, e.Target, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// NewCommandError creates a new CommandError.
func NewCommandError(command, target string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Target:  target,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
