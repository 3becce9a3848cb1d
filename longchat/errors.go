package longchat

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes SDK errors.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Transport and lifecycle
	ErrorConnection
	ErrorInvalidConfig

	// Wire
	ErrorDecode
	ErrorSerialization

	// Server replied status "error"
	ErrorProtocol

	// Application
	ErrorHandler
	ErrorNoSelection
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorConnection:
		return "connection_error"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorDecode:
		return "decode_error"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorProtocol:
		return "protocol_error"
	case ErrorHandler:
		return "handler_error"
	case ErrorNoSelection:
		return "no_selection"
	case ErrorUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("unknown_code_%d", int(e))
	}
}

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is matches two ChatErrors by code.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{Code: code, Message: message}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Wrapped: err}
}

// ProtocolError builds the error for a reply carrying status "error". It is
// handed to whichever handler owns the event key; the core itself does not
// act on it.
func ProtocolError(ev Event) *ChatError {
	msg := ev.Message
	if msg == "" {
		msg = "server rejected " + ev.Key
	}
	return &ChatError{Code: ErrorProtocol, Message: msg}
}

// IsConnectionError reports whether err is a transport-level fault.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorConnection
}
