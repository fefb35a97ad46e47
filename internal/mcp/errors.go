package mcp

import (
	"errors"
	"strings"
)

var (
	ErrElicitationCancelled        = errors.New("elicitation cancelled")
	ErrElicitationValidationFailed = errors.New("elicitation validation failed")
	ErrSignature                   = errors.New("signature generation failed")
)

// ElicitationValidationError carries every violation found in an elicitation reply.
type ElicitationValidationError struct {
	Violations []string
}

func (e *ElicitationValidationError) Error() string {
	return "elicitation validation failed: " + strings.Join(e.Violations, "; ")
}

func (e *ElicitationValidationError) Unwrap() error { return ErrElicitationValidationFailed }

// ExecutionError describes a failed outbound call. Request holds the masked
// request echo and Payload the response body, both already redacted.
type ExecutionError struct {
	Status  int
	Message string
	Payload string
	Request map[string]any
}

func (e *ExecutionError) Error() string {
	return e.Message
}
