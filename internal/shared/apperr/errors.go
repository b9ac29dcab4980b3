// Package apperr defines the error taxonomy shared by the analysis pipeline.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeLLMTimeout        = "LLM_TIMEOUT"
	CodeLLMSizeLimit      = "LLM_SIZE_LIMIT"
	CodeLLMUnavailable    = "LLM_UNAVAILABLE"
	CodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	CodeStorage           = "STORAGE_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// ValidationError reports input rejected before any external call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ExternalServiceError wraps a failed call to the generation service.
type ExternalServiceError struct {
	Op        string
	Code      string
	Retryable bool
	Err       error
}

func (e *ExternalServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: external service failure (%s)", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// External classifies err into an *ExternalServiceError for op.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *ExternalServiceError
	if errors.As(err, &existing) {
		return err
	}
	code, retryable := classify(err)
	return &ExternalServiceError{Op: op, Code: code, Retryable: retryable, Err: err}
}

// SizeLimit marks err as a document size rejection.
func SizeLimit(op string, err error) error {
	return &ExternalServiceError{Op: op, Code: CodeLLMSizeLimit, Err: err}
}

// DataCorruptionError reports generation output that could not be parsed.
type DataCorruptionError struct {
	Length int
	Prefix string
	Suffix string
	Err    error
}

func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("unparseable generation output (len=%d prefix=%q suffix=%q): %v", e.Length, e.Prefix, e.Suffix, e.Err)
}

func (e *DataCorruptionError) Unwrap() error { return e.Err }

// Code maps any error to its stable error code.
func Code(err error) string {
	var v *ValidationError
	var ext *ExternalServiceError
	var dc *DataCorruptionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &v):
		return CodeValidation
	case errors.As(err, &ext):
		return ext.Code
	case errors.As(err, &dc):
		return CodeLLMSchemaMismatch
	default:
		return CodeInternal
	}
}

func classify(err error) (string, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeLLMTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeLLMTimeout, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return CodeLLMTimeout, true
	}
	if strings.Contains(msg, "http status 429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") {
		return CodeLLMUnavailable, true
	}
	if strings.Contains(msg, "http status 5") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof") {
		return CodeLLMUnavailable, true
	}
	return CodeLLMUnavailable, false
}

// Sanitize flattens an error message for logs and persisted fields.
func Sanitize(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

const excerptRunes = 64

// Corrupted builds a *DataCorruptionError carrying a bounded excerpt of raw.
func Corrupted(raw string, err error) *DataCorruptionError {
	runes := []rune(raw)
	prefix, suffix := runes, []rune(nil)
	if len(runes) > excerptRunes {
		prefix = runes[:excerptRunes]
		suffix = runes[len(runes)-excerptRunes:]
	}
	return &DataCorruptionError{
		Length: len(raw),
		Prefix: string(prefix),
		Suffix: string(suffix),
		Err:    err,
	}
}
