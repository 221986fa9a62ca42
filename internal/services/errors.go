package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
	ErrCancelled       = errors.New("cancelled")
)

// Severity is the reprocess error taxonomy: how far a failure propagates.
type Severity string

const (
	// SeverityFatal aborts the run; no further segments are processed.
	SeverityFatal Severity = "fatal"
	// SeveritySegment skips the current segment and continues the run.
	SeveritySegment Severity = "segment"
	// SeverityBestEffort is logged and otherwise ignored.
	SeverityBestEffort Severity = "best_effort"
)

// ErrorKind is a stable string label for a marker, used in structured logs.
type ErrorKind string

const (
	KindExternal      ErrorKind = "external"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindTransient     ErrorKind = "transient"
	KindCancelled     ErrorKind = "cancelled"
	KindUnknown       ErrorKind = "unknown"
)

// ServiceError carries the stage/operation context of a failure alongside
// the marker used for classification.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WithHint attaches an operator hint to a wrapped error. Non-service errors
// are wrapped as transient first.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		clone := *svcErr
		clone.Hint = strings.TrimSpace(hint)
		return &clone
	}
	return &ServiceError{Marker: ErrTransient, Message: err.Error(), Hint: strings.TrimSpace(hint), Cause: err}
}

// ErrorDetails is the flattened view of an error used for logging and
// user-facing notifications.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts the structured context of err.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: kindOf(err), Message: err.Error()}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		details.Hint = svcErr.Hint
		details.Cause = svcErr.Cause
		if svcErr.Message != "" {
			details.Message = svcErr.Message
			if svcErr.Cause != nil {
				details.Message = fmt.Sprintf("%s: %v", svcErr.Message, svcErr.Cause)
			}
		}
	}
	return details
}

// Classify maps an error to the reprocess severity. Only cancellation is
// fatal; any other failure of a transcription or analysis call costs the
// current segment alone.
func Classify(err error) Severity {
	switch {
	case err == nil:
		return SeverityBestEffort
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return SeverityFatal
	default:
		return SeveritySegment
	}
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrExternalService):
		return KindExternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
