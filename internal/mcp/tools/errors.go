package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/xemway/xemway-files/pkg/client"
	"github.com/xemway/xemway-files/pkg/cursor"
	"github.com/xemway/xemway-files/pkg/download"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeAuthFailed   = "AUTH_FAILED"
	ErrCodeXemwayError  = "XEMWAY_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeOutOfRange   = "OUT_OF_RANGE"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapXemwayError converts an error from the client, cursor or download
// layers into a coded error.
func WrapXemwayError(err error) error {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}

	coded = classify(err)
	slog.Warn("xemway API error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)
	return coded
}

func classify(err error) *CodedError {
	var (
		authErr  *client.AuthError
		rangeErr *cursor.IndexOutOfRangeError
		dlErr    *download.DownloadError
		netErr   net.Error
	)

	switch {
	case errors.As(err, &authErr):
		return &CodedError{Code: ErrCodeAuthFailed, Message: "authorization denied", Cause: err}
	case errors.Is(err, client.ErrCredentialClosed):
		return &CodedError{Code: ErrCodeAuthFailed, Message: "credential is no longer valid", Cause: err}
	case errors.As(err, &rangeErr):
		return &CodedError{Code: ErrCodeOutOfRange, Message: rangeErr.Error(), Cause: err}
	case errors.Is(err, download.ErrInvalidOptions):
		return &CodedError{Code: ErrCodeInvalidInput, Message: err.Error(), Cause: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &CodedError{Code: ErrCodeTimeout, Message: "request timed out", Cause: err}
	}

	status := client.StatusCode(err)
	if status == 0 && errors.As(err, &dlErr) {
		status = dlErr.StatusCode
	}
	if status == http.StatusNotFound {
		return &CodedError{Code: ErrCodeNotFound, Message: "not found", Cause: err}
	}
	return &CodedError{Code: ErrCodeXemwayError, Message: err.Error(), Cause: err}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}

// ErrOutOfRange creates an out of range error.
func ErrOutOfRange(message string) error {
	return &CodedError{
		Code:    ErrCodeOutOfRange,
		Message: message,
	}
}
