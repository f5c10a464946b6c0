package backend

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to backend errors.
const (
	TextCodeUnavailable  = "BACKEND_UNAVAILABLE"
	TextCodeRejected     = "BACKEND_REJECTED"
	TextCodeBadInput     = "BACKEND_BAD_INPUT"
	TextCodeUnauthorized = "BACKEND_UNAUTHORIZED"
	TextCodeForbidden    = "BACKEND_FORBIDDEN"
	TextCodeNotFound     = "BACKEND_NOT_FOUND"
	TextCodeConflict     = "BACKEND_CONFLICT"
	TextCodeRateLimited  = "BACKEND_RATE_LIMITED"
	TextCodeInternal     = "BACKEND_INTERNAL"
)

func backendError(message string, category goerrors.Category, code int, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func backendWrapError(source error, category goerrors.Category, message string, code int, metadata map[string]any) error {
	if source == nil {
		return backendError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// rejection builds the error for a 2xx response carrying success=false.
func rejection(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusOK).
		WithTextCode(TextCodeRejected)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func textCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return TextCodeBadInput
	case goerrors.CategoryAuth:
		return TextCodeUnauthorized
	case goerrors.CategoryAuthz:
		return TextCodeForbidden
	case goerrors.CategoryNotFound:
		return TextCodeNotFound
	case goerrors.CategoryConflict:
		return TextCodeConflict
	case goerrors.CategoryRateLimit:
		return TextCodeRateLimited
	case goerrors.CategoryExternal:
		return TextCodeUnavailable
	default:
		return TextCodeInternal
	}
}

func statusCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return goerrors.CategoryValidation
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 500:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryBadInput
	}
}

// Classify returns the category and backend message of err. Errors that did not come from this
// package are treated as external failures when they are context errors, internal otherwise.
func Classify(err error) (goerrors.Category, string) {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category, rich.Message
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return goerrors.CategoryExternal, ""
	}
	return goerrors.CategoryInternal, ""
}
