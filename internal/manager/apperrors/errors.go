// Package apperrors maps pipeline failures to stable public error kinds.
package apperrors

import (
	"context"
	"errors"
	"net/http"

	"github.com/code-sleuth/ike-tube/internal/manager/embedders"
	"github.com/code-sleuth/ike-tube/internal/manager/generators"
	"github.com/code-sleuth/ike-tube/internal/manager/idempotency"
	"github.com/code-sleuth/ike-tube/internal/manager/importers"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/internal/manager/services"
)

// Kind is a category of failure exposed to API callers.
type Kind string

const (
	KindInput                  Kind = "input"
	KindNotFound               Kind = "not_found"
	KindContentUnavailable     Kind = "content_unavailable"
	KindTransientProviderError Kind = "transient_provider"
	KindRateLimited            Kind = "rate_limited"
	KindConflict               Kind = "conflict"
	KindInternal               Kind = "internal"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// Error is a classified failure carrying its public code and message.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// HTTPStatus returns the status code for the error kind.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// Code returns the stable machine-readable code of the kind.
func (k Kind) Code() string {
	switch k {
	case KindInput:
		return "INVALID_INPUT"
	case KindNotFound:
		return "CHANNEL_NOT_FOUND"
	case KindContentUnavailable:
		return "NO_TRANSCRIPTS"
	case KindTransientProviderError:
		return "PROVIDER_UNAVAILABLE"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindConflict:
		return "INGESTION_IN_PROGRESS"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus returns the status code responses of this kind are sent with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindContentUnavailable:
		return http.StatusUnprocessableEntity
	case KindTransientProviderError:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the public message of the kind. Provider details never leak
// through it.
func (k Kind) Message() string {
	switch k {
	case KindInput:
		return "The request is invalid."
	case KindNotFound:
		return "The channel could not be found."
	case KindContentUnavailable:
		return "The channel has no videos with transcripts."
	case KindTransientProviderError:
		return "An upstream provider is unavailable. Please try again shortly."
	case KindRateLimited:
		return "Too many requests. Please slow down."
	case KindConflict:
		return "This channel is already being ingested."
	default:
		return "An internal error occurred."
	}
}

// New returns an error of kind with a custom public message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = kind.Message()
	}
	return &Error{Kind: kind, Code: kind.Code(), Message: message}
}

// Wrap returns err classified as kind, keeping err for logging.
func Wrap(err error, kind Kind) *Error {
	return &Error{Kind: kind, Code: kind.Code(), Message: kind.Message(), err: err}
}

// Classify maps err to a Kind. Errors that are already classified keep their kind.
func Classify(err error) Kind {
	var classified *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &classified):
		return classified.Kind
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, services.ErrIngestionInProgress):
		return KindConflict
	case errors.Is(err, services.ErrNoTranscriptsAvailable):
		return KindContentUnavailable
	case errors.Is(err, importers.ErrChannelNotFound):
		return KindNotFound
	case errors.Is(err, services.ErrEmptyQuestion),
		errors.Is(err, services.ErrEmptyReference),
		errors.Is(err, importers.ErrEmptyReference),
		errors.Is(err, idempotency.ErrEmptyKey):
		return KindInput
	case errors.Is(err, context.Canceled):
		return KindInternal
	case retry.IsTransient(err),
		errors.Is(err, embedders.ErrEmbeddingProvider),
		errors.Is(err, generators.ErrEmptyCompletion):
		return KindTransientProviderError
	default:
		return KindInternal
	}
}

// From returns err as a classified *Error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return Wrap(err, Classify(err))
}
