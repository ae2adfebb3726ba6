// Package apperr defines the error taxonomy shared by the orchestrator and
// the HTTP surfaces. Each error carries a Kind that decides the response
// status and whether the caller may retry.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation            Kind = "validation"
	KindNotFound              Kind = "not_found"
	KindBusinessRule          Kind = "business_rule"
	KindExternalService       Kind = "external_service"
	KindCriticalInconsistency Kind = "critical_inconsistency"
	KindInternal              Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func BusinessRule(msg string) error {
	return &Error{Kind: KindBusinessRule, Msg: msg}
}

func ExternalService(msg string, err error) error {
	return &Error{Kind: KindExternalService, Msg: msg, Err: err}
}

func CriticalInconsistency(msg string, err error) error {
	return &Error{Kind: KindCriticalInconsistency, Msg: msg, Err: err}
}

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the text safe to return to a client. Business and
// validation messages are surfaced verbatim; everything else is generic.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindValidation, KindNotFound, KindBusinessRule:
		return e.Msg
	case KindExternalService:
		return "upstream service failure: " + e.Msg
	default:
		return "internal error"
	}
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindBusinessRule:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may repeat the operation.
func Retryable(err error) bool {
	return KindOf(err) == KindExternalService
}
