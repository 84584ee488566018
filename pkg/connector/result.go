// Package connector holds the pieces shared by the Vtiger and Mautic REST
// clients: the opaque record type, the failure taxonomy every operation
// reports through, the authenticated HTTP gateway, and the token sources.
package connector

import (
	"errors"
	"fmt"
)

// Record is a contact record exactly as the remote system returned it. The
// connectors impose no schema on it; helpers that need a particular field
// (email, id, score) must tolerate its absence.
type Record map[string]any

// Kind classifies a connector failure so callers can branch on it.
type Kind string

const (
	// KindTransport covers connection and timeout failures: the service was
	// never reached.
	KindTransport Kind = "transport"
	// KindHTTP covers reachable non-2xx responses without a structured
	// remote error body.
	KindHTTP Kind = "http"
	// KindAPI covers logical failures the remote encodes inside a response
	// body (Vtiger success:false, Mautic errors[]).
	KindAPI Kind = "api"
	// KindNotFound is synthesized by the connectors when a lookup matches
	// zero records.
	KindNotFound Kind = "not_found"
	// KindValidation covers input the remote (or the connector itself)
	// rejected, distinct from the service being unreachable.
	KindValidation Kind = "validation"
	// KindConfig covers unusable credentials or configuration.
	KindConfig Kind = "config"
)

// Error is the single failure value the connectors return. It is always
// returned as data, never panicked across the connector boundary, and carries
// enough detail to surface verbatim to an operator.
type Error struct {
	Kind       Kind
	Message    string
	Code       string
	HTTPStatus int
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.HTTPStatus > 0:
		return fmt.Sprintf("%s (%s, http %d)", e.Message, e.Code, e.HTTPStatus)
	case e.Code != "":
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	case e.HTTPStatus > 0:
		return fmt.Sprintf("%s (http %d)", e.Message, e.HTTPStatus)
	default:
		return e.Message
	}
}

func Transportf(format string, args ...any) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf(format, args...)}
}

func HTTPStatusf(status int, format string, args ...any) *Error {
	return &Error{Kind: KindHTTP, HTTPStatus: status, Message: fmt.Sprintf(format, args...)}
}

func APIError(code, message string, status int) *Error {
	return &Error{Kind: KindAPI, Code: code, Message: message, HTTPStatus: status}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Configf(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err into a *Error, or wraps it as a transport failure when
// an underlying layer produced a plain error.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return Transportf("%v", err)
}

func IsNotFound(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindNotFound
}

func IsValidation(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindValidation
}

// Tool-facing status discriminator values. The agent tool layer depends on
// exactly these strings; do not change them.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Status maps an operation outcome onto the status discriminator the tool
// layer exposes to the agents.
func Status(err error) string {
	if err == nil {
		return StatusSuccess
	}
	if IsNotFound(err) {
		return StatusNotFound
	}
	return StatusError
}
