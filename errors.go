package tyrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeInvalidArgument      ErrorCode = "invalid_argument"
	CodeUnauthenticated      ErrorCode = "unauthenticated"
	CodePermissionDenied     ErrorCode = "permission_denied"
	CodeNotFound             ErrorCode = "not_found"
	CodeMethodNotAllowed     ErrorCode = "method_not_allowed"
	CodeConflict             ErrorCode = "conflict"
	CodeGone                 ErrorCode = "gone"
	CodePayloadTooLarge      ErrorCode = "payload_too_large"
	CodeUnsupportedMediaType ErrorCode = "unsupported_media_type"
	CodeResourceExhausted    ErrorCode = "resource_exhausted"
	CodeCanceled             ErrorCode = "canceled"
	CodeInternal             ErrorCode = "internal"
	CodeNotImplemented       ErrorCode = "not_implemented"
	CodeUnavailable          ErrorCode = "unavailable"
	CodeDeadlineExceeded     ErrorCode = "deadline_exceeded"
)

// MalformedPayloadMessage is the plain-text body of the 400 response sent when a
// request body cannot be decoded. The decode error itself is only logged.
const MalformedPayloadMessage = "bad request body, see logs"

// Error is the JSON error envelope written for requests the router rejects
// and for handler errors.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new error envelope.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new error envelope with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail returns a copy of e with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	return e.WithDetails(map[string]any{key: value})
}

// WithDetails returns a copy of e with details merged in.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)
	return &Error{Code: e.Code, Message: e.Message, Details: merged}
}

// ErrorTransformer maps a handler error to an envelope. Returning nil falls
// back to DefaultErrorTransformer.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps standard errors to envelopes. Validation
// errors from payload validation become invalid_argument with one detail per
// failed field.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	var env *Error
	if errors.As(err, &env) {
		return env
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CodeDeadlineExceeded, "request timeout")
	case errors.Is(err, context.Canceled):
		return NewError(CodeCanceled, "context canceled")
	case errors.Is(err, ErrNoRoute):
		return NewError(CodeNotFound, "route not found")
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any, len(valErrs))
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	// errors.Join: the first error decides the code, all messages are kept.
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := u.Unwrap(); len(errs) > 0 {
			first := DefaultErrorTransformer(errs[0])
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return &Error{
				Code:    first.Code,
				Message: strings.Join(msgs, "; "),
				Details: first.Details,
			}
		}
	}

	return NewError(CodeInternal, err.Error())
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeConflict:
		return http.StatusConflict
	case CodeGone:
		return http.StatusGone
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx)
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "len":
		return fmt.Sprintf("must have length %s", ve.Param())
	case "eq":
		return fmt.Sprintf("must equal %s", ve.Param())
	case "ne":
		return fmt.Sprintf("must not equal %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// errMalformedPayload marks a body that could not be read or decoded. It is
// answered with MalformedPayloadMessage as plain text, not an envelope.
var errMalformedPayload = NewError(CodeInvalidArgument, MalformedPayloadMessage)

// writeMalformedPayload answers a malformed body with a 400 and the fixed
// diagnostic text.
func writeMalformedPayload(resp ResponseDelegate) error {
	if err := resp.SetStatus(http.StatusBadRequest); err != nil {
		return err
	}
	if err := resp.SetHeader("Content-Type", "text/plain; charset=utf-8"); err != nil {
		return err
	}
	if err := resp.WritePayload([]byte(MalformedPayloadMessage)); err != nil {
		return err
	}
	return resp.Complete()
}

// writeError writes env through resp and completes it. Extra headers, such
// as Allow, are set before the body.
func writeError(resp ResponseDelegate, env *Error, logger *slog.Logger, headers ...Header) error {
	body, err := json.Marshal(env)
	if err != nil {
		logger.Error("failed to encode error response",
			slog.String("code", string(env.Code)),
			slog.String("message", env.Message),
			slog.Any("error", err))
		body = []byte(`{"code":"internal","message":"internal server error"}`)
	}
	body = append(body, '\n')

	if err := resp.SetStatus(env.Code.HTTPStatus()); err != nil {
		return err
	}
	if err := resp.SetHeader("Content-Type", "application/json"); err != nil {
		return err
	}
	for _, h := range headers {
		if err := resp.SetHeader(h.Name, h.Values...); err != nil {
			return err
		}
	}
	if err := resp.WritePayload(body); err != nil {
		return err
	}
	return resp.Complete()
}

// Header is a response header and its values.
type Header struct {
	Name   string
	Values []string
}
