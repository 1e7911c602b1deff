package types

import (
	"errors"
	"net/http"

	appErr "github.com/formr/engine/pkg/errors"
)

const internalMessage = "internal server error"

// FromAppError converts err into the wire error. Messages of internal and
// unclassified failures are replaced with a generic one.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if !errors.As(err, &e) {
		return &APIError{Code: string(appErr.CodeUnknown), Message: internalMessage}
	}
	if HTTPStatus(e.Code) >= http.StatusInternalServerError && e.Code != appErr.CodeNotImplemented {
		return &APIError{Code: string(e.Code), Message: internalMessage}
	}
	return &APIError{Code: string(e.Code), Message: e.Message, Fields: e.Fields}
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code appErr.Code) int {
	switch code {
	case appErr.CodeInvalid, appErr.CodeUnsupported:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict:
		return http.StatusConflict
	case appErr.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case appErr.CodeNotImplemented:
		return http.StatusNotImplemented
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	case appErr.CodeDeadline:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf returns the response status for err.
func StatusOf(err error) int {
	return HTTPStatus(appErr.CodeOf(err))
}
