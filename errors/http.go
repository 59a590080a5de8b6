package errors

import (
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

// HTTPStatus maps an error to the status code returned by the HTTP surface.
// NotFound is checked before Authorization: a failed conditional update is both.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrVerifierUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-checkable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrVerifierUnavailable):
		return "verifier_unavailable"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrAuthentication):
		return "invalid_credential"
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrEmptyText):
		return "empty_message"
	case errors.Is(err, ErrInvalidImageFormat):
		return "invalid_image_format"
	case errors.Is(err, ErrImageTooLarge):
		return "image_too_large"
	case errors.Is(err, ErrUnsupportedImageType):
		return "unsupported_image_type"
	case errors.Is(err, ErrImageContentMismatch):
		return "image_content_mismatch"
	case errors.Is(err, ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, ErrValidation):
		return "invalid_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthorization):
		return "forbidden"
	default:
		return "internal"
	}
}

// PublicMessage is the human readable text sent to clients for err.
// Internal failures never leak their cause.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range []error{ErrVerifierUnavailable, ErrAuthentication, ErrValidation, ErrNotFound, ErrAuthorization} {
		if !errors.Is(err, kind) {
			continue
		}
		text := strings.TrimPrefix(err.Error(), kind.Error()+": ")
		r, size := utf8.DecodeRuneInString(text)
		return string(unicode.ToUpper(r)) + text[size:]
	}
	return "Internal server error"
}
