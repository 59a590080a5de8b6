package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Nil", nil, http.StatusOK},
		{"Verifier unavailable", ErrVerifierUnavailable, http.StatusServiceUnavailable},
		{"Missing credential", ErrMissingCredential, http.StatusUnauthorized},
		{"Invalid credential", fmt.Errorf("%w: expired", ErrInvalidCredential), http.StatusUnauthorized},
		{"Empty text", ErrEmptyText, http.StatusBadRequest},
		{"Image too large", fmt.Errorf("%w (max 5MB)", ErrImageTooLarge), http.StatusBadRequest},
		{"Unavailable message", ErrMessageUnavailable, http.StatusNotFound},
		{"Authorization", ErrAuthorization, http.StatusForbidden},
		{"Store", fmt.Errorf("%w: disk full", ErrStore), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestCode(t *testing.T) {
	req := require.New(t)
	req.Equal("missing_credential", Code(ErrMissingCredential))
	req.Equal("invalid_credential", Code(ErrInvalidCredential))
	req.Equal("image_too_large", Code(fmt.Errorf("%w (max 5MB)", ErrImageTooLarge)))
	req.Equal("invalid_request", Code(ErrInvalidPayload))
	req.Equal("not_found", Code(ErrMessageUnavailable))
	req.Equal("internal", Code(ErrStore))
}

func TestPublicMessage(t *testing.T) {
	req := require.New(t)
	req.Equal("Image too large (max 5MB)", PublicMessage(fmt.Errorf("%w (max 5MB)", ErrImageTooLarge)))
	req.Equal("Invalid image type", PublicMessage(ErrUnsupportedImageType))
	req.Equal("Invalid image data format", PublicMessage(ErrInvalidImageFormat))
	req.Equal("Message not found or you cannot modify this message", PublicMessage(ErrMessageUnavailable))
	req.Equal("Identity verifier unavailable", PublicMessage(ErrVerifierUnavailable))
	req.Equal("Internal server error", PublicMessage(fmt.Errorf("%w: secret detail", ErrStore)))
	req.Empty(PublicMessage(nil))
}
