// Package attachment parses and validates inline image payloads sent with messages.
//
// A payload is a self-describing string "<mime>;base64,<data>", optionally prefixed
// with "data:" as produced by browsers' FileReader.readAsDataURL. The payload is never
// re-encoded: the original string is what gets stored and broadcast.
package attachment

import (
	"chatchat/domain/chat"
	"chatchat/domain/mimetypes"
	"chatchat/errors"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const encodingMarker = "base64"

var payloadPattern = regexp.MustCompile(`^(?:data:)?([A-Za-z0-9.+\-]+/[A-Za-z0-9.+\-]+);([A-Za-z0-9\-]+),(.+)$`)

// Decoded is a validated image payload.
type Decoded struct {
	MimeType       mimetypes.MIME
	EncodedPayload string
	RawBytesLength int64
}

// Options tune the validation. MaxBytes can only lower chat.MaxImageBytes, zero means the ceiling.
type Options struct {
	MaxBytes     int64
	SniffContent bool
}

// Decode validates encoded in this order: shape, size, declared type, then optionally content.
// declaredSize is trusted for the size check when positive; otherwise the size is derived
// from the payload length.
func Decode(encoded string, declaredSize int64, opts Options) (Decoded, error) {
	matches := payloadPattern.FindStringSubmatch(encoded)
	if matches == nil || !strings.EqualFold(matches[2], encodingMarker) {
		return Decoded{}, errors.ErrInvalidImageFormat
	}
	declaredType, data := matches[1], matches[3]

	size := declaredSize
	if size <= 0 {
		size = DecodedLen(data)
	}
	maxBytes := opts.maxBytes()
	if size > maxBytes {
		return Decoded{}, fmt.Errorf("%w (max %dMB)", errors.ErrImageTooLarge, maxBytes/(1024*1024))
	}

	mimeType, ok := mimetypes.AllowedImage(declaredType)
	if !ok {
		return Decoded{}, errors.ErrUnsupportedImageType
	}

	if opts.SniffContent {
		if err := sniff(data, mimeType); err != nil {
			return Decoded{}, err
		}
	}

	return Decoded{
		MimeType:       mimeType,
		EncodedPayload: encoded,
		RawBytesLength: size,
	}, nil
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes <= 0 || o.MaxBytes > chat.MaxImageBytes {
		return chat.MaxImageBytes
	}
	return o.MaxBytes
}

// DecodedLen derives the raw byte length of a base64 payload without decoding it.
func DecodedLen(data string) int64 {
	data = strings.TrimSpace(data)
	n := int64(len(data))
	if n == 0 {
		return 0
	}
	padding := int64(0)
	switch {
	case strings.HasSuffix(data, "=="):
		padding = 2
	case strings.HasSuffix(data, "="):
		padding = 1
	}
	return n*3/4 - padding
}

func sniff(data string, declared mimetypes.MIME) error {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(data); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrImageContentMismatch, err)
		}
	}
	detected := mimetype.Detect(raw)
	if _, ok := mimetypes.Matches(detected.String(), declared); !ok {
		return fmt.Errorf("%w: declared %s, detected %s", errors.ErrImageContentMismatch, declared, detected.String())
	}
	return nil
}
