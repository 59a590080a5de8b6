// Package mimetypes enumerates the image content types accepted on messages.
package mimetypes

import (
	"mime"
	"strings"
)

type MIME string

const (
	Unknown   MIME = "unknown"
	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"

	// imageJPG is not registered but browsers and the legacy client send it.
	imageJPG MIME = "image/jpg"
)

var allowedImages = map[MIME]MIME{
	ImagePNG:  ImagePNG,
	ImageJPEG: ImageJPEG,
	imageJPG:  ImageJPEG,
	ImageGIF:  ImageGIF,
	ImageWEBP: ImageWEBP,
}

// AllowedImage resolves a declared type to its canonical allowed image type.
func AllowedImage(declared string) (MIME, bool) {
	canonical, ok := allowedImages[MIME(strings.ToLower(strings.TrimSpace(declared)))]
	if !ok {
		return Unknown, false
	}
	return canonical, true
}

// Matches reports whether a detected media type (parameters allowed) is the expected one.
func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	if canonical, ok := AllowedImage(mt); ok {
		return canonical, canonical == expected
	}
	return MIME(mt), mt == string(expected)
}

// Extension is the file extension used for default attachment names.
func (m MIME) Extension() string {
	_, sub, found := strings.Cut(string(m), "/")
	if !found || sub == "" {
		return "bin"
	}
	return sub
}
