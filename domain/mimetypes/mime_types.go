// Package mimetypes classifies attachment payloads.
// Attachments are opaque to the relay, the MIME type is only a hint for clients.
package mimetypes

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown     MIME = "unknown"
	TextPlain   MIME = "text/plain"
	OctetStream MIME = "application/octet-stream"

	ApplicationPDF  MIME = "application/pdf"
	ApplicationJSON MIME = "application/json"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"
)

// Sniff detects the MIME type of raw attachment bytes, parameters stripped.
func Sniff(data []byte) MIME {
	if len(data) == 0 {
		return Unknown
	}
	mt, _, err := mime.ParseMediaType(mimetype.Detect(data).String())
	if err != nil {
		return OctetStream
	}
	return MIME(mt)
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

func IsImage(m MIME) bool {
	return strings.HasPrefix(string(m), "image/")
}
