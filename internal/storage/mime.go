package storage

import (
	"mime"
	"strings"
)

var extensions = map[string]string{
	"application/pdf":    "pdf",
	"text/plain":         "txt",
	"text/markdown":      "md",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.oasis.opendocument.text":                                 "odt",
	"application/vnd.recordare.musicxml+xml":                                  "musicxml",
	"application/vnd.recordare.musicxml":                                      "mxl",
	"audio/midi":   "mid",
	"image/png":    "png",
	"image/jpeg":   "jpg",
	"audio/mpeg":   "mp3",
	"audio/mp3":    "mp3",
	"audio/wav":    "wav",
	"audio/x-wav":  "wav",
	"audio/ogg":    "ogg",
	"audio/flac":   "flac",
	"audio/aac":    "aac",
	"audio/mp4":    "m4a",
	"audio/x-m4a":  "m4a",
	"audio/webm":   "weba",
}

// Extension returns the file extension, without dot, for a MIME type.
// The empty string means no extension is known.
func Extension(mimeType string) string {
	media, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		media = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if ext, ok := extensions[media]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(media); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return ""
}

// WithExtension appends the extension for mimeType to base, if any.
func WithExtension(base, mimeType string) string {
	if ext := Extension(mimeType); ext != "" {
		return base + "." + ext
	}
	return base
}
