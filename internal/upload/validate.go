package upload

import (
	"errors"
	"mime/multipart"
	"strings"
)

var (
	ErrMissingFile         = errors.New("no file uploaded")
	ErrDisallowedExtension = errors.New("file extension not allowed")
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// Extension returns the lowercased text after the last dot.
func Extension(filename string) (string, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "", false
	}
	return strings.ToLower(filename[idx+1:]), true
}

func Allowed(filename string) bool {
	ext, ok := Extension(filename)
	return ok && allowedExtensions[ext]
}

// Validate checks the file part of a form submission. header is nil when the
// form carried no file part.
func Validate(header *multipart.FileHeader) error {
	if header == nil || header.Filename == "" {
		return ErrMissingFile
	}
	if !Allowed(header.Filename) {
		return ErrDisallowedExtension
	}
	return nil
}
