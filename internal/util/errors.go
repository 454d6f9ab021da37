package util

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrNotFound          = errors.New("document not found")
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
)
