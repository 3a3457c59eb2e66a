// Package multipart implements the multipart/form-data parser (C4): a
// buffered whole-body variant and a streaming state-machine variant, both
// enforcing size and content-type limits.
package multipart

import "errors"

var (
	// ErrNoBoundary is returned when the Content-Type header carries no
	// boundary parameter.
	ErrNoBoundary = errors.New("multipart: no boundary in content type")

	// ErrMalformedPart is returned for a part missing the header/body
	// separator, an unparseable Content-Disposition, or any other
	// structural violation of the part framing.
	ErrMalformedPart = errors.New("multipart: malformed part")

	// ErrMissingDisposition is returned when a part has no
	// Content-Disposition header, which §4.4 requires.
	ErrMissingDisposition = errors.New("multipart: missing content-disposition")

	// ErrBodyTooLarge is returned when the whole decoded body would exceed
	// Config.MaxMultipartSize.
	ErrBodyTooLarge = errors.New("multipart: body too large")

	// ErrFileTooLarge is returned when a single file part exceeds
	// Config.MaxFileSize.
	ErrFileTooLarge = errors.New("multipart: file too large")

	// ErrTooManyFiles is returned when the number of file parts exceeds
	// Config.MaxFileCount.
	ErrTooManyFiles = errors.New("multipart: too many files")

	// ErrDisallowedContentType is returned when a file part's Content-Type
	// is not present in Config.AllowedContentTypes (when that allow-list is
	// non-empty).
	ErrDisallowedContentType = errors.New("multipart: disallowed content type")
)
