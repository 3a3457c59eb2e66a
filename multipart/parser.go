package multipart

import (
	"bytes"
	"mime"

	"github.com/mirainet/spider/http1"
)

// BoundaryFromContentType extracts the boundary parameter from a
// Content-Type header value, e.g. `multipart/form-data; boundary=X`.
func BoundaryFromContentType(contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", ErrNoBoundary
	}
	b, ok := params["boundary"]
	if !ok || b == "" {
		return "", ErrNoBoundary
	}
	return b, nil
}

// Parse fully decodes a multipart/form-data body already held in memory,
// per §4.4: locate parts between boundary markers, parse each part's
// headers and Content-Disposition, classify as a text field or a file, and
// enforce cfg's size/count/content-type limits.
func Parse(body []byte, boundary string, cfg *Config) (*MultipartData, error) {
	if cfg.MaxMultipartSize > 0 && int64(len(body)) > cfg.MaxMultipartSize {
		return nil, ErrBodyTooLarge
	}

	rawParts, err := splitParts(body, boundary)
	if err != nil {
		return nil, err
	}

	data := &MultipartData{Values: make(map[string]string)}
	fileCount := 0
	for _, raw := range rawParts {
		headerBytes, bodyBytes, ok := splitPartHeaderBody(raw)
		if !ok {
			return nil, ErrMalformedPart
		}
		h, err := parsePartHeaders(headerBytes)
		if err != nil {
			return nil, err
		}
		cd := h.Get("Content-Disposition")
		if cd == "" {
			return nil, ErrMissingDisposition
		}
		d, err := parseDisposition(cd)
		if err != nil {
			return nil, err
		}

		if d.filename == "" {
			if _, exists := data.Values[d.name]; !exists {
				data.Values[d.name] = string(bodyBytes)
			}
			continue
		}

		if cfg.MaxFileCount > 0 && fileCount >= cfg.MaxFileCount {
			return nil, ErrTooManyFiles
		}
		if cfg.MaxFileSize > 0 && int64(len(bodyBytes)) > cfg.MaxFileSize {
			return nil, ErrFileTooLarge
		}
		contentType := h.Get("Content-Type")
		if contentType != "" && !cfg.contentTypeAllowed(contentType) {
			return nil, ErrDisallowedContentType
		}
		data.Files = append(data.Files, &FileUpload{
			FieldName:   d.name,
			Filename:    d.filename,
			ContentType: contentType,
			Data:        append([]byte(nil), bodyBytes...),
		})
		fileCount++
	}
	return data, nil
}

// splitParts splits body into the byte ranges between boundary markers per
// §4.4: `--boundary` opens the body, `\r\n--boundary` separates parts, and
// `\r\n--boundary--` terminates it. Preamble before the first marker and
// epilogue after the terminator are discarded.
func splitParts(body []byte, boundary string) ([][]byte, error) {
	delim := []byte("--" + boundary)
	sep := append([]byte("\r\n"), delim...)

	start := bytes.Index(body, delim)
	if start < 0 {
		return nil, ErrMalformedPart
	}
	rest := body[start+len(delim):]

	var parts [][]byte
	for {
		// Terminator check: "--\r\n" or "--" immediately after the marker.
		if bytes.HasPrefix(rest, []byte("--")) {
			break
		}
		// Skip the CRLF after the boundary marker.
		if bytes.HasPrefix(rest, []byte("\r\n")) {
			rest = rest[2:]
		}
		idx := bytes.Index(rest, sep)
		if idx < 0 {
			return nil, ErrMalformedPart
		}
		parts = append(parts, rest[:idx])
		rest = rest[idx+len(sep):]
	}
	return parts, nil
}

// splitPartHeaderBody finds the header/body separator within one part per
// §4.4 step 1: \r\n\r\n, falling back to \n\n for lenient senders.
func splitPartHeaderBody(part []byte) (headerBytes, bodyBytes []byte, ok bool) {
	if idx := bytes.Index(part, []byte("\r\n\r\n")); idx >= 0 {
		return part[:idx], part[idx+4:], true
	}
	if idx := bytes.Index(part, []byte("\n\n")); idx >= 0 {
		return part[:idx], part[idx+2:], true
	}
	return nil, nil, false
}

// parsePartHeaders parses the header block of one part into a
// case-insensitive mapping (§4.4 step 2), reusing http1's line-oriented
// header parsing conventions.
func parsePartHeaders(raw []byte) (*http1.Header, error) {
	h := http1.NewHeader()
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		i := bytes.IndexByte(line, ':')
		if i < 0 {
			return nil, ErrMalformedPart
		}
		name := string(bytes.TrimSpace(line[:i]))
		value := string(bytes.TrimSpace(line[i+1:]))
		if name == "" {
			return nil, ErrMalformedPart
		}
		h.Add(name, value)
	}
	return h, nil
}
