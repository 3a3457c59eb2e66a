package multipart

import (
	"io"
	"mime"
	"strings"

	"github.com/mirainet/spider/http1"
)

// Config bounds a multipart parse per §4.4. Zero values disable the
// corresponding limit, except MaxFileCount where 0 disables it too (no
// default cap applies unless set explicitly).
type Config struct {
	MaxMultipartSize    int64
	MaxFileSize         int64
	MaxFileCount         int
	AllowedContentTypes []string // empty means "allow all"
}

// DefaultConfig mirrors http1's default posture: generous but bounded.
func DefaultConfig() *Config {
	return &Config{
		MaxMultipartSize: 32 << 20, // 32MiB
		MaxFileSize:      16 << 20, // 16MiB
		MaxFileCount:     16,
	}
}

func (c *Config) contentTypeAllowed(contentType string) bool {
	if len(c.AllowedContentTypes) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	for _, allowed := range c.AllowedContentTypes {
		if strings.EqualFold(allowed, mediaType) {
			return true
		}
	}
	return false
}

// FileUpload is a fully-buffered file part produced by Parse.
type FileUpload struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
}

// StreamingFileUpload is a file part produced by the streaming parser: its
// body was spilled to a temp file rather than held in memory. The caller
// owns temp-file deletion (Remove), typically via a defer at request scope.
type StreamingFileUpload struct {
	FieldName   string
	Filename    string
	ContentType string
	Size        int64

	tempPath string
	open     func() (io.ReadCloser, error)
}

// Open returns a fresh reader over the spilled temp file.
func (f *StreamingFileUpload) Open() (io.ReadCloser, error) {
	return f.open()
}

// Remove deletes the backing temp file. Safe to call more than once.
func (f *StreamingFileUpload) Remove() error {
	return removeTemp(f.tempPath)
}

// MultipartData is the result of a buffered parse: text fields (first value
// per name wins when duplicated, matching form semantics elsewhere in this
// project) plus all file parts in encounter order.
type MultipartData struct {
	Values map[string]string
	Files  []*FileUpload
}

// partHeader is the case-insensitive header mapping parsed for one part
// (§4.4 step 2). It reuses http1.Header rather than inventing a second
// case-insensitive container, so a part's headers behave identically to a
// request's.
type partHeader = http1.Header
