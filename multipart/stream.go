package multipart

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/mirainet/spider/internal/bufpool"
)

type streamState int

const (
	stateSeekingBoundary streamState = iota
	stateReadingHeaders
	stateReadingBody
	stateDone
)

// StreamResult is the outcome of a streaming multipart parse: text fields
// held in memory, files spilled to temp storage.
type StreamResult struct {
	Values map[string]string
	Files  []*StreamingFileUpload
}

// ParseStream drives the streaming state machine described in §4.4:
// SeekingBoundary -> ReadingHeaders -> ReadingBody -> (ReadingHeaders |
// Done). Text fields are accumulated in memory; file parts are spilled to
// a temp file and surfaced as a StreamingFileUpload whose reader opens
// that file on demand — the caller owns eventual deletion via
// StreamingFileUpload.Remove, typically from a defer at request scope.
func ParseStream(r io.Reader, boundary string, cfg *Config) (result *StreamResult, err error) {
	br := bufio.NewReaderSize(r, 64*1024)
	delim := []byte("--" + boundary)
	delimEnd := []byte("--" + boundary + "--")

	state := stateSeekingBoundary
	result = &StreamResult{Values: make(map[string]string)}

	var totalRead int64
	var currentName, currentFilename, currentContentType string
	headerBuf := bufpool.Get()
	textBuf := bufpool.Get()
	var fileWriter *os.File
	var fileSize int64
	var pending []byte
	fileCount := 0

	// cleanup removes any temp file left open by an aborted parse, so a
	// parse error never leaks a file descriptor or an orphaned temp file,
	// and returns the pooled header/text buffers.
	defer func() {
		if fileWriter != nil {
			path := fileWriter.Name()
			fileWriter.Close()
			os.Remove(path)
		}
		bufpool.Put(headerBuf)
		bufpool.Put(textBuf)
	}()

	writeBody := func(p []byte) error {
		if len(p) == 0 {
			return nil
		}
		if currentFilename != "" {
			fileSize += int64(len(p))
			if cfg.MaxFileSize > 0 && fileSize > cfg.MaxFileSize {
				return ErrFileTooLarge
			}
			_, werr := fileWriter.Write(p)
			return werr
		}
		textBuf.Write(p)
		return nil
	}

	finishPart := func(isTerminator bool) error {
		if currentFilename != "" {
			path := fileWriter.Name()
			if cerr := fileWriter.Close(); cerr != nil {
				return cerr
			}
			result.Files = append(result.Files, &StreamingFileUpload{
				FieldName:   currentName,
				Filename:    currentFilename,
				ContentType: currentContentType,
				Size:        fileSize,
				tempPath:    path,
				open: func() (io.ReadCloser, error) {
					return os.Open(path)
				},
			})
			fileWriter = nil
			fileSize = 0
		} else {
			if _, exists := result.Values[currentName]; !exists {
				result.Values[currentName] = textBuf.String()
			}
		}
		if isTerminator {
			state = stateDone
		} else {
			state = stateReadingHeaders
			headerBuf.Reset()
		}
		return nil
	}

	for state != stateDone {
		line, rerr, ferr := readStreamLine(br, cfg, &totalRead)
		if ferr != nil {
			return nil, ferr
		}
		if len(line) == 0 && rerr != nil {
			return nil, ErrMalformedPart
		}
		trimmed := bytes.TrimRight(line, "\r\n")

		switch state {
		case stateSeekingBoundary:
			if bytes.Equal(trimmed, delim) {
				state = stateReadingHeaders
				headerBuf.Reset()
			}
			// bytes before the first boundary are preamble and discarded.

		case stateReadingHeaders:
			if len(trimmed) == 0 {
				h, perr := parsePartHeaders(headerBuf.Bytes())
				if perr != nil {
					return nil, perr
				}
				cd := h.Get("Content-Disposition")
				if cd == "" {
					return nil, ErrMissingDisposition
				}
				d, derr := parseDisposition(cd)
				if derr != nil {
					return nil, derr
				}
				currentName = d.name
				currentFilename = d.filename
				currentContentType = h.Get("Content-Type")
				textBuf.Reset()
				pending = nil

				if currentFilename != "" {
					if cfg.MaxFileCount > 0 && fileCount >= cfg.MaxFileCount {
						return nil, ErrTooManyFiles
					}
					if currentContentType != "" && !cfg.contentTypeAllowed(currentContentType) {
						return nil, ErrDisallowedContentType
					}
					f, ferr := os.CreateTemp("", "spider-upload-*")
					if ferr != nil {
						return nil, ferr
					}
					fileWriter = f
					fileCount++
				}
				state = stateReadingBody
				continue
			}
			headerBuf.Write(line)

		case stateReadingBody:
			isBoundary := bytes.Equal(trimmed, delim) || bytes.Equal(trimmed, delimEnd)
			if isBoundary {
				if pending != nil {
					p := bytes.TrimSuffix(pending, []byte("\r\n"))
					p = bytes.TrimSuffix(p, []byte("\n"))
					if werr := writeBody(p); werr != nil {
						return nil, werr
					}
				}
				pending = nil
				if ferr := finishPart(bytes.Equal(trimmed, delimEnd)); ferr != nil {
					return nil, ferr
				}
				continue
			}
			if pending != nil {
				if werr := writeBody(pending); werr != nil {
					return nil, werr
				}
			}
			pending = append([]byte(nil), line...)
		}

		if rerr != nil && state != stateDone {
			return nil, ErrMalformedPart
		}
	}

	return result, nil
}

// readStreamLine reads one '\n'-terminated line, transparently absorbing
// bufio.ErrBufferFull the same way http1.readLimitedLine does: a file part's
// body routinely runs longer than the reader's internal buffer between
// boundary lines, and that is a normal multi-fill read, not a malformed
// part. totalRead is advanced on every chunk, including ones that don't yet
// complete a line, so MaxMultipartSize still bounds an unterminated line.
func readStreamLine(br *bufio.Reader, cfg *Config, totalRead *int64) (line []byte, rerr error, fatal error) {
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		*totalRead += int64(len(chunk))
		if cfg.MaxMultipartSize > 0 && *totalRead > cfg.MaxMultipartSize {
			return nil, nil, ErrBodyTooLarge
		}
		if err != bufio.ErrBufferFull {
			return line, err, nil
		}
	}
}

// removeTemp deletes a streaming upload's spilled temp file.
func removeTemp(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
