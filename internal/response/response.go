package response

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"staticserver/internal/headers"
	"strconv"
	"time"
)

type StatusCode int

const (
	OK                         StatusCode = 200
	BAD_REQUEST                StatusCode = 400
	NOT_FOUND                  StatusCode = 404
	METHOD_NOT_ALLOWED         StatusCode = 405
	INTERNAL_SERVER_ERROR      StatusCode = 500
	HTTP_VERSION_NOT_SUPPORTED StatusCode = 505
)

var StatusCodeName = map[StatusCode]string{
	OK:                         "OK",
	BAD_REQUEST:                "Bad Request",
	NOT_FOUND:                  "Not Found",
	METHOD_NOT_ALLOWED:         "Method Not Allowed",
	INTERNAL_SERVER_ERROR:      "Internal Server Error",
	HTTP_VERSION_NOT_SUPPORTED: "HTTP Version Not Supported",
}

const (
	httpVersion = "HTTP/1.1"
	dateFormat  = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// now is swapped out by tests that need a fixed Date header.
var now = time.Now

var ErrWriterState = errors.New("response written out of order")

// GetDefaultHeaders returns the headers every response carries.
func GetDefaultHeaders(contentLen int, contentType string) headers.Headers {
	h := headers.NewHeaders()
	h.Set("content-length", strconv.Itoa(contentLen))
	h.Set("content-type", contentType)
	h.Set("connection", "close")
	h.Set("date", now().UTC().Format(dateFormat))
	return h
}

// Response is a complete message waiting to be written.
type Response struct {
	Status  StatusCode
	Headers headers.Headers
	Body    []byte
}

func New(status StatusCode, contentType string, body []byte) *Response {
	return &Response{
		Status:  status,
		Headers: GetDefaultHeaders(len(body), contentType),
		Body:    body,
	}
}

// Empty builds a bodiless response, used for protocol-level errors.
func Empty(status StatusCode) *Response {
	return New(status, "text/plain", nil)
}

// Text builds a text/plain response whose body is the status line text,
// e.g. "404 Not Found".
func Text(status StatusCode) *Response {
	return New(status, "text/plain", []byte(fmt.Sprintf("%d %s", int(status), reasonPhrase(status))))
}

// Gzip compresses the body in place and updates the framing headers.
// Calling it twice is a no-op.
func (r *Response) Gzip() error {
	if r.Headers.Get("content-encoding") == "gzip" {
		return nil
	}
	compressed, err := Compress(r.Body)
	if err != nil {
		return err
	}
	r.Body = compressed
	r.Headers.Set("content-encoding", "gzip")
	r.Headers.Set("content-length", strconv.Itoa(len(compressed)))
	return nil
}

// Compress returns the gzip encoding of data. Empty input still yields a
// valid (non-empty) gzip stream.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Send writes the status line, headers and, when includeBody is set, the
// body. Content-Length is the same either way.
func (r *Response) Send(conn io.Writer, includeBody bool) error {
	w := NewWriter(conn)
	if err := w.WriteStatusLine(r.Status); err != nil {
		return err
	}
	if err := w.WriteHeaders(r.Headers); err != nil {
		return err
	}
	if !includeBody {
		return nil
	}
	_, err := w.WriteBody(r.Body)
	return err
}

// Encode serializes the response into a single byte slice.
func (r *Response) Encode(includeBody bool) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes do not fail.
	_ = r.Send(&buf, includeBody)
	return buf.Bytes()
}

type Writer struct {
	writer       io.Writer
	WriterStatus WriterStatus
}

type WriterStatus int

const (
	WritingStatusLine WriterStatus = iota + 1
	WritingHeaders
	WritingBody
)

var WriterStatusName = map[WriterStatus]string{
	WritingStatusLine: "WRITING_STATUS_LINE",
	WritingHeaders:    "WRITING_HEADERS",
	WritingBody:       "WRITING_BODY",
}

func NewWriter(conn io.Writer) *Writer {
	return &Writer{writer: conn, WriterStatus: WritingStatusLine}
}

func reasonPhrase(code StatusCode) string {
	if reason, ok := StatusCodeName[code]; ok {
		return reason
	}
	return "Unknown"
}

func (w *Writer) WriteStatusLine(statusCode StatusCode) error {
	if w.WriterStatus != WritingStatusLine {
		return fmt.Errorf("%w: status line in state %s", ErrWriterState, WriterStatusName[w.WriterStatus])
	}
	_, err := fmt.Fprintf(w.writer, "%s %d %s\r\n", httpVersion, int(statusCode), reasonPhrase(statusCode))
	if err != nil {
		return err
	}
	w.WriterStatus = WritingHeaders
	return nil
}

// WriteHeaders emits one "Key: Value" line per field in sorted canonical
// order, then the blank line.
func (w *Writer) WriteHeaders(h headers.Headers) error {
	if w.WriterStatus != WritingHeaders {
		return fmt.Errorf("%w: headers in state %s", ErrWriterState, WriterStatusName[w.WriterStatus])
	}
	for _, k := range h.Keys() {
		if _, err := fmt.Fprintf(w.writer, "%s: %s\r\n", k, h.Get(k)); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w.writer, "\r\n"); err != nil {
		return err
	}
	w.WriterStatus = WritingBody
	return nil
}

func (w *Writer) WriteBody(p []byte) (int, error) {
	if w.WriterStatus != WritingBody {
		return 0, fmt.Errorf("%w: body in state %s", ErrWriterState, WriterStatusName[w.WriterStatus])
	}
	return w.writer.Write(p)
}
