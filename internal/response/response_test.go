package response

import (
	"bytes"
	"compress/gzip"
	"crypto/rand"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.Date(2024, time.March, 5, 9, 4, 5, 0, time.UTC) }
	t.Cleanup(func() { now = prev })
}

func gunzip(t *testing.T, data []byte) []byte {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	return out
}

func TestEncode(t *testing.T) {
	fixedClock(t)

	got := New(OK, "text/html", []byte("hello")).Encode(true)
	want := "HTTP/1.1 200 OK\r\n" +
		"Connection: close\r\n" +
		"Content-Length: 5\r\n" +
		"Content-Type: text/html\r\n" +
		"Date: Tue, 05 Mar 2024 09:04:05 GMT\r\n" +
		"\r\n" +
		"hello"
	assert.Equal(t, want, string(got))
}

func TestEncodeWithoutBody(t *testing.T) {
	fixedClock(t)

	r := New(OK, "text/html", []byte("hello"))
	full := r.Encode(true)
	head := r.Encode(false)
	assert.Equal(t, string(full[:len(full)-len("hello")]), string(head))
	assert.Contains(t, string(head), "Content-Length: 5\r\n")
}

func TestText(t *testing.T) {
	r := Text(NOT_FOUND)
	assert.Equal(t, "404 Not Found", string(r.Body))
	assert.Equal(t, "text/plain", r.Headers.Get("Content-Type"))
	assert.Equal(t, "13", r.Headers.Get("Content-Length"))

	assert.Contains(t, string(Empty(StatusCode(418)).Encode(true)), "HTTP/1.1 418 Unknown\r\n")
	assert.Equal(t, "0", Empty(BAD_REQUEST).Headers.Get("content-length"))
}

func TestGzip(t *testing.T) {
	for name, body := range map[string][]byte{
		"text":   []byte("hello"),
		"empty":  {},
		"binary": randomBytes(t, 4096),
	} {
		t.Run(name, func(t *testing.T) {
			r := New(OK, "application/octet-stream", body)
			require.NoError(t, r.Gzip())

			assert.Equal(t, "gzip", r.Headers.Get("Content-Encoding"))
			assert.Equal(t, strconv.Itoa(len(r.Body)), r.Headers.Get("Content-Length"))
			assert.Equal(t, body, gunzip(t, r.Body))

			// A second call must not double-compress.
			before := r.Body
			require.NoError(t, r.Gzip())
			assert.Equal(t, before, r.Body)
		})
	}
}

func TestWriterOrdering(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	_, err := w.WriteBody([]byte("x"))
	require.ErrorIs(t, err, ErrWriterState)
	require.ErrorIs(t, w.WriteHeaders(nil), ErrWriterState)

	require.NoError(t, w.WriteStatusLine(OK))
	require.ErrorIs(t, w.WriteStatusLine(OK), ErrWriterState)
	require.NoError(t, w.WriteHeaders(nil))
	_, err = w.WriteBody([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\nx", buf.String())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestSendPropagatesWriteErrors(t *testing.T) {
	require.Error(t, New(OK, "text/plain", []byte("x")).Send(brokenWriter{}, true))
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}
