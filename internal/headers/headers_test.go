package headers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestHeadersParsing(t *testing.T) {
	// Test: Valid single header
	h := NewHeaders()
	data := []byte("host: localhost:8080\r\n\r\n")
	n, done, err := h.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", h.Get("Host"))
	assert.Equal(t, len(data), n)
	assert.True(t, done)

	// Test: Invalid spacing header
	h = NewHeaders()
	n, done, err = h.Parse([]byte("       Host : localhost:8080       \r\n\r\n"))
	require.ErrorIs(t, err, ErrMalformedHeaderLine)
	assert.Equal(t, 0, n)
	assert.False(t, done)

	// Space before colon => invalid
	_, _, err = NewHeaders().Parse([]byte("Host : localhost\r\n\r\n"))
	require.ErrorIs(t, err, ErrMalformedHeaderLine)

	// Missing colon => invalid
	_, _, err = NewHeaders().Parse([]byte("Accept-Encoding gzip\r\n\r\n"))
	require.ErrorIs(t, err, ErrMalformedHeaderLine)

	// Repeated headers are joined
	h = NewHeaders()
	data = []byte("Accept-Encoding: br   \r\nAccept-Encoding: gzip\r\n\r\n")
	n, done, err = h.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "br,gzip", h.Get("accept-encoding"))
	assert.Equal(t, len(data), n)
	assert.True(t, done)
}

func TestParseBareLF(t *testing.T) {
	h := NewHeaders()
	data := []byte("Host: a\nAccept-Encoding: gzip\n\n")
	n, done, err := h.Parse(data)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, len(data), n)
	assert.Equal(t, "gzip", h.Get("Accept-Encoding"))
}

func TestParseIncremental(t *testing.T) {
	h := NewHeaders()
	n, done, err := h.Parse([]byte("Host: a\r\nUser-Ag"))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, len("Host: a\r\n"), n)

	n, done, err = h.Parse([]byte("User-Agent: curl\r\n\r\n"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, len("User-Agent: curl\r\n\r\n"), n)
	assert.Equal(t, "curl", h.Get("user-agent"))
}

func TestParseLineTooLong(t *testing.T) {
	big := bytes.Repeat([]byte("A"), maxHeaderLine+1)
	_, _, err := NewHeaders().Parse(big)
	require.ErrorIs(t, err, ErrHeaderLineTooLong)

	_, _, err = NewHeaders().Parse(append(big, "\r\n\r\n"...))
	require.ErrorIs(t, err, ErrHeaderLineTooLong)
}

func TestTokensAndKeys(t *testing.T) {
	h := NewHeaders()
	h.Add("Accept-Encoding", "deflate, GZIP ;q=0.5")
	h.Add("accept-encoding", " ")
	assert.Equal(t, []string{"deflate", "gzip ;q=0.5"}, h.Tokens("Accept-Encoding"))
	assert.Nil(t, h.Tokens("Missing"))

	h.Set("content-length", "1")
	h.Set("Content-Length", "2")
	assert.Equal(t, "2", h.Get("content-length"))
	assert.True(t, h.Has("CONTENT-LENGTH"))
	assert.Equal(t, []string{"Accept-Encoding", "Content-Length"}, h.Keys())

	h.Delete("Accept-Encoding")
	assert.False(t, h.Has("accept-encoding"))
}
