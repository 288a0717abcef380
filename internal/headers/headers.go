package headers

import (
	"bytes"
	"errors"
	"net/textproto"
	"sort"
	"strings"
)

// Headers maps lowercase field names to their (comma-joined) values.
type Headers map[string]string

var (
	ErrMalformedHeaderLine = errors.New("malformed header-line")
	ErrHeaderLineTooLong   = errors.New("header line too long")
)

// Per-line cap; the request package enforces a cap on the whole block.
const maxHeaderLine = 8 * 1024 // 8 KiB

func NewHeaders() Headers { return Headers{} }

// Get is case-insensitive.
func (h Headers) Get(name string) string {
	return h[strings.ToLower(name)]
}

func (h Headers) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

func (h Headers) Delete(name string) {
	delete(h, strings.ToLower(name))
}

// Add appends value to any existing value for name, comma separated.
func (h Headers) Add(name, value string) {
	name = strings.ToLower(name)

	if old, ok := h[name]; ok {
		h[name] = old + "," + value
	} else {
		h[name] = value
	}
}

// Set replaces any existing value for name.
func (h Headers) Set(name, value string) {
	h[strings.ToLower(name)] = value
}

// Tokens splits a list-valued field into its lowercase elements, dropping
// empty ones. Parameters (";q=...") are kept attached to their element.
func (h Headers) Tokens(name string) []string {
	raw := h.Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Keys returns the field names in canonical form, sorted.
func (h Headers) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, textproto.CanonicalMIMEHeaderKey(k))
	}
	sort.Strings(keys)
	return keys
}

// Parse consumes header lines from data until the blank line that ends the
// block. Lines may end in CRLF or a bare LF. It returns the number of bytes
// consumed; n == 0 with done == false means more data is needed.
func (h Headers) Parse(data []byte) (n int, done bool, err error) {
	off := 0
	for {
		idx := bytes.IndexByte(data[off:], '\n')
		if idx == -1 {
			// Unterminated line over the cap: fail now rather than buffer forever.
			if len(data)-off > maxHeaderLine {
				return 0, false, ErrHeaderLineTooLong
			}
			return off, false, nil
		}
		if idx > maxHeaderLine {
			return 0, false, ErrHeaderLineTooLong
		}

		line := bytes.TrimSuffix(data[off:off+idx], []byte("\r"))
		off += idx + 1

		if len(line) == 0 {
			return off, true, nil
		}

		// Obsolete line folding is rejected.
		if line[0] == ' ' || line[0] == '\t' {
			return 0, false, ErrMalformedHeaderLine
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return 0, false, ErrMalformedHeaderLine
		}

		nameRaw := line[:colon]
		if !isToken(nameRaw) {
			return 0, false, ErrMalformedHeaderLine
		}

		val := strings.Trim(string(line[colon+1:]), " \t")
		h.Add(string(nameRaw), val)
	}
}

var tokenChars [256]bool

func init() {
	for c := byte('0'); c <= '9'; c++ {
		tokenChars[c] = true
	}
	for c := byte('A'); c <= 'Z'; c++ {
		tokenChars[c] = true
	}
	for c := byte('a'); c <= 'z'; c++ {
		tokenChars[c] = true
	}
	for _, c := range []byte("!#$%&'*+-.^_`|~") {
		tokenChars[c] = true
	}
}

// isToken also rejects SP/HTAB, so "Host :" fails here.
func isToken(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if !tokenChars[c] {
			return false
		}
	}
	return true
}
