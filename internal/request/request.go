package request

import (
	"bytes"
	"errors"
	"io"
	"staticserver/internal/headers"
	"staticserver/internal/httperr"
	"strconv"
	"strings"
)

// Method is the closed set of methods the server distinguishes.
type Method int

const (
	Unsupported Method = iota
	GET
	HEAD
)

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case HEAD:
		return "HEAD"
	default:
		return "UNSUPPORTED"
	}
}

// ParseMethod matches the token case-sensitively.
func ParseMethod(token string) Method {
	switch token {
	case "GET":
		return GET
	case "HEAD":
		return HEAD
	default:
		return Unsupported
	}
}

// Request holds the parsed request line and header block. Bodies are never read.
type Request struct {
	RequestLine *RequestLine
	Headers     headers.Headers
	state       RequestState
	parseErr    error
}

type RequestState int

const (
	RequestInitialized RequestState = iota + 1
	RequestParsingHeaders
	RequestDone
	RequestError
)

var RequestStateName = map[RequestState]string{
	RequestInitialized:    "initialized",
	RequestParsingHeaders: "parsing_headers",
	RequestDone:           "done",
	RequestError:          "error",
}

// RequestLine represents the components of an HTTP request line:
//
//	<method> <request-target> [<HTTP-version>]
type RequestLine struct {
	Method        Method
	MethodToken   string
	RequestTarget string
	HTTPVersion   string // "1.0" or "1.1"
}

var (
	ErrMalformedRequestLine   = errors.New("malformed request-line")
	ErrUnsupportedHTTPVersion = errors.New("unsupported http version")
	ErrInvalidRequestTarget   = errors.New("request target must begin with '/'")
	ErrHeaderBlockTooLarge    = errors.New("header block too large")

	supportedVersions = map[string]string{
		"HTTP/1.0": "1.0",
		"HTTP/1.1": "1.1",
	}
)

const (
	maxStartLine   = 8 * 1024  // 8 KiB
	maxHeaderBlock = 64 * 1024 // 64 KiB
)

func newRequest() *Request {
	return &Request{
		state:   RequestInitialized,
		Headers: headers.NewHeaders(),
	}
}

func (r *Request) done() bool {
	return r.state == RequestDone
}

func (r *Request) error() bool {
	return r.state == RequestError
}

func (r *Request) setErr(err error) error {
	r.parseErr = err
	r.state = RequestError
	return err
}

// AcceptsGzip reports whether Accept-Encoding lists gzip without q=0.
func (r *Request) AcceptsGzip() bool {
	for _, tok := range r.Headers.Tokens("accept-encoding") {
		name, params, _ := strings.Cut(tok, ";")
		if strings.TrimSpace(name) != "gzip" {
			continue
		}
		return !zeroQuality(params)
	}
	return false
}

func zeroQuality(params string) bool {
	for _, p := range strings.Split(params, ";") {
		v, ok := strings.CutPrefix(strings.TrimSpace(p), "q=")
		if !ok {
			continue
		}
		q, err := strconv.ParseFloat(v, 64)
		return err == nil && q == 0
	}
	return false
}

// parse consumes as much of data as it can and returns the bytes consumed.
// (0, nil) means more data is needed.
func (r *Request) parse(data []byte) (int, error) {
	read := 0

outer:
	for {
		currentData := data[read:]
		switch r.state {
		case RequestError, RequestDone:
			break outer

		case RequestInitialized:
			rl, n, err := ParseRequestLine(currentData)
			if err != nil {
				return 0, r.setErr(err)
			}
			if n == 0 {
				break outer
			}

			r.RequestLine = rl
			read += n
			r.state = RequestParsingHeaders

		case RequestParsingHeaders:
			n, endOfHeaders, err := r.Headers.Parse(currentData)
			if err != nil {
				return 0, r.setErr(err)
			}
			read += n

			if endOfHeaders {
				r.state = RequestDone
			}
			break outer

		default:
			return 0, r.setErr(ErrMalformedRequestLine)
		}
	}

	return read, nil
}

// FromReader reads from r until the header block is complete. Returned errors
// are *httperr.Error values: MalformedRequest for input the server must
// reject, IOFailure when the stream itself failed.
func FromReader(r io.Reader) (*Request, error) {
	req := newRequest()

	buf := make([]byte, 0, 512)
	tmp := make([]byte, 1024)
	total := 0

	for !req.done() {
		n, err := r.Read(tmp)

		if n > 0 {
			buf = append(buf, tmp[:n]...)
			total += n

			if req.state == RequestInitialized && len(buf) > maxStartLine &&
				bytes.IndexByte(buf, '\n') == -1 {
				return nil, httperr.New(httperr.MalformedRequest, ErrMalformedRequestLine)
			}
			if total > maxHeaderBlock {
				return nil, httperr.New(httperr.MalformedRequest, ErrHeaderBlockTooLarge)
			}

			readN, perr := req.parse(buf)
			if perr != nil {
				return nil, httperr.New(httperr.MalformedRequest, perr)
			}
			if readN > 0 {
				copy(buf, buf[readN:])
				buf = buf[:len(buf)-readN]
			}
		}

		if err != nil {
			if req.done() {
				break
			}
			if err != io.EOF {
				return nil, httperr.New(httperr.IOFailure, err)
			}
			switch {
			case req.state == RequestParsingHeaders:
				// Peer stopped before the blank line; serve what we have.
				req.state = RequestDone
			case total == 0:
				return nil, httperr.New(httperr.IOFailure, io.EOF)
			default:
				return nil, httperr.New(httperr.MalformedRequest, io.ErrUnexpectedEOF)
			}
		}
	}

	if req.error() {
		return nil, httperr.New(httperr.MalformedRequest, req.parseErr)
	}

	return req, nil
}

// ParseRequestLine parses one request line terminated by CRLF or LF.
// Returns (*RequestLine, bytesConsumedIncludingTerminator, error), or
// (nil, 0, nil) if no terminator has arrived yet.
func ParseRequestLine(s []byte) (*RequestLine, int, error) {
	idx := bytes.IndexByte(s, '\n')
	if idx == -1 {
		return nil, 0, nil
	}
	if idx > maxStartLine {
		return nil, 0, ErrMalformedRequestLine
	}

	startLine := bytes.TrimSuffix(s[:idx], []byte("\r"))

	tokens := bytes.Fields(startLine)
	if len(tokens) < 2 || len(tokens) > 3 {
		return nil, 0, ErrMalformedRequestLine
	}

	m, target := tokens[0], tokens[1]
	if target[0] != '/' {
		return nil, 0, ErrInvalidRequestTarget
	}

	version := "1.1"
	if len(tokens) == 3 {
		v, ok := supportedVersions[string(tokens[2])]
		if !ok {
			return nil, 0, ErrUnsupportedHTTPVersion
		}
		version = v
	}

	return &RequestLine{
		Method:        ParseMethod(string(m)),
		MethodToken:   string(m),
		RequestTarget: string(target),
		HTTPVersion:   version,
	}, idx + 1, nil
}
