package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"staticserver/internal/httperr"
	"staticserver/internal/request"
	"staticserver/internal/response"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second

	acceptBackoff = 5 * time.Millisecond
)

// Config is read once by Serve and never modified afterwards.
type Config struct {
	Addr string
	// Workers > 0 runs a fixed pool of that many goroutines; 0 spawns one
	// goroutine per connection.
	Workers int
	// Zero selects the default; negative disables the deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *log.Logger
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Handler produces the response for one parsed request.
type Handler func(req *request.Request) *response.Response

type Server struct {
	cfg      Config
	listener net.Listener
	closed   atomic.Bool
	handler  Handler

	conns      chan net.Conn // nil without a worker pool
	acceptDone chan struct{}
	inflight   sync.WaitGroup
}

// Serve binds cfg.Addr and starts accepting in the background. A bind error
// is returned as an httperr.BindFailure.
func Serve(cfg Config, handler Handler) (*Server, error) {
	cfg = cfg.withDefaults()
	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, httperr.New(httperr.BindFailure, err)
	}
	s := &Server{
		cfg:        cfg,
		listener:   l,
		handler:    handler,
		acceptDone: make(chan struct{}),
	}
	if cfg.Workers > 0 {
		s.conns = make(chan net.Conn)
		for range cfg.Workers {
			s.inflight.Add(1)
			go s.work()
		}
	}
	go s.listen()
	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting and waits for in-flight connections to finish.
// It is idempotent.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.listener.Close()
	<-s.acceptDone
	s.inflight.Wait()
	return err
}

func (s *Server) listen() {
	defer close(s.acceptDone)
	if s.conns != nil {
		defer close(s.conns)
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.cfg.Logger.Printf("accept: %v", err)
			time.Sleep(acceptBackoff)
			continue
		}
		if s.conns != nil {
			s.conns <- conn
			continue
		}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) work() {
	defer s.inflight.Done()
	for conn := range s.conns {
		s.handle(conn)
	}
}

// helper: format duration compactly
func fmtDur(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	start := time.Now()

	remoteHost, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	logf := func(method, target string, status response.StatusCode, err error) {
		if err != nil {
			s.cfg.Logger.Printf("%s\t%s\t%s\t%d\t%s\terr=%q",
				remoteHost, method, target, int(status), fmtDur(time.Since(start)), err.Error(),
			)
			return
		}
		s.cfg.Logger.Printf("%s\t%s\t%s\t%d\t%s",
			remoteHost, method, target, int(status), fmtDur(time.Since(start)),
		)
	}

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(s.cfg.ReadTimeout))
	}

	req, err := request.FromReader(conn)
	if err != nil {
		var status response.StatusCode
		switch {
		case errors.Is(err, request.ErrUnsupportedHTTPVersion):
			status = response.HTTP_VERSION_NOT_SUPPORTED
		case httperr.Is(err, httperr.MalformedRequest):
			status = response.BAD_REQUEST
		default:
			// Nothing usable arrived; just hang up.
			logf("-", "-", 0, err)
			return
		}
		s.setWriteDeadline(conn)
		// Best effort: the client may already be gone.
		_ = response.Empty(status).Send(conn, false)
		logf("-", "-", status, err)
		return
	}

	method := req.RequestLine.MethodToken
	target := req.RequestLine.RequestTarget

	resp := s.serve(req)

	s.setWriteDeadline(conn)
	includeBody := req.RequestLine.Method != request.HEAD
	if err := resp.Send(conn, includeBody); err != nil {
		logf(method, target, resp.Status, httperr.New(httperr.IOFailure, err))
		return
	}

	logf(method, target, resp.Status, nil)
}

// serve runs the handler, turning a panic or a nil response into a 500 so
// one bad request never takes down the accept loop.
func (s *Server) serve(req *request.Request) (resp *response.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.cfg.Logger.Printf("handler panic on %s: %v", req.RequestLine.RequestTarget, r)
			resp = response.Text(response.INTERNAL_SERVER_ERROR)
		}
	}()
	resp = s.handler(req)
	if resp == nil {
		resp = response.Text(response.INTERNAL_SERVER_ERROR)
	}
	return resp
}

func (s *Server) setWriteDeadline(conn net.Conn) {
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
}
