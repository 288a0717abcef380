// Command tcplistener prints each request it receives along with the file the
// static server would answer it with. It is a debugging aid; every client gets
// a short plain-text acknowledgement.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"staticserver/internal/files"
	"staticserver/internal/request"
	"staticserver/internal/response"
	"time"
)

func main() {
	addr := flag.String("addr", ":42069", "address to listen on")
	flag.Parse()

	var root *files.Root
	if flag.NArg() > 0 {
		r, err := files.NewRoot(flag.Arg(0))
		if err != nil {
			fmt.Println("ERROR: bad served directory.\n", err)
			os.Exit(1)
		}
		root = &r
	}

	tcp, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Println("ERROR: failed to open.\n", err.Error())
		os.Exit(1)
	}
	defer tcp.Close()

	fmt.Println("Listening for TCP traffic on", *addr)
	for {
		conn, err := tcp.Accept()
		if err != nil {
			fmt.Println("ERROR: failed to accept.\n", err)
			continue
		}
		go handleConn(conn, root)
	}
}

func handleConn(conn net.Conn, root *files.Root) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	req, err := request.FromReader(conn)
	if err != nil {
		fmt.Println("ERROR: failed to parse request:", err)
		_ = response.Empty(response.BAD_REQUEST).Send(conn, false)
		return
	}

	line := req.RequestLine
	fmt.Printf("Request line:\n- Method: %s (%s)\n- Target: %s\n- Version: %s\n",
		line.MethodToken, line.Method, line.RequestTarget, line.HTTPVersion)

	fmt.Println("Headers:")
	if len(req.Headers) == 0 {
		fmt.Println("- (none)")
	}
	for _, k := range req.Headers.Keys() {
		fmt.Printf("- %s: %s\n", k, req.Headers.Get(k))
	}
	fmt.Println("Accepts gzip:", req.AcceptsGzip())

	if root != nil {
		t := root.Resolve(line.RequestTarget)
		if t.Exists {
			fmt.Printf("Resolved: %s (%d bytes, %s)\n", t.Path, t.Size, files.ContentType(t.Path))
		} else {
			fmt.Println("Resolved: not found")
		}
	}

	_ = response.New(response.OK, "text/plain", []byte("OK")).Send(conn, true)
}
