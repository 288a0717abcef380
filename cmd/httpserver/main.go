package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"staticserver/internal/files"
	"staticserver/internal/server"
	"staticserver/internal/static"
	"syscall"
)

const (
	defaultPort    = 8080
	defaultWorkers = 4
)

func main() {
	port := flag.Int("port", defaultPort, "port to listen on")
	workers := flag.Int("workers", defaultWorkers, "connection workers (0 = one goroutine per connection)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-port N] [-workers N] DIRECTORY\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	root, err := files.NewRoot(flag.Arg(0))
	if err != nil {
		log.Fatalf("Error opening served directory: %v", err)
	}

	srv, err := server.Serve(server.Config{
		Addr:    fmt.Sprintf(":%d", *port),
		Workers: *workers,
	}, static.New(root, nil).Serve)
	if err != nil {
		log.Fatalf("Error starting server: %v", err)
	}

	log.Printf("Serving %s on port %d", root.Dir(), *port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := srv.Close(); err != nil {
		log.Printf("Error closing listener: %v", err)
	}
	log.Println("Server gracefully stopped")
}
