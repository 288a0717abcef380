// Package static serves the files of a single root directory.
package static

import (
	"log"
	"staticserver/internal/files"
	"staticserver/internal/httperr"
	"staticserver/internal/request"
	"staticserver/internal/response"
)

// NotFoundPage is served with 404 responses when it exists under the root.
const NotFoundPage = "/404.html"

type Handler struct {
	root   files.Root
	logger *log.Logger
}

func New(root files.Root, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{root: root, logger: logger}
}

// Serve builds the full response for req. HEAD gets exactly the GET response;
// the connection layer drops the body.
func (h *Handler) Serve(req *request.Request) *response.Response {
	if req.RequestLine.Method == request.Unsupported {
		resp := response.Text(response.METHOD_NOT_ALLOWED)
		resp.Headers.Set("allow", "GET, HEAD")
		return resp
	}

	target := h.root.Resolve(req.RequestLine.RequestTarget)

	var resp *response.Response
	if target.Exists {
		resp = h.file(target, response.OK)
	} else {
		resp = h.notFound()
	}

	if req.AcceptsGzip() && resp.Status != response.INTERNAL_SERVER_ERROR {
		if err := resp.Gzip(); err != nil {
			h.logger.Printf("gzip %s: %v", req.RequestLine.RequestTarget, err)
		}
	}
	return resp
}

func (h *Handler) file(target files.Target, status response.StatusCode) *response.Response {
	body, err := files.Read(target)
	if err != nil {
		h.logger.Printf("read %s: %v", target.Path, httperr.New(httperr.IOFailure, err))
		return response.Text(response.INTERNAL_SERVER_ERROR)
	}
	return response.New(status, files.ContentType(target.Path), body)
}

func (h *Handler) notFound() *response.Response {
	page := h.root.Resolve(NotFoundPage)
	if !page.Exists {
		return response.Text(response.NOT_FOUND)
	}
	resp := h.file(page, response.NOT_FOUND)
	if resp.Status == response.INTERNAL_SERVER_ERROR {
		return response.Text(response.NOT_FOUND)
	}
	return resp
}
