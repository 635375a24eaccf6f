// Package common holds the render.Renderer error shapes shared by the
// edge HTTP resource packages (students, fingerprint), following the
// teacher's per-package errors.go convention (see e.g. the active
// package) but centralized here since the edge has only two resources.
package common

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse is the renderer type for every error response on the edge
// HTTP surface.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

// Render sets the HTTP status code for the response.
func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// ErrorInvalidRequest returns a 400 Bad Request response.
func ErrorInvalidRequest(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusBadRequest, StatusText: "Invalid Request", ErrorText: err.Error()}
}

// ErrorNotFound returns a 404 Not Found response.
func ErrorNotFound(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusNotFound, StatusText: "Not Found", ErrorText: err.Error()}
}

// ErrorUnauthorized returns a 401 Unauthorized response.
func ErrorUnauthorized(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusUnauthorized, StatusText: "Unauthorized", ErrorText: err.Error()}
}

// ErrorInternalServer returns a 500 Internal Server Error response.
func ErrorInternalServer(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusInternalServerError, StatusText: "Internal Server Error", ErrorText: err.Error()}
}

// ErrorConflict returns a 409 Conflict response, used for enroll/persist
// failures that advancing the counter would not fix.
func ErrorConflict(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusConflict, StatusText: "Conflict", ErrorText: err.Error()}
}

// RenderError writes errorResponse to w. A failure from render.Render
// itself is discarded: it is neither logged nor propagated (the response
// is already in an error state by that point).
func RenderError(w http.ResponseWriter, r *http.Request, errorResponse render.Renderer) {
	_ = render.Render(w, r, errorResponse)
}
