// Package ctx gives handlers one value for the request and the response.
//
//	func (sc *ScannerController) APIScan(c *ctx.Context) {
//	    var in scanInput
//	    if !c.BindJSON(&in) {
//	        return
//	    }
//	    ...
//	    c.Success(state)
//	}
//
//	r.Post("/api/scanner/scan", "scanner.api.scan", ctx.Wrap(sc.APIScan))
package ctx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/canteen/pkg/bind"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/response"
	"github.com/shashiranjanraj/canteen/pkg/session"
	"github.com/shashiranjanraj/canteen/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts h to net/http.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(&Context{W: w, R: r})
	}
}

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

func (c *Context) Context() context.Context { return c.R.Context() }

func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

// PostForm returns a form field with surrounding whitespace removed.
func (c *Context) PostForm(key string) string { return strings.TrimSpace(c.R.PostFormValue(key)) }

// Session is the session attached by session.Middleware, or nil.
func (c *Context) Session() *session.Session { return session.FromCtx(c.R.Context()) }

// BindJSON decodes and validates the body into dest. On failure it has
// already answered 400 or 422 and returns false.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	switch {
	case err != nil:
		c.Error(http.StatusBadRequest, err.Error())
		return false
	case validate.HasErrors(errs):
		c.status = http.StatusUnprocessableEntity
		response.ValidationError(c.W, errs)
		return false
	}
	return true
}

// WrittenStatus is the status sent so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }

func (c *Context) SetHeader(key, value string) { c.W.Header().Set(key, value) }

// JSON writes v without the envelope, for endpoints whose shape is fixed by
// their clients (config, GraphQL).
func (c *Context) JSON(code int, v any) {
	c.status = code
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	_ = json.NewEncoder(c.W).Encode(v)
}

func (c *Context) Success(data any) {
	c.status = http.StatusOK
	response.Success(c.W, data)
}

func (c *Context) Created(data any) {
	c.status = http.StatusCreated
	response.Created(c.W, data)
}

func (c *Context) Error(code int, message string) {
	c.status = code
	response.Error(c.W, code, message)
}

// Fail is Error plus data describing the state left behind.
func (c *Context) Fail(code int, message string, data any) {
	c.status = code
	response.Fail(c.W, code, message, data)
}

func (c *Context) NotFound() {
	c.status = http.StatusNotFound
	response.NotFound(c.W)
}

func (c *Context) Blob(code int, contentType string, b []byte) {
	c.status = code
	c.W.Header().Set("Content-Type", contentType)
	c.W.WriteHeader(code)
	_, _ = c.W.Write(b)
}

func (c *Context) String(code int, format string, args ...any) {
	c.Blob(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf(format, args...)))
}

// Page renders an HTML page into a buffer first, so a template error
// becomes a clean 500 instead of half a page.
func (c *Context) Page(render func(w io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		logger.WithCtx(c.Context()).Error("render page", "error", err)
		c.Error(http.StatusInternalServerError, "")
		return
	}
	c.SetHeader("Cache-Control", "no-store")
	c.Blob(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *Context) Redirect(code int, url string) {
	c.status = code
	http.Redirect(c.W, c.R, url, code)
}
