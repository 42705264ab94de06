// Package controllers adapts HTTP requests to composer and scanner
// operations. Each request loads the session's state, runs one operation,
// and saves the state back.
package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/pkg/clientconfig"
	"github.com/shashiranjanraj/canteen/pkg/ctx"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/logger"
)

const msgBusy = "Request already in progress"

var (
	errNoSession = errors.New("controllers: session middleware not installed")
	errBusy      = errors.New("controllers: request already in progress")
)

// StatusFor maps an operation error to its HTTP status.
func StatusFor(err error) int {
	var (
		ve *services.ValidationError
		ie *services.IndexError
		be *datastore.BackendError
		ce *clientconfig.ConfigError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ie):
		return http.StatusBadRequest
	case errors.Is(err, errBusy),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrAlreadyFulfilled),
		errors.Is(err, services.ErrWrongView):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNoOrder):
		return http.StatusNotFound
	case errors.As(err, &be):
		return http.StatusBadGateway
	case errors.As(err, &ce):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// stateful runs fn against the session state saved under name. Mutating
// calls hold a per-session in-flight marker so a double submit is refused
// instead of racing.
func stateful[S any](c *ctx.Context, name string, fresh func() *S, mutate bool, fn func(st *S) error) (*S, error) {
	sess := c.Session()
	if sess == nil {
		return nil, errNoSession
	}
	rctx := c.Context()

	if mutate {
		unlock, ok, err := sess.TryLock(rctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errBusy
		}
		defer unlock()
	}

	st := fresh()
	if _, err := sess.Load(rctx, name, st); err != nil {
		logger.WithCtx(rctx).Warn("session state unreadable, starting fresh", "state", name, "error", err)
		st = fresh()
	}

	opErr := fn(st)

	if mutate {
		if err := sess.Save(rctx, name, st); err != nil {
			return st, err
		}
	}
	return st, opErr
}

// reply writes st as the envelope data, with err's status and message when
// the operation failed.
func reply[S any](c *ctx.Context, st *S, err error) {
	switch {
	case err == nil:
		c.Success(st)
	case errors.Is(err, errBusy):
		c.Fail(http.StatusConflict, msgBusy, nil)
	case errors.Is(err, errNoSession), st == nil:
		logger.WithCtx(c.Context()).Error("request failed", "error", err)
		c.Error(http.StatusInternalServerError, "Internal Server Error")
	default:
		c.Fail(StatusFor(err), services.Message(err), st)
	}
}

// redirectAfter sends browsers back to page after a form post. Operation
// errors are already recorded in the saved state and shown on the next GET.
func redirectAfter(c *ctx.Context, page string, err error) {
	switch {
	case errors.Is(err, errBusy):
		c.String(http.StatusConflict, msgBusy)
	case errors.Is(err, errNoSession):
		c.Error(http.StatusInternalServerError, "Internal Server Error")
	default:
		if err != nil && StatusFor(err) >= http.StatusInternalServerError {
			logger.WithCtx(c.Context()).Error("request failed", "error", err)
		}
		c.Redirect(http.StatusSeeOther, page)
	}
}
