// Package router wraps chi so that every route carries a name. Names feed
// `canteen route:list` and let callers build paths without hard-coding them.
package router

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/canteen/pkg/response"
)

type Middleware func(http.Handler) http.Handler

// Route is one registered endpoint, as listed by `canteen route:list`.
type Route struct {
	Method string
	Path   string
	Name   string
}

// Router owns the chi mux and the table of named routes.
type Router struct {
	mux *chi.Mux

	mu    sync.RWMutex
	table []Route
	names map[string]string
}

// Group mounts routes under a shared prefix and middleware stack.
type Group struct {
	r      *Router
	prefix string
	mws    []Middleware
}

func New() *Router {
	r := &Router{
		mux:   chi.NewRouter(),
		names: make(map[string]string),
	}
	r.mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w)
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "")
	})
	return r
}

func (r *Router) Handler() http.Handler { return r.mux }

// Use appends global middleware. chi requires this before any route is
// mounted.
func (r *Router) Use(mws ...Middleware) {
	for _, mw := range mws {
		r.mux.Use(mw)
	}
}

func (r *Router) root() *Group { return &Group{r: r} }

func (r *Router) Group(prefix string, mws ...Middleware) *Group {
	return r.root().Group(prefix, mws...)
}

func (r *Router) Get(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root().Get(path, name, h, mws...)
}

func (r *Router) Post(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root().Post(path, name, h, mws...)
}

func (r *Router) Delete(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.root().Delete(path, name, h, mws...)
}

func (r *Router) Handle(path, name string, h http.Handler, mws ...Middleware) {
	r.root().Handle(path, name, h, mws...)
}

func (g *Group) Group(prefix string, mws ...Middleware) *Group {
	return &Group{r: g.r, prefix: joinPath(g.prefix, prefix), mws: g.stack(mws)}
}

func (g *Group) Get(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.add(http.MethodGet, path, name, h, mws)
}

func (g *Group) Post(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.add(http.MethodPost, path, name, h, mws)
}

func (g *Group) Delete(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.add(http.MethodDelete, path, name, h, mws)
}

// Handle mounts h for every method, e.g. a file server or the WebSocket
// feed. It is listed with method "*".
func (g *Group) Handle(path, name string, h http.Handler, mws ...Middleware) {
	full := joinPath(g.prefix, path)
	g.r.mux.Handle(full, chain(h, g.stack(mws)))
	g.r.record("*", full, name)
}

func (g *Group) add(method, path, name string, h http.Handler, mws []Middleware) {
	full := joinPath(g.prefix, path)
	g.r.mux.Method(method, full, chain(h, g.stack(mws)))
	g.r.record(method, full, name)
}

func (g *Group) stack(extra []Middleware) []Middleware {
	return append(slices.Clone(g.mws), extra...)
}

func (r *Router) record(method, path, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = append(r.table, Route{Method: method, Path: path, Name: name})
	if name != "" {
		r.names[name] = path
	}
}

// Routes returns the table sorted by path, then method.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	out := slices.Clone(r.table)
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Route) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return out
}

func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.names[name]
	return path, ok
}

// URL fills the {placeholders} of the named route. Values are path-escaped.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("router: no route named %q", name)
	}
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("router: route %q: missing parameters in %s", name, path)
	}
	return path, nil
}

// chain wraps h so that mws[0] runs first.
func chain(h http.Handler, mws []Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func joinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		if t := strings.Trim(p, "/"); t != "" {
			segs = append(segs, t)
		}
	}
	return "/" + strings.Join(segs, "/")
}
