// Package session ties a browser or API client to the composer and scanner
// state kept in a cache.Store. The id travels in a cookie, or in the
// X-Session-Id header for clients without cookies.
//
//	sessions := session.NewManager(store)
//	r.Use(sessions.Middleware())
//
//	sess := session.FromCtx(r.Context())
//	ok, err := sess.Load(ctx, "composer", &st)
//	err = sess.Save(ctx, "composer", &st)
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/pkg/cache"
	"github.com/shashiranjanraj/canteen/pkg/logger"
)

const (
	HeaderName = "X-Session-Id"
	CookieName = "canteen_session"

	// rand.Text length and alphabet.
	idLen      = 26
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
)

type Manager struct {
	store   cache.Store
	ttl     time.Duration
	lockTTL time.Duration
	secure  bool
}

type Option func(*Manager)

// WithTTL sets how long idle state is kept. Each Save renews it.
func WithTTL(d time.Duration) Option { return func(m *Manager) { m.ttl = d } }

// WithLockTTL bounds how long an in-flight marker outlives a crashed
// request.
func WithLockTTL(d time.Duration) Option { return func(m *Manager) { m.lockTTL = d } }

// NewManager defaults to SESSION_TTL, a 30s lock TTL and Secure cookies in
// production.
func NewManager(store cache.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		ttl:     config.SessionTTL(),
		lockTTL: 30 * time.Second,
		secure:  config.AppEnv() == "production",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func validID(id string) bool {
	if len(id) != idLen {
		return false
	}
	for _, c := range id {
		if !strings.ContainsRune(idAlphabet, c) {
			return false
		}
	}
	return true
}

// requestID returns the id the client sent, if it is well formed.
func requestID(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && validID(c.Value) {
		return c.Value
	}
	if h := r.Header.Get(HeaderName); validID(h) {
		return h
	}
	return ""
}

// Middleware attaches a Session to every request, starting a new one when
// the client sent none, and echoes the id back in both cookie and header.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r)
			if id == "" {
				id = rand.Text()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(m.ttl / time.Second),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(HeaderName, id)

			s := &Session{id: id, m: m}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
		})
	}
}

type ctxKey struct{}

// FromCtx is the request's session, or nil outside Middleware.
func FromCtx(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// Session is one client's handle on its stored state.
type Session struct {
	id string
	m  *Manager
}

func (s *Session) ID() string { return s.id }

func (s *Session) key(name string) string {
	return fmt.Sprintf("canteen:session:%s:%s", s.id, name)
}

// Load decodes the state saved under name into dest and reports whether
// there was any.
func (s *Session) Load(ctx context.Context, name string, dest any) (bool, error) {
	found, err := s.m.store.Get(ctx, s.key(name), dest)
	if err != nil {
		return false, fmt.Errorf("session: load %s: %w", name, err)
	}
	return found, nil
}

func (s *Session) Save(ctx context.Context, name string, value any) error {
	if err := s.m.store.Set(ctx, s.key(name), value, s.m.ttl); err != nil {
		return fmt.Errorf("session: save %s: %w", name, err)
	}
	return nil
}

func (s *Session) Forget(ctx context.Context, name string) error {
	if err := s.m.store.Del(ctx, s.key(name)); err != nil {
		return fmt.Errorf("session: forget %s: %w", name, err)
	}
	return nil
}

// TryLock marks name as in flight. ok is false while another request holds
// it. The holder calls unlock when done; unlock ignores ctx cancellation and
// only releases the marker this call set, so a request that outlived the
// lock TTL cannot free a newer holder's lock.
func (s *Session) TryLock(ctx context.Context, name string) (unlock func(), ok bool, err error) {
	key := s.key(name) + ":lock"
	token := rand.Text()
	ok, err = s.m.store.SetNX(ctx, key, token, s.m.lockTTL)
	switch {
	case err != nil:
		return nil, false, fmt.Errorf("session: lock %s: %w", name, err)
	case !ok:
		return nil, false, nil
	}
	return func() {
		if _, err := s.m.store.CompareAndDelete(context.WithoutCancel(ctx), key, token); err != nil {
			logger.WithCtx(ctx).Warn("session: unlock failed", "state", name, "error", err)
		}
	}, true, nil
}
