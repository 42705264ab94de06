package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func tag(v string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Tag", v)
			next.ServeHTTP(w, r)
		})
	}
}

func TestGroupsJoinPrefixesAndMiddleware(t *testing.T) {
	r := New()
	api := r.Group("/api", tag("api"))
	scanner := api.Group("scanner/", tag("scanner"))
	scanner.Post("/scan", "scanner.scan", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scanner/scan", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"api", "scanner"}, rec.Header().Values("X-Tag"))

	path, found := r.Path("scanner.scan")
	require.True(t, found)
	assert.Equal(t, "/api/scanner/scan", path)
}

func TestURL(t *testing.T) {
	r := New()
	r.Get("/orders/{code}/qr.png", "orders.qr", ok)

	u, err := r.URL("orders.qr", map[string]string{"code": "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, "/orders/ORD-1/qr.png", u)

	_, err = r.URL("orders.qr", nil)
	assert.Error(t, err)
	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesAreSorted(t *testing.T) {
	r := New()
	r.Post("/b", "b.store", ok)
	r.Get("/b", "b.show", ok)
	r.Handle("/a", "", http.HandlerFunc(ok))

	assert.Equal(t, []Route{
		{Method: "*", Path: "/a"},
		{Method: http.MethodGet, Path: "/b", Name: "b.show"},
		{Method: http.MethodPost, Path: "/b", Name: "b.store"},
	}, r.Routes())
}

func TestNotFoundIsJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":404,"message":"Not found"}`, rec.Body.String())
}

func TestURLEscapesValues(t *testing.T) {
	r := New()
	r.Get("/orders/{code}/qr.png", "orders.qr", ok)

	u, err := r.URL("orders.qr", map[string]string{"code": "ORD 1/2"})
	require.NoError(t, err)
	assert.Equal(t, "/orders/ORD%201%2F2/qr.png", u)
}

func TestMethodNotAllowedIsJSON(t *testing.T) {
	r := New()
	r.Post("/orders", "composer.place", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"status":405,"message":"Method Not Allowed"}`, rec.Body.String())
}
