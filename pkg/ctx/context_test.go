package ctx_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	appctx "github.com/shashiranjanraj/canteen/pkg/ctx"
)

func TestWrapAndJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.JSON(http.StatusOK, map[string]any{"url": "https://x.supabase.co"})
	})(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"url":"https://x.supabase.co"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestSuccessAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	var written int
	appctx.Wrap(func(c *appctx.Context) {
		c.Success(map[string]any{"view": "scan"})
		written = c.WrittenStatus()
	})(rec, req)

	if rec.Code != http.StatusOK || written != http.StatusOK {
		t.Errorf("expected 200, got %d / %d", rec.Code, written)
	}
}

func TestParamAndString(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/orders/{code}", appctx.Wrap(func(c *appctx.Context) {
		c.String(http.StatusOK, "order %s", c.Param("code"))
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/ORD-1", nil))

	assert.Equal(t, "order ORD-1", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestPage(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Page(func(w io.Writer) error {
			_, err := io.WriteString(w, "<h1>Scanner</h1>")
			return err
		})
	})(rec, httptest.NewRequest(http.MethodGet, "/scanner", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "<h1>Scanner</h1>", rec.Body.String())
}

func TestPageRenderErrorIsCleanFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Page(func(w io.Writer) error {
			_, _ = io.WriteString(w, "<h1>half")
			return errors.New("template: missing field")
		})
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<h1>half")
	assert.Contains(t, rec.Body.String(), `"status":500`)
}

func TestBindJSONValid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Tea","price":10}`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name  string  `json:"name"  validate:"required"`
			Price float64 `json:"price" validate:"gt=0"`
		}
		if !c.BindJSON(&input) {
			t.Error("expected BindJSON to succeed")
			return
		}
		if input.Name != "Tea" {
			t.Errorf("expected Tea, got %s", input.Name)
		}
		c.Success(nil)
	})(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("unexpected failure: %s", rec.Body.String())
	}
}

func TestBindJSONInvalid(t *testing.T) {
	cases := map[string]int{
		`{"name":""}`: http.StatusUnprocessableEntity,
		`{"name":`:    http.StatusBadRequest,
	}
	for body, want := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		appctx.Wrap(func(c *appctx.Context) {
			var input struct {
				Name string `json:"name" validate:"required"`
			}
			if c.BindJSON(&input) {
				t.Error("expected BindJSON to fail")
			}
		})(rec, req)

		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d (body: %s)", body, want, rec.Code, rec.Body.String())
		}
	}
}

func TestFailCarriesData(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Fail(http.StatusConflict, "Request already in progress", map[string]string{"view": "compose"})
	})(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"view":"compose"`) {
		t.Errorf("expected data in body: %s", rec.Body.String())
	}
}

func TestBlob(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Blob(http.StatusOK, "image/png", []byte{0x89, 'P', 'N', 'G'})
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if rec.Body.Len() != 4 {
		t.Errorf("expected 4 bytes, got %d", rec.Body.Len())
	}
}
