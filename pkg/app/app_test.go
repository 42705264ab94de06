package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/pkg/auth"
	"github.com/shashiranjanraj/canteen/pkg/cache"
	"github.com/shashiranjanraj/canteen/pkg/clientconfig"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/session"
)

var fixedNow = time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC)

type envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type harness struct {
	app      *App
	srv      *httptest.Server
	orders   *datastore.Memory
	sessions *cache.Memory
}

func newHarness(t *testing.T, d Deps) *harness {
	t.Helper()
	h := &harness{orders: datastore.NewMemory(), sessions: cache.NewMemory()}
	d.Orders = h.orders
	d.Sessions = h.sessions
	d.Now = func() time.Time { return fixedNow }
	if d.Tokens == nil {
		d.Tokens = func(time.Time) string { return "ORD-TEST-1" }
	}

	a, err := New(d)
	require.NoError(t, err)
	h.app = a
	h.srv = httptest.NewServer(a.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) seed(t *testing.T, code string) *models.Order {
	t.Helper()
	o, err := h.orders.Create(context.Background(), &models.Order{
		StudentName: "Asha",
		StudentID:   "S-42",
		Items:       []models.OrderItem{{Name: "Samosa", Price: 20}, {Name: "Chai", Price: 10}},
		TotalAmount: 30,
		QRCode:      code,
		OrderDate:   "2026-10-16",
		Status:      models.StatusPending,
	})
	require.NoError(t, err)
	return o
}

func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func call(t *testing.T, c *http.Client, method, url string, body any, header http.Header) (*http.Response, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func page(t *testing.T, resp *http.Response, err error) string {
	t.Helper()
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestComposerPages(t *testing.T) {
	h := newHarness(t, Deps{})
	c := browser(t)

	body := page(t, c.Get(h.srv.URL + "/"))
	assert.Contains(t, body, "Place Your Order")
	assert.Contains(t, body, "No items yet.")

	body = page(t, c.PostForm(h.srv.URL+"/items", url.Values{"item_name": {"Samosa"}, "item_price": {"20"}}))
	assert.Contains(t, body, "Samosa")
	assert.Contains(t, body, "₹20.00")

	body = page(t, c.PostForm(h.srv.URL+"/items", url.Values{"item_name": {"Chai"}, "item_price": {"abc"}}))
	assert.Contains(t, body, services.MsgInvalidItem)
	assert.NotContains(t, body, "Chai")

	body = page(t, c.PostForm(h.srv.URL+"/orders", url.Values{"student_name": {"Asha"}, "student_id": {"S-42"}}))
	assert.Contains(t, body, "Order Confirmed")
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Equal(t, 1, h.orders.Len())

	body = page(t, c.PostForm(h.srv.URL+"/new-order", nil))
	assert.Contains(t, body, "Place Your Order")
}

func TestComposerAPI(t *testing.T) {
	h := newHarness(t, Deps{})
	c := browser(t)
	base := h.srv.URL + "/api/composer"

	resp, env := call(t, c, http.MethodPost, base+"/items", map[string]any{"name": "Samosa", "price": 20}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st services.ComposerState
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Len(t, st.Items, 1)
	assert.Equal(t, 20.0, st.Total)

	resp, env = call(t, c, http.MethodPost, base+"/items", map[string]any{"name": "Chai", "price": -1}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, services.MsgInvalidItem, env.Message)

	resp, _ = call(t, c, http.MethodDelete, base+"/items/5", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = call(t, c, http.MethodPost, base+"/orders", map[string]any{"student_name": "", "student_id": "S-42"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, services.MsgMissingIdentity, env.Message)

	resp, env = call(t, c, http.MethodPost, base+"/orders", map[string]any{"student_name": "Asha", "student_id": "S-42"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	st = services.ComposerState{}
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, services.ViewConfirmation, st.View)
	require.NotNil(t, st.Confirmation)
	assert.Equal(t, "ORD-TEST-1", st.Confirmation.QRCode)
	assert.Equal(t, "2026-10-16", st.Confirmation.OrderDate)

	saved, err := h.orders.FindOne(context.Background(), datastore.Filter{"qr_code": "ORD-TEST-1"})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, models.StatusPending, saved.Status)

	resp, env = call(t, c, http.MethodPost, base+"/items", map[string]any{"name": "Chai", "price": 10}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, services.MsgWrongView, env.Message)

	resp, env = call(t, c, http.MethodDelete, base, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st = services.ComposerState{}
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, services.ViewCompose, st.View)
	assert.Empty(t, st.Items)
}

func TestComposerAPI_InFlightRequestRejected(t *testing.T) {
	h := newHarness(t, Deps{})
	c := &http.Client{}

	resp, _ := call(t, c, http.MethodGet, h.srv.URL+"/api/composer", nil, nil)
	id := resp.Header.Get(session.HeaderName)
	require.NotEmpty(t, id)

	ok, err := h.sessions.SetNX(context.Background(), "canteen:session:"+id+":composer:lock", true, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	hdr := http.Header{session.HeaderName: {id}}
	resp, env := call(t, c, http.MethodPost, h.srv.URL+"/api/composer/items", map[string]any{"name": "Samosa", "price": 20}, hdr)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Request already in progress", env.Message)

	// Reads do not take the marker.
	resp, _ = call(t, c, http.MethodGet, h.srv.URL+"/api/composer", nil, hdr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScannerPages(t *testing.T) {
	h := newHarness(t, Deps{})
	h.seed(t, "ORD-SEED-1")
	c := browser(t)

	body := page(t, c.PostForm(h.srv.URL+"/scanner/scan", url.Values{"qr_code": {"ORD-NOPE"}}))
	assert.Contains(t, body, services.MsgNotFound)

	body = page(t, c.PostForm(h.srv.URL+"/scanner/scan", url.Values{"qr_code": {"ORD-SEED-1"}}))
	assert.Contains(t, body, "Ready to Fulfill")
	assert.Contains(t, body, "Asha")

	body = page(t, c.PostForm(h.srv.URL+"/scanner/fulfill", url.Values{"staff_name": {"Ravi"}}))
	assert.Contains(t, body, services.MsgFulfilled)
	assert.Contains(t, body, "Fulfilled by: Ravi")

	body = page(t, c.PostForm(h.srv.URL+"/scanner/back", nil))
	assert.Contains(t, body, "Look Up Order")

	body = page(t, c.PostForm(h.srv.URL+"/scanner/scan", url.Values{"qr_code": {"ORD-SEED-1"}}))
	assert.Contains(t, body, services.MsgAlreadyFulfilled)
	assert.NotContains(t, body, "Fulfill Order</button>")
}

func TestScannerAPI_StaffToken(t *testing.T) {
	iss, err := auth.NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	tok, err := iss.Issue("Ravi")
	require.NoError(t, err)

	h := newHarness(t, Deps{Issuer: iss})
	seeded := h.seed(t, "ORD-SEED-1")
	c := browser(t)
	base := h.srv.URL + "/api/scanner"

	resp, _ := call(t, c, http.MethodPost, base+"/scan", map[string]string{"code": "ORD-SEED-1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	staff := http.Header{"Authorization": {"Bearer " + tok}}

	resp, env := call(t, c, http.MethodPost, base+"/scan", map[string]string{"code": "ORD-NOPE"}, staff)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, services.MsgNotFound, env.Message)

	resp, env = call(t, c, http.MethodPost, base+"/scan", map[string]string{"code": "ORD-SEED-1"}, staff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		View    services.ScannerView `json:"view"`
		Details struct {
			Heading string
			Actions []string
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, services.ViewDetails, out.View)
	assert.Equal(t, "Ready to Fulfill", out.Details.Heading)
	assert.Equal(t, []string{"fulfill", "scan_another"}, out.Details.Actions)

	// The token's name wins over an empty typed name.
	resp, env = call(t, c, http.MethodPost, base+"/fulfill", map[string]string{"staff_name": ""}, staff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st services.ScannerState
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, services.MsgFulfilled, st.Notice)

	got, err := h.orders.FindOne(context.Background(), datastore.Filter{"id": seeded.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, got.Status)
	require.NotNil(t, got.FulfilledBy)
	assert.Equal(t, "Ravi", *got.FulfilledBy)

	resp, env = call(t, c, http.MethodPost, base+"/fulfill", map[string]string{"staff_name": "Ravi"}, staff)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, services.MsgAlreadyFulfilled, env.Message)

	resp, env = call(t, c, http.MethodPost, base+"/reset", nil, staff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st = services.ScannerState{}
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, services.ViewScan, st.View)
	assert.Nil(t, st.CurrentOrder)
}

func TestConfigEndpoint(t *testing.T) {
	h := newHarness(t, Deps{})
	resp, env := call(t, http.DefaultClient, http.MethodGet, h.srv.URL+"/api/config", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "backend configuration is missing", env.Message)

	h = newHarness(t, Deps{Backend: clientconfig.Config{URL: "https://db.example", AnonKey: "anon"}})
	resp, err := http.Get(h.srv.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"url":"https://db.example","anonKey":"anon"}`, string(b))
}

func TestQRImage(t *testing.T) {
	h := newHarness(t, Deps{QRSize: 128})
	resp, err := http.Get(h.srv.URL + "/api/orders/ORD-1-abc/qr.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	b, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestGraphQLEndpoint(t *testing.T) {
	h := newHarness(t, Deps{})
	h.seed(t, "ORD-SEED-1")

	q := map[string]any{"query": `{ order(qrCode: "ORD-SEED-1") { studentName status total } }`}
	b, _ := json.Marshal(q)
	resp, err := http.Post(h.srv.URL+"/graphql", "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Order *struct {
				StudentName string `json:"studentName"`
				Status      string `json:"status"`
				Total       string `json:"total"`
			} `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Data.Order)
	assert.Equal(t, "Asha", out.Data.Order.StudentName)
	assert.Equal(t, "pending", out.Data.Order.Status)
	assert.Equal(t, "₹30.00", out.Data.Order.Total)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, Deps{})

	resp, _ := call(t, http.DefaultClient, http.MethodGet, h.srv.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "canteen_")
}

func TestFeedPushesPlacedOrders(t *testing.T) {
	iss, err := auth.NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	tok, _ := iss.Issue("Ravi")

	h := newHarness(t, Deps{Issuer: iss})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() { cancel(); h.app.Drain() })
	h.app.Start(ctx)

	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws/orders"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?access_token="+url.QueryEscape(tok), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.app.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	c := browser(t)
	call(t, c, http.MethodPost, h.srv.URL+"/api/composer/items", map[string]any{"name": "Samosa", "price": 20}, nil)
	resp2, _ := call(t, c, http.MethodPost, h.srv.URL+"/api/composer/orders", map[string]any{"student_name": "Asha", "student_id": "S-42"}, nil)
	require.Equal(t, http.StatusCreated, resp2.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Event string       `json:"event"`
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "order.placed", ev.Event)
	assert.Equal(t, "ORD-TEST-1", ev.Order.QRCode)
}

func TestRoutesAndPrintRoutes(t *testing.T) {
	a, err := New(Deps{})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, r := range a.Routes() {
		names[r.Name] = true
	}
	for _, want := range []string{
		"composer.show", "composer.add", "composer.remove", "composer.place", "composer.reset",
		"scanner.show", "scanner.scan", "scanner.fulfill", "scanner.reset",
		"config.show", "orders.qr", "graphql", "ws.orders", "health", "metrics",
	} {
		assert.True(t, names[want], want)
	}

	var out bytes.Buffer
	require.NoError(t, PrintRoutes(&out, a.Routes()))
	assert.Regexp(t, `POST\s+/scanner/fulfill\s+scanner.fulfill`, out.String())
}

func TestScanOrder(t *testing.T) {
	store := datastore.NewMemory()
	_, err := store.Create(context.Background(), &models.Order{
		StudentName: "Asha", StudentID: "S-42",
		Items:       []models.OrderItem{{Name: "Samosa", Price: 20}},
		TotalAmount: 20, QRCode: "ORD-SEED-1", OrderDate: "2026-10-16", Status: models.StatusPending,
	})
	require.NoError(t, err)
	s := services.NewScanner(store, services.WithScannerClock(func() time.Time { return fixedNow }))

	var out bytes.Buffer
	require.NoError(t, ScanOrder(context.Background(), s, time.UTC, "ORD-SEED-1", "", &out))
	assert.Contains(t, out.String(), "Ready to Fulfill")
	assert.Contains(t, out.String(), "Asha (S-42)")

	out.Reset()
	require.NoError(t, ScanOrder(context.Background(), s, time.UTC, "ORD-SEED-1", "Ravi", &out))
	assert.Contains(t, out.String(), services.MsgFulfilled)

	out.Reset()
	err = ScanOrder(context.Background(), s, time.UTC, "ORD-SEED-1", "Ravi", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrAlreadyFulfilled))
	assert.Equal(t, services.MsgAlreadyFulfilled, err.Error())
	assert.Contains(t, out.String(), "Fulfilled by  Ravi")

	err = ScanOrder(context.Background(), s, time.UTC, "ORD-NOPE", "", &out)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, services.MsgNotFound, err.Error())
}

func TestRemoteOrders_ConfigError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := RemoteOrders(context.Background(), srv.URL)
	var ce *clientconfig.ConfigError
	assert.ErrorAs(t, err, &ce)
}
