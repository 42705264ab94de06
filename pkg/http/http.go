// Package http is the outbound client behind the REST Data Client, the
// config loader and webhook notifications. Requests are built fluently,
// carry the caller's request id, and retry transient failures:
//
//	resp, err := http.Get(base + "/rest/v1/orders").
//	    Header("apikey", key).
//	    Bearer(key).
//	    Query("qr_code", "eq."+code).
//	    WithContext(ctx).
//	    Send()
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/reqid"
)

const (
	maxBody       = 4 << 20
	maxRetryAfter = 10 * time.Second
)

// Client is shared by every outbound request.
var Client = &gohttp.Client{
	Transport: &gohttp.Transport{
		Proxy:               gohttp.ProxyFromEnvironment,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

type Request struct {
	ctx     context.Context
	method  string
	url     string
	query   url.Values
	header  gohttp.Header
	body    any
	timeout time.Duration
	tries   int
	backoff time.Duration
}

func Get(target string) *Request   { return newRequest(gohttp.MethodGet, target) }
func Post(target string) *Request  { return newRequest(gohttp.MethodPost, target) }
func Patch(target string) *Request { return newRequest(gohttp.MethodPatch, target) }

func newRequest(method, target string) *Request {
	h := gohttp.Header{}
	h.Set("Accept", "application/json")
	return &Request{
		ctx:     context.Background(),
		method:  method,
		url:     target,
		query:   url.Values{},
		header:  h,
		timeout: 15 * time.Second,
		tries:   1,
		backoff: 300 * time.Millisecond,
	}
}

func (r *Request) Header(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// Query adds a query parameter. Repeated keys are kept, which PostgREST
// filters rely on.
func (r *Request) Query(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

// Body sets the payload. Strings and byte slices go out as they are,
// anything else as JSON.
func (r *Request) Body(v any) *Request {
	r.body = v
	return r
}

// Timeout bounds each attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry allows n attempts in total with a backoff that doubles after each.
// Transport errors, 429 and 5xx are retried. A Retry-After header replaces
// the backoff, capped at ten seconds.
func (r *Request) Retry(n int, backoff time.Duration) *Request {
	r.tries = max(n, 1)
	r.backoff = backoff
	return r
}

func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx != nil {
		r.ctx = ctx
	}
	return r
}

// Send runs the request. Any completed response is returned without error,
// whatever its status; see Response.Throw.
func (r *Request) Send() (*Response, error) {
	payload, contentType, err := r.encode()
	if err != nil {
		return nil, err
	}

	wait := r.backoff
	for attempt := 1; ; attempt++ {
		resp, err := r.do(payload, contentType)
		if (err == nil && !transient(resp.StatusCode)) || attempt == r.tries {
			if err != nil {
				return nil, fmt.Errorf("http: %s %s: %d attempts: %w", r.method, r.url, attempt, err)
			}
			return resp, nil
		}

		pause := wait
		if resp != nil {
			if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				pause = ra
			}
		}
		logger.WithCtx(r.ctx).Warn("http: retrying",
			"method", r.method, "url", r.url, "attempt", attempt, "pause", pause.String(), "error", err)

		select {
		case <-time.After(pause):
		case <-r.ctx.Done():
			return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, r.ctx.Err())
		}
		wait *= 2
	}
}

func (r *Request) do(payload []byte, contentType string) (*Response, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	target := r.url
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := gohttp.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header = r.header.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if id := reqid.FromCtx(r.ctx); id != "" {
		req.Header.Set(reqid.Header, id)
	}

	resp, err := Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Raw: raw}, nil
}

func (r *Request) encode() ([]byte, string, error) {
	switch v := r.body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), "text/plain; charset=utf-8", nil
	case []byte:
		return v, "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: encode body: %w", err)
		}
		return b, "application/json", nil
	}
}

func transient(status int) bool {
	return status == gohttp.StatusTooManyRequests || status >= 500
}

// retryAfter reads the delta-seconds form of Retry-After.
func retryAfter(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter), true
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     gohttp.Header
	Raw        []byte
}

func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (r *Response) JSON(dest any) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// StatusError is a non-2xx response, with the start of its body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http: status %d", e.StatusCode)
	}
	return fmt.Sprintf("http: status %d: %s", e.StatusCode, e.Body)
}

// Throw turns a non-2xx response into a *StatusError.
func (r *Response) Throw() error {
	if r.OK() {
		return nil
	}
	body := r.Raw
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{StatusCode: r.StatusCode, Body: string(body)}
}
