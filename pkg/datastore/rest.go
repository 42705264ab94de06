package datastore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/http"
)

// REST talks to a PostgREST-compatible hosted backend (Supabase and
// friends). Every request carries the anon key both as "apikey" and as a
// bearer token.
type REST struct {
	base    string
	anonKey string
	table   string
	retries int
}

// NewREST builds a client for baseURL, e.g. https://xyz.supabase.co.
func NewREST(baseURL, anonKey string) *REST {
	return &REST{
		base:    strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		table:   "orders",
		retries: 2,
	}
}

func (r *REST) endpoint() string { return r.base + "/rest/v1/" + r.table }

func (r *REST) request(ctx context.Context, req *http.Request) *http.Request {
	return req.
		Header("apikey", r.anonKey).
		Bearer(r.anonKey).
		WithContext(ctx)
}

// insertRow is what gets POSTed; id and created_at are left to the backend.
type insertRow struct {
	StudentName string             `json:"student_name"`
	StudentID   string             `json:"student_id"`
	Items       []models.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	QRCode      string             `json:"qr_code"`
	OrderDate   string             `json:"order_date"`
	Status      models.Status      `json:"status"`
}

func (r *REST) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	row := insertRow{
		StudentName: o.StudentName,
		StudentID:   o.StudentID,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		QRCode:      o.QRCode,
		OrderDate:   o.OrderDate,
		Status:      o.Status,
	}

	resp, err := r.request(ctx, http.Post(r.endpoint())).
		Header("Prefer", "return=representation").
		Body([]insertRow{row}).
		Send()
	if err != nil {
		return nil, backendErr("create", err)
	}
	if err := restError(resp); err != nil {
		return nil, backendErr("create", err)
	}

	var rows []models.Order
	if err := resp.JSON(&rows); err != nil {
		return nil, backendErr("create", err)
	}
	if len(rows) == 0 {
		return nil, backendErr("create", errors.New("backend returned no row"))
	}
	return &rows[0], nil
}

func (r *REST) FindOne(ctx context.Context, f Filter) (*models.Order, error) {
	f, err := f.Validate()
	if err != nil {
		return nil, err
	}

	req := r.request(ctx, http.Get(r.endpoint())).
		Retry(r.retries, 200*time.Millisecond).
		Query("select", "*").
		Query("limit", "1")
	for _, k := range f.Keys() {
		req.Query(k, "eq."+f[k].(string))
	}

	resp, err := req.Send()
	if err != nil {
		return nil, backendErr("find", err)
	}
	if err := restError(resp); err != nil {
		return nil, backendErr("find", err)
	}

	var rows []models.Order
	if err := resp.JSON(&rows); err != nil {
		return nil, backendErr("find", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Update issues one PATCH filtered by id and the guard. PostgREST answers
// an empty representation when nothing matched, so a follow-up lookup by id
// tells a missing order apart from a lost race.
func (r *REST) Update(ctx context.Context, id string, p Patch, guard Filter) error {
	p, err := p.Validate()
	if err != nil {
		return err
	}
	guard, err = guard.Validate()
	if err != nil {
		return err
	}

	req := r.request(ctx, http.Patch(r.endpoint())).
		Header("Prefer", "return=representation").
		Query("id", "eq."+id).
		Body(map[string]any(p))
	for _, k := range guard.Keys() {
		req.Query(k, "eq."+guard[k].(string))
	}

	resp, err := req.Send()
	if err != nil {
		return backendErr("update", err)
	}
	if err := restError(resp); err != nil {
		return backendErr("update", err)
	}

	var rows []models.Order
	if err := resp.JSON(&rows); err != nil {
		return backendErr("update", err)
	}
	if len(rows) > 0 {
		return nil
	}

	existing, err := r.FindOne(ctx, Filter{"id": id})
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return ErrConflict
}

// restError turns a non-2xx PostgREST reply into an error carrying the
// backend's own message when it sent one.
func restError(resp *http.Response) error {
	if resp.OK() {
		return nil
	}
	var body struct {
		Message string `json:"message"`
		Hint    string `json:"hint"`
	}
	if resp.JSON(&body) == nil && body.Message != "" {
		return errors.New(body.Message)
	}
	return resp.Throw()
}
