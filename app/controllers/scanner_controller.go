package controllers

import (
	"io"
	"time"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/app/views"
	"github.com/shashiranjanraj/canteen/pkg/ctx"
	"github.com/shashiranjanraj/canteen/pkg/middleware"
)

const scannerState = "scanner"

type ScannerController struct {
	scanner *services.Scanner
	loc     *time.Location
}

func NewScannerController(scanner *services.Scanner, loc *time.Location) *ScannerController {
	if loc == nil {
		loc = time.UTC
	}
	return &ScannerController{scanner: scanner, loc: loc}
}

func (sc *ScannerController) run(c *ctx.Context, mutate bool, fn func(st *services.ScannerState) error) (*services.ScannerState, error) {
	return stateful(c, scannerState, services.NewScannerState, mutate, fn)
}

// staffName prefers the name carried by a verified staff token.
func staffName(c *ctx.Context, typed string) string {
	if s := middleware.StaffFromCtx(c.Context()); s != "" {
		return s
	}
	return typed
}

// ── HTML ────────────────────────────────────────────────────────────────────

// Show GET /scanner
func (sc *ScannerController) Show(c *ctx.Context) {
	st, err := sc.run(c, false, noop[services.ScannerState])
	if err != nil {
		redirectAfter(c, "/scanner", err)
		return
	}

	c.Page(func(w io.Writer) error {
		return views.Render(w, "scanner", views.Scanner(st, sc.loc))
	})
}

// Scan POST /scanner/scan
func (sc *ScannerController) Scan(c *ctx.Context) {
	code := c.PostForm("qr_code")
	_, err := sc.run(c, true, func(st *services.ScannerState) error {
		return sc.scanner.Scan(c.Context(), st, code)
	})
	redirectAfter(c, "/scanner", err)
}

// Fulfill POST /scanner/fulfill
func (sc *ScannerController) Fulfill(c *ctx.Context) {
	name := staffName(c, c.PostForm("staff_name"))
	_, err := sc.run(c, true, func(st *services.ScannerState) error {
		return sc.scanner.Fulfill(c.Context(), st, name)
	})
	redirectAfter(c, "/scanner", err)
}

// Back POST /scanner/back
func (sc *ScannerController) Back(c *ctx.Context) {
	_, err := sc.run(c, true, func(st *services.ScannerState) error {
		sc.scanner.ResetScanner(st)
		return nil
	})
	redirectAfter(c, "/scanner", err)
}

// ── JSON ────────────────────────────────────────────────────────────────────

type ScanInput struct {
	Code string `json:"code" validate:"nullable,max=128,token"`
}

type FulfillInput struct {
	StaffName string `json:"staff_name" validate:"nullable,max=100"`
}

// scannerReply adds the rendered details model so API clients can show the
// same status block and actions as the page.
type scannerReply struct {
	*services.ScannerState
	Details *views.DetailsModel `json:"details,omitempty"`
}

func (sc *ScannerController) reply(c *ctx.Context, st *services.ScannerState, err error) {
	if st == nil {
		reply[scannerReply](c, nil, err)
		return
	}
	out := &scannerReply{ScannerState: st}
	if st.View == services.ViewDetails && st.CurrentOrder != nil {
		d := views.Details(st.CurrentOrder, sc.loc)
		out.Details = &d
	}
	reply(c, out, err)
}

// APIShow GET /api/scanner
func (sc *ScannerController) APIShow(c *ctx.Context) {
	st, err := sc.run(c, false, noop[services.ScannerState])
	sc.reply(c, st, err)
}

// APIScan POST /api/scanner/scan
func (sc *ScannerController) APIScan(c *ctx.Context) {
	var in ScanInput
	if !c.BindJSON(&in) {
		return
	}
	st, err := sc.run(c, true, func(st *services.ScannerState) error {
		return sc.scanner.Scan(c.Context(), st, in.Code)
	})
	sc.reply(c, st, err)
}

// APIFulfill POST /api/scanner/fulfill
func (sc *ScannerController) APIFulfill(c *ctx.Context) {
	var in FulfillInput
	if !c.BindJSON(&in) {
		return
	}
	name := staffName(c, in.StaffName)
	st, err := sc.run(c, true, func(st *services.ScannerState) error {
		return sc.scanner.Fulfill(c.Context(), st, name)
	})
	sc.reply(c, st, err)
}

// APIReset POST /api/scanner/reset
func (sc *ScannerController) APIReset(c *ctx.Context) {
	st, err := sc.run(c, true, func(st *services.ScannerState) error {
		sc.scanner.ResetScanner(st)
		return nil
	})
	sc.reply(c, st, err)
}
