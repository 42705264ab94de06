package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/app/views"
	"github.com/shashiranjanraj/canteen/pkg/ctx"
)

const composerState = "composer"

type ComposerController struct {
	composer *services.Composer
}

func NewComposerController(composer *services.Composer) *ComposerController {
	return &ComposerController{composer: composer}
}

func (cc *ComposerController) run(c *ctx.Context, mutate bool, fn func(st *services.ComposerState) error) (*services.ComposerState, error) {
	return stateful(c, composerState, services.NewComposerState, mutate, fn)
}

func noop[S any](*S) error { return nil }

// parsePrice treats anything unparsable as an invalid price so AddItem
// reports the usual message.
func parsePrice(raw string) float64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return p
}

// ── HTML ────────────────────────────────────────────────────────────────────

// Show GET /
func (cc *ComposerController) Show(c *ctx.Context) {
	st, err := cc.run(c, false, noop[services.ComposerState])
	if err != nil {
		redirectAfter(c, "/", err)
		return
	}

	c.Page(func(w io.Writer) error {
		return views.Render(w, "composer", views.Composer(st))
	})
}

// Add POST /items
func (cc *ComposerController) Add(c *ctx.Context) {
	name, price := c.PostForm("item_name"), parsePrice(c.PostForm("item_price"))
	_, err := cc.run(c, true, func(st *services.ComposerState) error {
		return cc.composer.AddItem(st, name, price)
	})
	redirectAfter(c, "/", err)
}

// Remove POST /items/{index}/remove
func (cc *ComposerController) Remove(c *ctx.Context) {
	idx, convErr := strconv.Atoi(c.Param("index"))
	if convErr != nil {
		idx = -1
	}
	_, err := cc.run(c, true, func(st *services.ComposerState) error {
		return cc.composer.RemoveItem(st, idx)
	})
	redirectAfter(c, "/", err)
}

// Place POST /orders
func (cc *ComposerController) Place(c *ctx.Context) {
	name, id := c.PostForm("student_name"), c.PostForm("student_id")
	_, err := cc.run(c, true, func(st *services.ComposerState) error {
		return cc.composer.PlaceOrder(c.Context(), st, name, id)
	})
	redirectAfter(c, "/", err)
}

// Reset POST /new-order
func (cc *ComposerController) Reset(c *ctx.Context) {
	_, err := cc.run(c, true, func(st *services.ComposerState) error {
		cc.composer.ResetForm(st)
		return nil
	})
	redirectAfter(c, "/", err)
}

// ── JSON ────────────────────────────────────────────────────────────────────

type AddItemInput struct {
	Name  string  `json:"name"  validate:"nullable,max=100"`
	Price float64 `json:"price"`
}

type PlaceOrderInput struct {
	StudentName string `json:"student_name" validate:"nullable,max=100"`
	StudentID   string `json:"student_id"   validate:"nullable,max=50"`
}

// APIShow GET /api/composer
func (cc *ComposerController) APIShow(c *ctx.Context) {
	st, err := cc.run(c, false, noop[services.ComposerState])
	reply(c, st, err)
}

// APIAdd POST /api/composer/items
func (cc *ComposerController) APIAdd(c *ctx.Context) {
	var in AddItemInput
	if !c.BindJSON(&in) {
		return
	}
	st, err := cc.run(c, true, func(st *services.ComposerState) error {
		return cc.composer.AddItem(st, in.Name, in.Price)
	})
	reply(c, st, err)
}

// APIRemove DELETE /api/composer/items/{index}
func (cc *ComposerController) APIRemove(c *ctx.Context) {
	idx, convErr := strconv.Atoi(c.Param("index"))
	if convErr != nil {
		c.Error(http.StatusBadRequest, "item index must be an integer")
		return
	}
	st, err := cc.run(c, true, func(st *services.ComposerState) error {
		return cc.composer.RemoveItem(st, idx)
	})
	reply(c, st, err)
}

// APIPlace POST /api/composer/orders
func (cc *ComposerController) APIPlace(c *ctx.Context) {
	var in PlaceOrderInput
	if !c.BindJSON(&in) {
		return
	}
	st, err := cc.run(c, true, func(st *services.ComposerState) error {
		return cc.composer.PlaceOrder(c.Context(), st, in.StudentName, in.StudentID)
	})
	if err == nil {
		c.Created(st)
		return
	}
	reply(c, st, err)
}

// APIReset DELETE /api/composer
func (cc *ComposerController) APIReset(c *ctx.Context) {
	st, err := cc.run(c, true, func(st *services.ComposerState) error {
		cc.composer.ResetForm(st)
		return nil
	})
	reply(c, st, err)
}
