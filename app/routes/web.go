package routes

import (
	"github.com/shashiranjanraj/canteen/app/controllers"
	"github.com/shashiranjanraj/canteen/pkg/ctx"
	"github.com/shashiranjanraj/canteen/pkg/router"
)

func RegisterWeb(r *router.Router, h Handlers) {
	r.Get("/", "composer.show", ctx.Wrap(h.Composer.Show))
	r.Post("/items", "composer.add", ctx.Wrap(h.Composer.Add))
	r.Post("/items/{index}/remove", "composer.remove", ctx.Wrap(h.Composer.Remove))
	r.Post("/orders", "composer.place", ctx.Wrap(h.Composer.Place))
	r.Post("/new-order", "composer.reset", ctx.Wrap(h.Composer.Reset))

	scanner := r.Group("/scanner")
	scanner.Get("/", "scanner.show", ctx.Wrap(h.Scanner.Show))
	scanner.Post("/scan", "scanner.scan", ctx.Wrap(h.Scanner.Scan))
	scanner.Post("/fulfill", "scanner.fulfill", ctx.Wrap(h.Scanner.Fulfill))
	scanner.Post("/back", "scanner.reset", ctx.Wrap(h.Scanner.Back))

	if h.Storage != nil {
		r.Handle("/storage/*", "storage", h.Storage)
	}
	r.Get("/healthz", "health", ctx.Wrap(controllers.Health))
}
