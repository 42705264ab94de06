package routes

import (
	"github.com/shashiranjanraj/canteen/pkg/ctx"
	"github.com/shashiranjanraj/canteen/pkg/router"
)

func RegisterAPI(r *router.Router, h Handlers) {
	var staff []router.Middleware
	if h.StaffAuth != nil {
		staff = append(staff, h.StaffAuth)
	}

	api := r.Group("/api")
	api.Get("/config", "config.show", ctx.Wrap(h.Config.Show))
	api.Get("/orders/{qr}/qr.png", "orders.qr", ctx.Wrap(h.Orders.QR))

	composer := api.Group("/composer")
	composer.Get("/", "composer.api.show", ctx.Wrap(h.Composer.APIShow))
	composer.Delete("/", "composer.api.reset", ctx.Wrap(h.Composer.APIReset))
	composer.Post("/items", "composer.api.add", ctx.Wrap(h.Composer.APIAdd))
	composer.Delete("/items/{index}", "composer.api.remove", ctx.Wrap(h.Composer.APIRemove))
	composer.Post("/orders", "composer.api.place", ctx.Wrap(h.Composer.APIPlace))

	scanner := api.Group("/scanner", staff...)
	scanner.Get("/", "scanner.api.show", ctx.Wrap(h.Scanner.APIShow))
	scanner.Post("/scan", "scanner.api.scan", ctx.Wrap(h.Scanner.APIScan))
	scanner.Post("/fulfill", "scanner.api.fulfill", ctx.Wrap(h.Scanner.APIFulfill))
	scanner.Post("/reset", "scanner.api.reset", ctx.Wrap(h.Scanner.APIReset))

	r.Post("/graphql", "graphql", ctx.Wrap(h.GraphQL.Query))
	if h.Feed != nil {
		r.Handle("/ws/orders", "ws.orders", h.Feed, staff...)
	}
}
