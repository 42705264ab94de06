// Package routes maps URLs to controllers. RegisterWeb holds the HTML
// pages, RegisterAPI their JSON mirror and the supporting endpoints.
package routes

import (
	"net/http"

	"github.com/shashiranjanraj/canteen/app/controllers"
	"github.com/shashiranjanraj/canteen/pkg/router"
)

// Handlers is everything the route table points at.
type Handlers struct {
	Composer *controllers.ComposerController
	Scanner  *controllers.ScannerController
	Config   *controllers.ConfigController
	Orders   *controllers.OrdersController
	GraphQL  *controllers.GraphQLController

	// Feed serves the staff WebSocket feed.
	Feed http.Handler
	// Storage serves archived QR images when the local disk is in use.
	Storage http.Handler

	// StaffAuth guards the scanner JSON API and the feed.
	StaffAuth router.Middleware
}

// Register mounts the whole table.
func Register(r *router.Router, h Handlers) {
	RegisterWeb(r, h)
	RegisterAPI(r, h)
}
