package controllers

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/canteen/pkg/clientconfig"
	"github.com/shashiranjanraj/canteen/pkg/ctx"
	"github.com/shashiranjanraj/canteen/pkg/qr"
)

// ConfigController serves the hosted backend parameters to clients that
// talk to the backend directly, such as `canteen scan`.
type ConfigController struct {
	backend clientconfig.Config
}

func NewConfigController(backend clientconfig.Config) *ConfigController {
	return &ConfigController{backend: backend}
}

// Show GET /api/config
func (cc *ConfigController) Show(c *ctx.Context) {
	if cc.backend.URL == "" || cc.backend.AnonKey == "" {
		c.Error(http.StatusServiceUnavailable, "backend configuration is missing")
		return
	}
	c.JSON(http.StatusOK, cc.backend)
}

// OrdersController renders QR images for tokens.
type OrdersController struct {
	renderer qr.Renderer
}

func NewOrdersController(renderer qr.Renderer) *OrdersController {
	return &OrdersController{renderer: renderer}
}

// QR GET /api/orders/{qr}/qr.png
func (oc *OrdersController) QR(c *ctx.Context) {
	code := strings.TrimSpace(c.Param("qr"))
	if code == "" || len(code) > 128 {
		c.NotFound()
		return
	}
	png, err := oc.renderer.PNG(code)
	if err != nil {
		c.Error(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.SetHeader("Cache-Control", "public, max-age=86400")
	c.Blob(http.StatusOK, "image/png", png)
}

// Health GET /healthz
func Health(c *ctx.Context) {
	c.Success(map[string]string{"status": "ok"})
}
