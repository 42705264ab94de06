// Package app is the composition root of the canteen. It turns a set of
// already-opened dependencies into the HTTP handler, the background workers
// and the CLI operations.
//
// Boot builds those dependencies from configuration:
//
//	a, err := app.Boot(ctx)
//	if err != nil { ... }
//	defer a.Close()
//	a.Start(ctx)
//	http.ListenAndServe(":8080", a.Handler())
//
// Tests skip Boot and pass their own Deps to New.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/canteen/app/controllers"
	"github.com/shashiranjanraj/canteen/app/routes"
	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/pkg/auth"
	"github.com/shashiranjanraj/canteen/pkg/cache"
	"github.com/shashiranjanraj/canteen/pkg/clientconfig"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/event"
	"github.com/shashiranjanraj/canteen/pkg/graphql"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
	"github.com/shashiranjanraj/canteen/pkg/middleware"
	"github.com/shashiranjanraj/canteen/pkg/notification"
	"github.com/shashiranjanraj/canteen/pkg/qr"
	"github.com/shashiranjanraj/canteen/pkg/queue"
	"github.com/shashiranjanraj/canteen/pkg/reqid"
	"github.com/shashiranjanraj/canteen/pkg/router"
	"github.com/shashiranjanraj/canteen/pkg/session"
	"github.com/shashiranjanraj/canteen/pkg/ws"
	"gorm.io/gorm"
)

// Deps are the opened resources an App runs on. Zero fields fall back to
// in-process defaults.
type Deps struct {
	Orders  datastore.Orders
	Backend clientconfig.Config

	// Sessions holds composer and scanner state between requests.
	Sessions cache.Store
	Queue    *queue.Manager
	Notifier *notification.Sender
	Archive  services.Archiver
	// Storage serves archived QR images, when they live on the local disk.
	Storage http.Handler
	// Issuer enables bearer-token auth on the scanner API and the feed.
	Issuer *auth.Issuer
	// DB is set for the sql backend; migrations and seeding need it.
	DB *gorm.DB

	Location  *time.Location
	Now       func() time.Time
	Tokens    func(time.Time) string
	QRSize    int
	RateLimit int
	Workers   int
}

// App is a wired canteen.
type App struct {
	deps Deps

	bus      *event.Bus
	hub      *ws.Hub
	composer *services.Composer
	scanner  *services.Scanner
	renderer qr.Renderer
	router   *router.Router
	handler  http.Handler

	startOnce sync.Once
	mu        sync.Mutex
	closers   []func() error
}

// New wires d into an App. Nothing runs until Start.
func New(d Deps) (*App, error) {
	d = withDefaults(d)

	a := &App{
		deps:     d,
		bus:      event.NewBus(),
		hub:      ws.NewHub(),
		renderer: qr.NewPNGRenderer(d.QRSize),
	}

	opts := []services.ComposerOption{
		services.WithComposerLocation(d.Location),
		services.WithComposerClock(d.Now),
		services.WithRenderer(a.renderer),
		services.WithComposerEvents(a.bus),
	}
	if d.Tokens != nil {
		opts = append(opts, services.WithTokens(d.Tokens))
	}
	if d.Archive != nil {
		opts = append(opts, services.WithArchiver(d.Archive))
	}
	a.composer = services.NewComposer(d.Orders, opts...)
	a.scanner = services.NewScanner(d.Orders,
		services.WithScannerLocation(d.Location),
		services.WithScannerClock(d.Now),
		services.WithScannerEvents(a.bus),
	)

	schema, err := graphql.NewSchema(d.Orders, d.Location, d.Now)
	if err != nil {
		return nil, fmt.Errorf("app: graphql schema: %w", err)
	}

	a.router = router.New()
	a.mountMiddleware()
	a.router.Handle("/metrics", "metrics", metrics.Handler())
	routes.Register(a.router, routes.Handlers{
		Composer:  controllers.NewComposerController(a.composer),
		Scanner:   controllers.NewScannerController(a.scanner, d.Location),
		Config:    controllers.NewConfigController(d.Backend),
		Orders:    controllers.NewOrdersController(a.renderer),
		GraphQL:   controllers.NewGraphQLController(schema),
		Feed:      a.hub,
		Storage:   d.Storage,
		StaffAuth: middleware.StaffAuth(d.Issuer),
	})
	a.handler = a.router.Handler()

	return a, nil
}

func withDefaults(d Deps) Deps {
	if d.Orders == nil {
		d.Orders = datastore.NewMemory()
	}
	if d.Sessions == nil {
		d.Sessions = cache.NewMemory()
	}
	if d.Queue == nil {
		d.Queue = queue.New(queue.NewMemoryDriver())
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewSender("", "")
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.QRSize <= 0 {
		d.QRSize = 256
	}
	if d.RateLimit <= 0 {
		d.RateLimit = 200
	}
	if d.Workers <= 0 {
		d.Workers = 2
	}
	return d
}

// mountMiddleware installs the global stack, outermost first: metrics see
// the total latency, recovery catches everything below it, and the request
// id exists before anything logs.
func (a *App) mountMiddleware() {
	sessions := session.NewManager(a.deps.Sessions)

	a.router.Use(metrics.Middleware())
	a.router.Use(middleware.Recovery)
	a.router.Use(reqid.Middleware())
	a.router.Use(middleware.Logger)
	a.router.Use(sessions.Middleware())
	a.router.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	a.router.Use(middleware.RateLimit(middleware.NewLimiter(a.deps.RateLimit, time.Minute)))
}

// Handler is the full HTTP surface.
func (a *App) Handler() http.Handler { return a.handler }

// Routes lists every named route.
func (a *App) Routes() []router.Route { return a.router.Routes() }

// Orders is the Data Client the app was wired with.
func (a *App) Orders() datastore.Orders { return a.deps.Orders }

// Scanner exposes the fulfillment workflow for the CLI.
func (a *App) Scanner() *services.Scanner { return a.scanner }

// Events is the bus order changes are published on.
func (a *App) Events() *event.Bus { return a.bus }

// Start runs the queue workers and the staff feed until ctx is cancelled.
// Calling it more than once has no effect.
func (a *App) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		services.ListenForNotifications(a.bus, a.deps.Queue, a.deps.Notifier)
		a.hub.Follow(a.bus)
		go a.hub.Run(ctx)
		a.deps.Queue.Start(ctx, a.deps.Workers)
		logger.Info("app: started", "workers", a.deps.Workers, "notifications", a.deps.Notifier.Enabled())
	})
}

// Drain waits for in-flight events and queue workers. ctx passed to Start
// must already be cancelled.
func (a *App) Drain() {
	a.bus.Wait()
	a.deps.Queue.Wait()
}

// onClose registers fn to run on Close, in reverse order.
func (a *App) onClose(fn func() error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// Close releases everything Boot opened.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
