package app

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/canteen/app/services"
	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/pkg/auth"
	"github.com/shashiranjanraj/canteen/pkg/cache"
	"github.com/shashiranjanraj/canteen/pkg/clientconfig"
	"github.com/shashiranjanraj/canteen/pkg/database"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/migration"
	"github.com/shashiranjanraj/canteen/pkg/notification"
	"github.com/shashiranjanraj/canteen/pkg/queue"
	"github.com/shashiranjanraj/canteen/pkg/storage"
	"github.com/shashiranjanraj/canteen/pkg/workerpool"
)

const (
	archiveWorkers = 4
	queueWorkers   = 2
)

// booter collects what Boot opens so a failure halfway can undo it.
type booter struct {
	closers []func() error
}

func (b *booter) onClose(fn func() error) { b.closers = append(b.closers, fn) }

func (b *booter) unwind() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

// Boot loads configuration, opens every configured resource and wires the
// App. A *clientconfig.ConfigError means the rest backend has no usable
// parameters and the server must not start.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	b := &booter{}
	a, err := b.boot(ctx)
	if err != nil {
		b.unwind()
		return nil, err
	}
	for _, fn := range b.closers {
		a.onClose(fn)
	}
	return a, nil
}

func (b *booter) boot(ctx context.Context) (*App, error) {
	if uri := config.LogMongoURI(); uri != "" {
		stop, err := logger.EnableMongo(uri, config.MongoDatabase())
		if err != nil {
			logger.Warn("app: mongo log sink unavailable", "error", err)
		} else {
			b.onClose(func() error { stop(); return nil })
		}
	}

	d := Deps{
		Backend:   clientconfig.Config{URL: config.BackendURL(), AnonKey: config.BackendAnonKey()},
		Notifier:  notification.NewSender(config.SlackWebhookURL(), config.NotifyWebhookURL()),
		Location:  config.AppLocation(),
		QRSize:    config.QRSize(),
		RateLimit: config.RateLimitPerMinute(),
		Workers:   queueWorkers,
	}

	var err error
	if d.Orders, d.DB, err = b.openOrders(ctx, &d.Backend); err != nil {
		return nil, err
	}

	rc, err := b.openCache(ctx)
	if err != nil {
		return nil, err
	}
	sessions := "memory"
	if rc != nil {
		d.Sessions = rc
		sessions = "redis"
	}

	if d.Queue, err = b.openQueue(rc, d.DB); err != nil {
		return nil, err
	}

	if config.QRArchive() {
		if d.Archive, d.Storage, err = b.openArchive(ctx); err != nil {
			return nil, err
		}
	}

	if secret := config.StaffTokenSecret(); secret != "" {
		if d.Issuer, err = auth.NewIssuer(secret, auth.DefaultTTL); err != nil {
			return nil, fmt.Errorf("app: staff tokens: %w", err)
		}
	}

	logger.Info("app: booted",
		"backend", config.DataBackend(),
		"sessions", sessions,
		"archive", d.Archive != nil,
		"staff_auth", d.Issuer != nil,
	)
	return New(d)
}

// openOrders builds the Data Client named by DATA_BACKEND. For rest with
// CONFIG_URL set, backend is replaced by the fetched parameters.
func (b *booter) openOrders(ctx context.Context, backend *clientconfig.Config) (datastore.Orders, *gorm.DB, error) {
	name := config.DataBackend()
	switch name {
	case "rest":
		if ep := config.ConfigEndpoint(); ep != "" {
			cfg, err := clientconfig.Load(ctx, ep)
			if err != nil {
				return nil, nil, err
			}
			*backend = cfg
		}
		if backend.URL == "" || backend.AnonKey == "" {
			return nil, nil, &clientconfig.ConfigError{Endpoint: "BACKEND_URL", Reason: "backend configuration is missing"}
		}
		return datastore.Instrument(name, datastore.NewREST(backend.URL, backend.AnonKey)), nil, nil

	case "sql":
		db, err := database.Connect()
		if err != nil {
			return nil, nil, err
		}
		b.onClose(func() error { return database.Close(db) })
		if err := migration.New(db).Run(); err != nil {
			return nil, nil, err
		}
		return datastore.Instrument(name, datastore.NewSQL(db)), db, nil

	case "mongo":
		m, err := datastore.DialMongo(ctx, config.MongoURI(), config.MongoDatabase())
		if err != nil {
			return nil, nil, err
		}
		b.onClose(func() error { return m.Close(context.Background()) })
		return datastore.Instrument(name, m), nil, nil

	default:
		return datastore.Instrument("memory", datastore.NewMemory()), nil, nil
	}
}

// openCache returns nil when REDIS_ADDR is unset.
func (b *booter) openCache(ctx context.Context) (*cache.Redis, error) {
	if config.RedisAddr() == "" {
		return nil, nil
	}
	rc, err := cache.Connect(ctx)
	if err != nil {
		return nil, err
	}
	b.onClose(rc.Close)
	return rc, nil
}

func (b *booter) openQueue(rc *cache.Redis, db *gorm.DB) (*queue.Manager, error) {
	var opts []queue.Option
	if db != nil {
		opts = append(opts, queue.WithFailedStore(queue.FailedTable(db)))
	}

	switch driver := config.QueueDriver(); driver {
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("app: QUEUE_DRIVER=redis needs REDIS_ADDR")
		}
		return queue.New(queue.NewRedisDriver(rc.Client()), opts...), nil
	case "rabbitmq":
		d, err := queue.DialRabbit(config.RabbitURL(), queueWorkers)
		if err != nil {
			return nil, err
		}
		b.onClose(d.Close)
		return queue.New(d, opts...), nil
	case "memory", "":
		return queue.New(queue.NewMemoryDriver(), opts...), nil
	default:
		return nil, fmt.Errorf("app: unsupported QUEUE_DRIVER %q (supported: memory, redis, rabbitmq)", driver)
	}
}

// openArchive returns a file server for the archive when it is on the
// local disk.
func (b *booter) openArchive(ctx context.Context) (services.Archiver, http.Handler, error) {
	disk, err := storage.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	var files http.Handler
	if local, ok := disk.(*storage.Local); ok {
		b.onClose(local.Close)
		files = local.Handler()
	}

	// Registered after the disk so pending uploads finish before it closes.
	pool := workerpool.New("qr-archive", archiveWorkers)
	b.onClose(func() error { pool.Shutdown(); return nil })

	return services.NewQRArchive(disk, pool), files, nil
}
