// Package logger is the canteen's structured logger, built on log/slog.
//
// Handlers and services log through WithCtx so every line carries the id of
// the request that caused it:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "qr_code", order.QRCode, "total", order.TotalAmount)
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/shashiranjanraj/canteen/config"
)

// L is the base logger. The request middleware derives per-request
// children from it.
var L = slog.New(stdout())

func init() { slog.SetDefault(L) }

// stdout writes JSON in production and text elsewhere. LOG_LEVEL overrides
// the level, which defaults to info in production and debug otherwise.
func stdout() slog.Handler {
	prod := config.AppEnv() == "production"

	level := slog.LevelDebug
	if prod {
		level = slog.LevelInfo
	}
	if v := config.Get("LOG_LEVEL", ""); v != "" {
		_ = level.UnmarshalText([]byte(strings.ToUpper(v)))
	}

	opts := &slog.HandlerOptions{Level: level}
	if prod {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

// EnableMongo copies every record to the logs collection of database as
// well as stdout. The returned func flushes and disconnects.
func EnableMongo(uri, database string) (func(), error) {
	mh, err := NewMongoHandler(uri, database, "logs")
	if err != nil {
		return func() {}, err
	}
	L = slog.New(NewMultiHandler(stdout(), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

type ctxKey struct{}

// InjectLogger returns ctx carrying log for WithCtx to find.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// WithCtx is the logger stored in ctx, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, _ := ctx.Value(ctxKey{}).(*slog.Logger); log != nil {
			return log
		}
	}
	return L
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
