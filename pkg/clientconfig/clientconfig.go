// Package clientconfig fetches the hosted backend parameters (base URL and
// anonymous key) that a Data Client needs before it can be built.
package clientconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/canteen/pkg/http"
)

// Config is the payload served by GET /api/config.
type Config struct {
	URL     string `json:"url"`
	AnonKey string `json:"anonKey"`
}

// ConfigError means the parameters could not be obtained. Callers treat it
// as fatal: without them no order can be read or written.
type ConfigError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("clientconfig: %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("clientconfig: %s: %s", e.Endpoint, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

const (
	errFetch   = "Failed to fetch config"
	errMissing = "backend configuration is missing"
)

// Load GETs endpoint and decodes {url, anonKey}. Transport failures, non-2xx
// replies, undecodable bodies and empty fields all yield *ConfigError.
func Load(ctx context.Context, endpoint string) (Config, error) {
	if endpoint == "" {
		return Config{}, &ConfigError{Endpoint: endpoint, Reason: errMissing, Err: errors.New("no config endpoint")}
	}

	resp, err := http.Get(endpoint).
		WithContext(ctx).
		Timeout(10*time.Second).
		Retry(2, 250*time.Millisecond).
		Send()
	if err != nil {
		return Config{}, &ConfigError{Endpoint: endpoint, Reason: errFetch, Err: err}
	}
	if err := resp.Throw(); err != nil {
		return Config{}, &ConfigError{Endpoint: endpoint, Reason: errFetch, Err: err}
	}

	var cfg Config
	if err := resp.JSON(&cfg); err != nil {
		return Config{}, &ConfigError{Endpoint: endpoint, Reason: errFetch, Err: err}
	}
	if cfg.URL == "" || cfg.AnonKey == "" {
		return Config{}, &ConfigError{Endpoint: endpoint, Reason: errMissing}
	}
	return cfg, nil
}
