package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = map[string]string{}
)

// source adds its keys to vals, overwriting earlier sources.
type source func(vals map[string]string) error

// Load reads config/app.json, config/app.yaml, .env and the process
// environment, in that order of increasing precedence. Missing files are
// skipped. Only the first call does any work.
func Load() error {
	loadOnce.Do(func() {
		loadErr = load(file("config/app.json"), file("config/app.yaml"), dotenv(".env"), environ)
	})
	return loadErr
}

func load(sources ...source) error {
	vals := map[string]string{}
	for _, src := range sources {
		if err := src(vals); err != nil {
			return err
		}
	}
	mu.Lock()
	values = vals
	mu.Unlock()
	return nil
}

func put(vals map[string]string, key, value string) {
	if key = strings.ToUpper(strings.TrimSpace(key)); key != "" {
		vals[key] = strings.TrimSpace(value)
	}
}

// file reads the top-level scalars of a JSON or YAML document, picked by
// extension. Nested sections are ignored.
func file(path string) source {
	return func(vals map[string]string) error {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		doc := map[string]any{}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			err = yaml.Unmarshal(data, &doc)
		} else {
			err = json.Unmarshal(data, &doc)
		}
		if err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}

		for k, v := range doc {
			switch v.(type) {
			case string, bool, int, float64:
				put(vals, k, fmt.Sprint(v))
			}
		}
		return nil
	}
}

// dotenv reads KEY=value lines. Blank lines, comments and lines without
// "=" are skipped; one layer of quotes around the value is removed.
func dotenv(path string) source {
	return func(vals map[string]string) error {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || line[0] == '#' {
				continue
			}
			if k, v, ok := strings.Cut(line, "="); ok {
				put(vals, k, strings.Trim(strings.TrimSpace(v), `"'`))
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	}
}

// environ copies non-empty environment variables.
func environ(vals map[string]string) error {
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.TrimSpace(v) != "" {
			vals[k] = v
		}
	}
	return nil
}

func lookup(key, fallback string) string {
	mu.RLock()
	v := values[key]
	mu.RUnlock()
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// Get reads any key, for settings that belong to a single package.
func Get(key, fallback string) string { return str(key, fallback) }
