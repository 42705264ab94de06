package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// Local keeps files in a directory. All access goes through an os.Root, so
// nothing outside the directory is reachable even through symlinks.
type Local struct {
	root    *os.Root
	baseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage/local: create %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("storage/local: open %s: %w", dir, err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// rel turns p into a path relative to the root. Leading "../" segments
// are dropped rather than rejected.
func rel(p string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, `\`, "/")), "/")
}

// Put writes to a temporary name first so readers never see half a file.
func (d *Local) Put(_ context.Context, p string, content []byte, _ string) error {
	name := rel(p)
	if dir := path.Dir(name); dir != "." {
		if err := d.root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage/local: mkdir %s: %w", dir, err)
		}
	}
	tmp := name + ".part"
	if err := d.root.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("storage/local: write %s: %w", p, err)
	}
	if err := d.root.Rename(tmp, name); err != nil {
		_ = d.root.Remove(tmp)
		return fmt.Errorf("storage/local: rename %s: %w", p, err)
	}
	return nil
}

func (d *Local) Get(_ context.Context, p string) ([]byte, error) {
	b, err := d.root.ReadFile(rel(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("storage/local: read %s: %w", p, err)
	}
	return b, nil
}

func (d *Local) URL(p string) string { return d.baseURL + "/" + rel(p) }

// Handler serves the directory. Mount it under /storage/.
func (d *Local) Handler() http.Handler {
	return http.StripPrefix("/storage/", http.FileServerFS(d.root.FS()))
}

func (d *Local) Close() error { return d.root.Close() }
