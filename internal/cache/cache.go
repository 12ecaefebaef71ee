// Package cache keeps zstd-compressed copies of fetched catalogs, keyed by
// project root, so a project can be reloaded when its server is unreachable.
package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jcdickinson/doclink/internal/config"
	"github.com/klauspost/compress/zstd"
)

// Dir returns the catalog cache directory.
func Dir() string {
	return config.CatalogCacheDir()
}

// path returns the file for a project root: catalogs/<sha256>.txt.zst
func path(root string) string {
	return filepath.Join(Dir(), fmt.Sprintf("%x.txt.zst", sha256.Sum256([]byte(root))))
}

// Save stores the raw catalog of root, replacing any previous copy.
func Save(root string, data []byte) error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("creating catalog cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(Dir(), "catalog-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		tmp.Close()
		return fmt.Errorf("writing compressed catalog: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path(root)); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Load returns the cached catalog of root.
func Load(root string) ([]byte, error) {
	f, err := os.Open(path(root))
	if err != nil {
		return nil, fmt.Errorf("opening cached catalog: %w", err)
	}
	defer f.Close()

	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing cached catalog: %w", err)
	}
	return data, nil
}

// Has reports whether a copy of root's catalog exists.
func Has(root string) bool {
	_, err := os.Stat(path(root))
	return err == nil
}

// Remove deletes the copy of root's catalog. A missing copy is not an error.
func Remove(root string) error {
	if err := os.Remove(path(root)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cached catalog: %w", err)
	}
	return nil
}

// Clear removes every cached catalog.
func Clear() error {
	if err := os.RemoveAll(Dir()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing catalog cache: %w", err)
	}
	return nil
}
