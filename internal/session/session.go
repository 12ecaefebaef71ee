// Package session holds the last successfully loaded documentation project
// and loads new ones on demand.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jcdickinson/doclink/internal/catalog"
	"github.com/jcdickinson/doclink/internal/fetch"
	"golang.org/x/sync/singleflight"
)

// ErrNoProject is returned when no project is given and none was loaded.
var ErrNoProject = errors.New("no project documentation loaded")

// Project is a loaded catalog.
type Project struct {
	Root     string
	Index    *catalog.Index
	LoadedAt time.Time
	// Cached is set when the catalog came from the local cache after the
	// fetch failed.
	Cached bool
}

// Source supplies the raw catalog of a documentation root.
type Source interface {
	FetchIndex(ctx context.Context, root string) ([]byte, error)
}

// Store keeps copies of fetched catalogs.
type Store interface {
	Save(root string, data []byte) error
	Load(root string) ([]byte, error)
}

// Registry is notified of successful loads.
type Registry interface {
	UpsertProject(root string, entryCount int) error
}

// Session is the caller-held "last loaded project" state.
type Session struct {
	source   Source
	store    Store
	registry Registry

	mu   sync.RWMutex
	last *Project

	group singleflight.Group
}

// Option configures a Session.
type Option func(*Session)

// WithStore enables saving fetched catalogs and falling back to saved copies
// when a fetch fails.
func WithStore(s Store) Option {
	return func(sess *Session) {
		sess.store = s
	}
}

// WithRegistry records successful loads.
func WithRegistry(r Registry) Option {
	return func(sess *Session) {
		sess.registry = r
	}
}

// New creates a Session loading catalogs from source.
func New(source Source, opts ...Option) *Session {
	s := &Session{source: source}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Last returns the last successfully loaded project, or nil.
func (s *Session) Last() *Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Invalidate forgets the last loaded project.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
}

// Forget drops the last loaded project if it is root.
func (s *Session) Forget(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && s.last.Root == root {
		s.last = nil
	}
}

// Load returns the project at path. An empty path means the last loaded
// project. The last project's index is reused when path names the same
// root; any other root is fetched and, when its catalog is not empty,
// becomes the last project.
func (s *Session) Load(ctx context.Context, path string) (*Project, error) {
	last := s.Last()
	if path == "" {
		if last == nil {
			return nil, ErrNoProject
		}
		return last, nil
	}

	root := fetch.ProjectRoot(path)
	if last != nil && last.Root == root {
		return last, nil
	}

	v, err, _ := s.group.Do(root, func() (interface{}, error) {
		return s.load(ctx, root)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Project), nil
}

func (s *Session) load(ctx context.Context, root string) (*Project, error) {
	if last := s.Last(); last != nil && last.Root == root {
		return last, nil
	}

	cached := false
	data, err := s.source.FetchIndex(ctx, root)
	if err != nil {
		if s.store == nil {
			return nil, fmt.Errorf("no project documentation at %s: %w", root, err)
		}
		saved, loadErr := s.store.Load(root)
		if loadErr != nil {
			return nil, fmt.Errorf("no project documentation at %s: %w", root, err)
		}
		slog.Warn("fetch failed, using cached catalog", "project", root, "error", err)
		data, cached = saved, true
	}

	idx, err := catalog.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing catalog of %s: %w", root, err)
	}

	p := &Project{Root: root, Index: idx, LoadedAt: time.Now(), Cached: cached}
	if idx.Len() == 0 {
		return p, nil
	}

	if s.store != nil && !cached {
		if err := s.store.Save(root, data); err != nil {
			slog.Warn("failed to cache catalog", "project", root, "error", err)
		}
	}
	if s.registry != nil {
		if err := s.registry.UpsertProject(root, idx.Len()); err != nil {
			slog.Warn("failed to register project", "project", root, "error", err)
		}
	}

	s.mu.Lock()
	s.last = p
	s.mu.Unlock()

	slog.Info("loaded project", "project", root, "entries", idx.Len(), "cached", cached)
	return p, nil
}
