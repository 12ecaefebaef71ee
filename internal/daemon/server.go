package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jcdickinson/doclink/internal/cache"
	"github.com/jcdickinson/doclink/internal/config"
	"github.com/jcdickinson/doclink/internal/db"
	"github.com/jcdickinson/doclink/internal/fetch"
	"github.com/jcdickinson/doclink/internal/filter"
	"github.com/jcdickinson/doclink/internal/reference"
	"github.com/jcdickinson/doclink/internal/rpc"
	"github.com/jcdickinson/doclink/internal/session"
)

type Server struct {
	db         *db.DB
	session    *session.Session
	cfg        *config.Config
	socketPath string
	httpServer *http.Server
	listener   net.Listener

	mu         sync.Mutex
	expTimer   *time.Timer
	expiration time.Duration
}

// cacheStore adapts the catalog cache to session.Store.
type cacheStore struct{}

func (cacheStore) Save(root string, data []byte) error { return cache.Save(root, data) }
func (cacheStore) Load(root string) ([]byte, error)    { return cache.Load(root) }

// dbRegistry adapts the project registry to session.Registry.
type dbRegistry struct{ db *db.DB }

func (r dbRegistry) UpsertProject(root string, entryCount int) error {
	_, err := r.db.UpsertProject(root, entryCount)
	return err
}

// NewServer creates a daemon. database may be nil, in which case loads are
// not registered and status only reports the current project.
func NewServer(cfg *config.Config, database *db.DB, socketPath string) *Server {
	fetcher := fetch.NewFetcher(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
	)

	var opts []session.Option
	if cfg.Cache.OfflineFallback {
		opts = append(opts, session.WithStore(cacheStore{}))
	}
	if database != nil {
		opts = append(opts, session.WithRegistry(dbRegistry{database}))
	}

	expSec := cfg.Daemon.ExpirationSeconds
	if expSec <= 0 {
		expSec = 600
	}

	return &Server{
		db:         database,
		session:    session.New(fetcher, opts...),
		cfg:        cfg,
		socketPath: socketPath,
		expiration: time.Duration(expSec) * time.Second,
	}
}

// Handler returns the daemon's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /load", s.withExpReset(s.handleLoad))
	mux.HandleFunc("POST /list", s.withExpReset(s.handleList))
	mux.HandleFunc("POST /link", s.withExpReset(s.handleLink))
	mux.HandleFunc("GET /status", s.withExpReset(s.handleStatus))
	mux.HandleFunc("POST /clear-cache", s.withExpReset(s.handleClearCache))
	mux.HandleFunc("POST /forget", s.withExpReset(s.handleForget))
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = listener

	s.httpServer = &http.Server{Handler: s.Handler()}

	s.mu.Lock()
	s.expTimer = time.AfterFunc(s.expiration, s.expire)
	s.mu.Unlock()

	slog.Info("daemon: listening", "socket", s.socketPath, "expiration", s.expiration)

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("daemon: shutdown error", "error", err)
			errs = append(errs, err)
		}
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("daemon: listener close error", "error", err)
			errs = append(errs, err)
		}
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		slog.Error("daemon: socket remove error", "error", err)
		errs = append(errs, err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("daemon: db close error", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) expire() {
	slog.Info("daemon: expiring due to inactivity")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	os.Exit(0)
}

func (s *Server) resetExpiration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expTimer != nil {
		s.expTimer.Stop()
		s.expTimer.Reset(s.expiration)
	}
}

func (s *Server) withExpReset(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resetExpiration()
		handler(w, r)
	}
}

// defaultProject is used when a request names no project and nothing is
// loaded yet: the configured default, else the last project in the registry.
func (s *Server) defaultProject() string {
	if s.cfg.Project.Default != "" {
		return s.cfg.Project.Default
	}
	if s.db == nil {
		return ""
	}
	p, err := s.db.LatestProject()
	if err != nil {
		slog.Warn("daemon: reading latest project", "error", err)
		return ""
	}
	if p == nil {
		return ""
	}
	return p.Root
}

func (s *Server) loadProject(ctx context.Context, path string) (*session.Project, error) {
	if path == "" && s.session.Last() == nil {
		path = s.defaultProject()
	}
	p, err := s.session.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if s.db != nil {
		if err := s.db.TouchProject(p.Root); err != nil {
			slog.Warn("daemon: touching project", "project", p.Root, "error", err)
		}
	}
	return p, nil
}

func projectInfo(p *session.Project) rpc.ProjectInfo {
	return rpc.ProjectInfo{
		Root:     p.Root,
		Entries:  p.Index.Len(),
		LoadedAt: p.LoadedAt.Format(time.RFC3339),
		Cached:   p.Cached,
	}
}

func loadStatus(err error) int {
	if errors.Is(err, session.ErrNoProject) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req rpc.LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.loadProject(r.Context(), req.Project)
	if err != nil {
		writeError(w, loadStatus(err), err.Error())
		return
	}
	if p.Index.Len() == 0 {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("no project documentation could be found at %s", p.Root))
		return
	}

	writeJSON(w, http.StatusOK, rpc.LoadResponse{Project: projectInfo(p)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var req rpc.ListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.loadProject(r.Context(), req.Project)
	if err != nil {
		writeError(w, loadStatus(err), err.Error())
		return
	}

	resp := rpc.ListResponse{Project: projectInfo(p)}
	entries, pattern := filter.Select(p.Index, req.Criteria)
	if pattern != nil {
		if pattern.Err() != nil {
			slog.Debug("daemon: criteria do not compile", "pattern", pattern.Source(), "error", pattern.Err())
		}
		resp.Pattern = pattern.Source()
	}

	resp.Entries = make([]rpc.EntryInfo, len(entries))
	for i, e := range entries {
		resp.Entries[i] = rpc.EntryInfo{
			URL:         e.URL(),
			Name:        e.Name(),
			DisplayName: e.DisplayName(),
			Malformed:   e.Malformed(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req rpc.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Page == "" {
		writeError(w, http.StatusBadRequest, "missing page")
		return
	}

	p, err := s.loadProject(r.Context(), req.Project)
	if err != nil {
		writeError(w, loadStatus(err), err.Error())
		return
	}

	ref, err := reference.Build(p, req.Page, req.Text)
	if err != nil {
		slog.Debug("daemon: link to unknown page", "project", p.Root, "page", req.Page)
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	out, err := ref.Format(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rpc.LinkResponse{
		Page:   ref.Page,
		Name:   ref.Name,
		Href:   ref.Href,
		Text:   ref.Text,
		Output: out,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp rpc.StatusResponse
	if last := s.session.Last(); last != nil {
		info := projectInfo(last)
		resp.Last = &info
	}

	if s.db != nil {
		projects, err := s.db.ListProjects()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, p := range projects {
			status := rpc.ProjectStatus{
				Root:       p.Root,
				Entries:    p.EntryCount,
				LastUsedAt: p.LastUsedAt.Format(time.RFC3339),
				Cached:     cache.Has(p.Root),
			}
			if p.LoadedAt != nil {
				status.LoadedAt = p.LoadedAt.Format(time.RFC3339)
			}
			resp.Projects = append(resp.Projects, status)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := cache.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.session.Invalidate()
	slog.Info("daemon: catalog cache cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleForget removes a project from the registry and the catalog cache,
// and drops it from memory if it is the current project.
func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	var req rpc.ForgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Project == "" {
		writeError(w, http.StatusBadRequest, "missing project")
		return
	}

	resp := rpc.ForgetResponse{Root: fetch.ProjectRoot(req.Project)}
	if s.db != nil {
		registered, err := s.db.DeleteProject(resp.Root)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Registered = registered
	}
	if err := cache.Remove(resp.Root); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.session.Forget(resp.Root)

	slog.Info("daemon: project forgotten", "project", resp.Root, "registered", resp.Registered)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
		os.Exit(0)
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
