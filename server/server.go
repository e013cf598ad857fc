// Package server serves motion files over HTTP and exposes the viewer's controls as a JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/viewer"
)

// Server is the HTTP front of a motion data directory and, optionally, a running viewer.
type Server struct {
	addr    string
	dataDir string
	logger  *slog.Logger
	app     viewer.App
	router  *chi.Mux
	http    *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address. Defaults to ":8080".
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithLogger sets the logger for request and lifecycle logs.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithApp mounts the control API over a viewer App. Without it the /api control routes
// answer 503.
func WithApp(app viewer.App) ServerOption {
	return func(s *Server) {
		s.app = app
	}
}

// NewServer creates a Server for the motion files in dataDir.
//
// Parameters:
//   - dataDir: the directory holding *.json motion files
//   - options: functional options
//
// Returns:
//   - *Server: the server, not yet listening
func NewServer(dataDir string, options ...ServerOption) *Server {
	s := &Server{
		addr:    ":8080",
		dataDir: dataDir,
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/motions/{file}", s.handleMotion)
	r.Route("/api", func(r chi.Router) {
		r.Get("/files", s.handleFiles)
		r.Group(func(r chi.Router) {
			r.Use(s.requireApp)
			s.registerControl(r)
		})
	})
	s.router = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("motion server listening", "addr", s.addr, "data_dir", s.dataDir)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: listen %s: %w", s.addr, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("motion server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Motion files</title></head>
<body>
<h1>Motion files</h1>
{{- if .Current}}
<p>Viewing {{.Current}}</p>
{{- end}}
<ul>
{{- range .Files}}
<li><a href="/?file={{.}}">{{.}}</a></li>
{{- else}}
<li>no motion files</li>
{{- end}}
</ul>
</body>
</html>
`))

type indexPage struct {
	Files   []string
	Current string
}

// handleIndex lists the motion files in the data directory. With ?file=<name> it loads that file
// into the attached viewer, or redirects to the raw document when no viewer is attached.
// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var page indexPage
	if file := r.URL.Query().Get("file"); file != "" {
		path, err := motion.SafePath(s.dataDir, file)
		if err != nil {
			http.Error(w, "invalid file name", http.StatusBadRequest)
			return
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.Error(w, "motion file not found", http.StatusNotFound)
			return
		}
		if s.app == nil {
			http.Redirect(w, r, "/motions/"+url.PathEscape(file), http.StatusFound)
			return
		}
		if err := s.app.Load(r.Context(), file); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		page.Current = file
	}

	files, err := motion.ListFiles(s.dataDir)
	if err != nil {
		s.logger.Error("list motion files", "err", err)
		http.Error(w, "cannot list motion files", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page.Files = files
	if err := indexTemplate.Execute(w, page); err != nil {
		s.logger.Warn("render index", "err", err)
	}
}

// handleMotion serves one motion file.
// GET /motions/{file}
func (s *Server) handleMotion(w http.ResponseWriter, r *http.Request) {
	path, err := motion.SafePath(s.dataDir, urlParam(r, "file"))
	if err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.Error(w, "motion file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}

// handleFiles returns the candidate file options.
// GET /api/files
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := motion.ListFiles(s.dataDir)
	if err != nil {
		s.logger.Error("list motion files", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}
