package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/logger"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

//go:embed templates/*.html templates/*.md
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the services the web UI operates on.
type Deps struct {
	Store     *tags.Store
	Directory *identity.Directory
	Logger    *slog.Logger
}

// NewServer creates and configures the HTTP server for the usertags web UI.
func NewServer(deps Deps, version, bind string, port int) (*http.Server, error) {
	h, err := newHandlers(deps, version)
	if err != nil {
		return nil, err
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/users", http.StatusFound)
	})
	mux.HandleFunc("GET /users", h.HandleUsers)
	mux.HandleFunc("POST /users/{id}/tags", h.HandleAddTag)
	mux.HandleFunc("POST /users/{id}/tags/{tag}/delete", h.HandleRemoveTag)
	mux.HandleFunc("POST /users/{id}/tags/{tag}/move", h.HandleMoveTag)
	mux.HandleFunc("GET /tags", h.HandleTags)
	mux.HandleFunc("POST /tags", h.HandleCreateTag)
	mux.HandleFunc("POST /tags/{tag}/rename", h.HandleRenameTag)
	mux.HandleFunc("POST /tags/{tag}/duplicate", h.HandleDuplicateTag)
	mux.HandleFunc("POST /tags/{tag}/delete", h.HandleDeleteTag)
	mux.HandleFunc("GET /help", h.HandleHelp)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newHandlers(deps Deps, version string) (*Handlers, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	renderer, err := NewRenderer(templateSub, version, log)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		store:    deps.Store,
		dir:      deps.Directory,
		log:      log,
		renderer: renderer,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM.
func Run(srv *http.Server, log *slog.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("usertags UI running", "url", "http://"+srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
