package assets

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"faceframe/internal/logging"
)

// Server exposes thumbnails and source photos to the rendering layer over
// loopback HTTP. Every response is an image; a locator that cannot be
// dereferenced yields the placeholder instead of an error page.
type Server struct {
	bind     string
	logger   *slog.Logger
	httpSrv  *http.Server
	listener net.Listener
}

// NewServer builds an asset server bound to the given loopback address.
func NewServer(bind string, logger *slog.Logger) *Server {
	s := &Server{
		bind:   bind,
		logger: logging.WithComponent(logger, "assets"),
	}
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/asset", s.handleAsset)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.httpSrv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins listening and serving in a background goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return err
	}
	s.listener = listener
	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("asset server stopped", logging.Error(err))
		}
	}()
	s.logger.Info("asset server listening", logging.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting for in-flight responses.
func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("loc")
	locator, err := Parse(raw)
	if err != nil {
		s.logger.Warn("rejected asset locator", logging.String("locator", raw), logging.Error(err))
		http.Error(w, "invalid locator", http.StatusBadRequest)
		return
	}
	data, err := os.ReadFile(locator.FilePath())
	if err != nil {
		s.logger.Debug("asset unavailable, serving placeholder",
			logging.String("path", locator.FilePath()))
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Asset-Placeholder", "1")
		_, _ = w.Write(Placeholder())
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(locator.FilePath()))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}
