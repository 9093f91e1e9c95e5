package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/handiism/screen-recorder/internal/metadata"
	"github.com/handiism/screen-recorder/internal/model"
	"github.com/handiism/screen-recorder/internal/storage"
)

// ObjectsPath is the route prefix under which stored objects are served.
const ObjectsPath = "/objects/"

// Loader reloads the recording list.
type Loader interface {
	Reload(ctx context.Context) ([]model.Recording, error)
}

// Server exposes recordings, stored objects and metrics over HTTP.
type Server struct {
	loader  Loader
	objects storage.ObjectStore
	logger  zerolog.Logger
	router  chi.Router
}

// RecordingsResponse is the body of GET /api/recordings.
type RecordingsResponse struct {
	Recordings []model.Recording `json:"recordings"`
	// Unresolved lists ids whose retrieval address could not be resolved.
	Unresolved []string `json:"unresolved,omitempty"`
}

// NewServer builds the router.
func NewServer(loader Loader, objects storage.ObjectStore, logger zerolog.Logger) *Server {
	s := &Server{
		loader:  loader,
		objects: objects,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/recordings", s.handleRecordings)
	r.Method(http.MethodGet, ObjectsPath+"*", http.HandlerFunc(s.handleObject))
	r.Method(http.MethodHead, ObjectsPath+"*", http.HandlerFunc(s.handleObject))
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.loader.Reload(r.Context())

	var resolveErr *metadata.ResolveError
	switch {
	case err == nil:
	case errors.As(err, &resolveErr):
		s.logger.Warn().Err(err).Msg("serving recordings with unresolved addresses")
	default:
		s.logger.Error().Err(err).Msg("loading recordings")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := RecordingsResponse{Recordings: recs}
	if resp.Recordings == nil {
		resp.Recordings = []model.Recording{}
	}
	if resolveErr != nil {
		for _, f := range resolveErr.Failures {
			resp.Unresolved = append(resp.Unresolved, f.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	key, err := storage.CleanKey(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rc, info, err := s.objects.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("opening object")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}

	// Seekable objects get range support, which video players rely on.
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, key, info.ModTime, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("object stream interrupted")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
