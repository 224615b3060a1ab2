// Package kiosk serves a local page and JSON endpoints that drive the
// capture workflow from a browser on the same machine.
package kiosk

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/harrylevesque/handauth/internal/client"
	"github.com/harrylevesque/handauth/internal/workflow"
)

//go:embed index.html
var indexHTML []byte

type ctxKey struct{}

// Camera is the capture session the camera endpoints operate on.
type Camera interface {
	workflow.Camera
	SessionID() string
}

type Server struct {
	camera     Camera
	api        workflow.API
	controller *workflow.Controller
	logger     *slog.Logger
}

func NewServer(camera Camera, api workflow.API, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		camera:     camera,
		api:        api,
		controller: workflow.New(camera, api, workflow.WithLogger(logger)),
		logger:     logger,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintln(w, "OK"); err != nil {
			s.logger.Debug("health write failed", "error", err)
		}
	}).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)

	// Flat routes: a mux subrouter answers a method mismatch with 404.
	r.HandleFunc("/camera/start", s.handleCameraStart).Methods(http.MethodPost)
	r.HandleFunc("/camera/capture", s.handleCameraCapture).Methods(http.MethodPost)
	r.HandleFunc("/camera/stop", s.handleCameraStop).Methods(http.MethodPost)
	r.HandleFunc("/camera/frame", s.handleCameraFrame).Methods(http.MethodGet)
	r.HandleFunc("/camera/status", s.handleCameraStatus).Methods(http.MethodGet)

	r.HandleFunc(client.RegisterPath, s.handleSubmit(workflow.ActionRegister)).Methods(http.MethodPost)
	r.HandleFunc(client.LoginPath, s.handleSubmit(workflow.ActionLogin)).Methods(http.MethodPost)
	r.HandleFunc(client.LogoutPath, s.handleLogout).Methods(http.MethodGet)
	return r
}

// ListenAndServe runs the kiosk until ctx is cancelled. The camera is
// stopped on the way out.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("kiosk listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.camera.StopCamera()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.camera.StopCamera()
	return err
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(client.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(client.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
