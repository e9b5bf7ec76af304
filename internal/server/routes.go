package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"

	"github.com/devinvista/Trip-sub001/internal/api"
	"github.com/devinvista/Trip-sub001/internal/auth"
	"github.com/devinvista/Trip-sub001/internal/hub"
	"github.com/devinvista/Trip-sub001/internal/middleware"
	"github.com/devinvista/Trip-sub001/internal/service"
)

const apiPrefix = "/tripmate.v1."

func (s *Server) routes() (http.Handler, error) {
	r := mux.NewRouter()

	observe := middleware.MetricsInterceptor(s.metrics)
	logged := middleware.LoggingInterceptor()

	authPath, authHandler := api.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(s.store), s.jwt, s.store, slog.Default()),
		connect.WithInterceptors(observe, middleware.OptionalAuth(s.jwt), logged),
	)
	protected := connect.WithInterceptors(observe, middleware.RequireAuth(s.jwt), logged)
	tripPath, tripHandler := api.NewTripServiceHandler(service.NewTripService(s.store, s.ledger, s.hub), protected)
	expensePath, expenseHandler := api.NewExpenseServiceHandler(service.NewExpenseService(s.store, s.ledger, s.idem), protected)

	r.PathPrefix(authPath).Handler(authHandler)
	r.PathPrefix(tripPath).Handler(tripHandler)
	r.PathPrefix(expensePath).Handler(expenseHandler)

	r.Handle("/ws", s.hub.Handler(hub.TransportConfig{
		SendBuffer:      s.cfg.Hub.SendBuffer,
		MaxMessageBytes: s.cfg.Hub.MaxMessageBytes,
		CheckOrigin:     middleware.OriginChecker(s.cfg.Server.AllowedOrigins),
	}))
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	static, err := staticHandler(s.cfg.Server.StaticPath)
	if err != nil {
		return nil, err
	}
	r.PathPrefix("/").Handler(static)

	return middleware.RequestLogger(middleware.CORS(s.cfg.Server.AllowedOrigins)(r)), nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	connections, sessions := s.hub.Stats()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","connections":%d,"sessions":%d}`, connections, sessions)
}

// staticHandler serves the frontend. Unknown paths get index.html.
func staticHandler(staticPath string) (http.Handler, error) {
	staticDir, err := filepath.Abs(staticPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static path: %w", err)
	}
	slog.Info("Serving static files", "path", staticDir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// unknown RPCs must not fall through to index.html
		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+urlPath))
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	}), nil
}
