// Package server exposes tile generation over WebSocket, plus health,
// tileset listing, stored run and Prometheus endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lawnchairsociety/tiledwfc/internal/config"
	"github.com/lawnchairsociety/tiledwfc/internal/generator"
	"github.com/lawnchairsociety/tiledwfc/internal/logger"
	"github.com/lawnchairsociety/tiledwfc/internal/metrics"
	"github.com/lawnchairsociety/tiledwfc/internal/store"
	"github.com/lawnchairsociety/tiledwfc/internal/tileset"
	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

// Server serves generation sessions for a tileset library.
type Server struct {
	cfg      config.ServerConfig
	defaults generator.Config
	fallback string

	library tileset.Library
	models  map[string]*wfc.Model
	modelMu sync.Mutex

	store    *store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	limiter  *sessionLimiter

	httpServer *http.Server
	sessions   sync.WaitGroup
}

// New creates a server. cfg supplies the server section, the generator
// defaults applied to requests and the default tileset.
func New(cfg *config.Config, library tileset.Library) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		cfg:      cfg.Server,
		defaults: cfg.Generator,
		fallback: cfg.Tilesets.Default,
		library:  library,
		models:   make(map[string]*wfc.Model),
		registry: reg,
		metrics:  metrics.New(reg),
		limiter:  newSessionLimiter(cfg.Server.Connections),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetStore enables persistence of finished runs.
func (s *Server) SetStore(st *store.Store) {
	s.store = st
}

// Registry returns the Prometheus registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/tilesets", s.handleTilesets)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /runs/{id}", s.handleDeleteRun)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	return mux
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger.Info("Tile server listening", "address", s.cfg.Address, "tilesets", len(s.library))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for open sessions.
// Hijacked WebSocket connections are not tracked by http.Server, so
// sessions end on their own once their peer disconnects or ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Server shutdown complete")
	case <-ctx.Done():
		logger.Warning("Shutdown timed out with sessions open")
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// model compiles and caches a tileset.
func (s *Server) model(name string) (*wfc.Model, error) {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()

	if m, ok := s.models[name]; ok {
		return m, nil
	}
	ts, err := s.library.Get(name)
	if err != nil {
		return nil, err
	}
	m, err := ts.Model()
	if err != nil {
		return nil, err
	}
	s.models[name] = m
	return m, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok", "tilesets": len(s.library)}

	if s.store != nil {
		counts, err := s.store.CountByStatus()
		if err == nil {
			err = s.store.DB().PingContext(r.Context())
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		} else {
			body["runs"] = counts
		}
	}
	sessions, _ := s.limiter.stats()
	body["sessions"] = sessions

	writeJSON(w, status, body)
}

func (s *Server) handleTilesets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.library.Names())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warning("Failed to write response", "error", err)
	}
}

// handleWebSocketUpgrade upgrades an HTTP connection to a generation session.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if !s.limiter.acquire(ip) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.limiter.release(ip)
		return
	}

	s.sessions.Add(1)
	go func() {
		defer s.sessions.Done()
		defer s.limiter.release(ip)
		newSession(s, conn, ip).run()
	}()
}
