// Package server exposes snapshots, session queries and usage metrics over a
// read-only HTTP API. No route writes to the agents tree.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/query"
	"github.com/sonnes/chaukidar/reader"
	htmlrender "github.com/sonnes/chaukidar/render/html"
)

// DefaultCacheTTL applies when Server.CacheTTL is zero.
const DefaultCacheTTL = 10 * time.Second

const shutdownTimeout = 5 * time.Second

// Snapshotter builds a status snapshot on demand.
type Snapshotter interface {
	Run(ctx context.Context) (*core.Snapshot, error)
}

// Server serves the metrics API.
type Server struct {
	Snapshots Snapshotter
	Query     *query.Service
	HTML      *htmlrender.Renderer
	Clock     clock.Clock

	// CacheTTL bounds how long snapshots and session listings are reused.
	CacheTTL time.Duration

	Logger *log.Logger

	started   time.Time
	snapshots *cache[*core.Snapshot]
	sessions  *cache[*query.SessionList]
}

// New returns a Server whose uptime counts from now.
func New(snaps Snapshotter, q *query.Service, clk clock.Clock, ttl time.Duration) *Server {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &Server{
		Snapshots: snaps,
		Query:     q,
		HTML:      htmlrender.New(),
		Clock:     clk,
		CacheTTL:  ttl,
		started:   clk.Now(),
	}
	s.HTML.HistoryHref = func(rec core.StatusRecord) string { return "/agents/" + rec.Folder }
	s.snapshots = newCache(clk, ttl, snaps.Run)
	s.sessions = newCache(clk, ttl, func(ctx context.Context) (*query.SessionList, error) {
		return q.List(ctx, query.DefaultListLimit)
	})
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/metrics/sessions", s.metricsSessions)
	mux.HandleFunc("GET /api/metrics/agents", s.metricsAgents)
	mux.HandleFunc("GET /api/metrics/gateway", s.metricsGateway)
	mux.HandleFunc("GET /api/status", s.status)
	mux.HandleFunc("GET /api/sessions/{key}/status", s.sessionStatus)
	mux.HandleFunc("GET /api/sessions/{key}/history", s.sessionHistory)
	mux.HandleFunc("GET /agents/{folder}", s.agentPage)
	mux.HandleFunc("GET /{$}", s.statusPage)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger().Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "readonly": true})
}

type sessionsResponse struct {
	*query.SessionList
	FetchedAt time.Time `json:"fetchedAt"`
}

func (s *Server) metricsSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.get(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionsResponse{SessionList: list, FetchedAt: s.Clock.Now()})
}

type agentsResponse struct {
	Agents        map[string]query.AgentUsage `json:"agents"`
	TotalSessions int                         `json:"totalSessions"`
	FetchedAt     time.Time                   `json:"fetchedAt"`
}

func (s *Server) metricsAgents(w http.ResponseWriter, r *http.Request) {
	list, err := s.Query.List(r.Context(), query.DefaultMetricsLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agentsResponse{
		Agents:        s.Query.Usage(list),
		TotalSessions: list.Count,
		FetchedAt:     s.Clock.Now(),
	})
}

type gatewayResponse struct {
	query.Gateway
	Uptime         int64     `json:"uptime"` // seconds
	ActiveSessions int       `json:"activeSessions"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

func (s *Server) metricsGateway(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.get(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	now := s.Clock.Now()
	writeJSON(w, http.StatusOK, gatewayResponse{
		Gateway:        query.OnlineGateway,
		Uptime:         int64(now.Sub(s.started) / time.Second),
		ActiveSessions: list.Count,
		FetchedAt:      now,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.get(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) sessionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Query.Status(r.Context(), r.PathValue("key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) sessionHistory(w http.ResponseWriter, r *http.Request) {
	limit := query.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	h, err := s.Query.History(r.Context(), r.PathValue("key"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) statusPage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.get(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.HTML.Render(w, snap); err != nil {
		s.logger().Error("render status page", "err", err)
	}
}

// agentPage renders the agent's most recent session.
func (s *Server) agentPage(w http.ResponseWriter, r *http.Request) {
	key, err := s.Query.LatestKey(r.Context(), r.PathValue("folder"))
	if errors.Is(err, reader.ErrNoSession) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	h, err := s.Query.History(r.Context(), key, query.DefaultHistoryLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.HTML.RenderHistory(w, h); err != nil {
		s.logger().Error("render history page", "key", key, "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// fail maps invalid session keys to 400 and everything else to 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, query.ErrInvalidKeyFormat) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.logger().Error("request failed", "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
