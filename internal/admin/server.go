// Admin exposes JSON status endpoints for operations tooling.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"drivesim/internal/hub"
	"drivesim/internal/sim"
)

// Server reports simulator and hub state over HTTP.
type Server struct {
	sims  *sim.Registry
	conns *hub.ConnRegistry
}

// NewServer creates the admin server.
func NewServer(sims *sim.Registry, conns *hub.ConnRegistry) *Server {
	return &Server{sims: sims, conns: conns}
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/connections", s.handleConnections)
}

// Start serves the admin endpoints until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.routes(mux)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "timestamp": time.Now().UTC()})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	active := s.sims.Active()
	type sessionInfo struct {
		SessionID   string `json:"session_id"`
		Subscribers int    `json:"subscribers"`
	}
	infos := make([]sessionInfo, 0, len(active))
	for _, id := range active {
		infos = append(infos, sessionInfo{
			SessionID:   id,
			Subscribers: len(s.conns.ConnectionsFor(id)),
		})
	}
	writeJSON(w, infos)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"connections": s.conns.Count()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
