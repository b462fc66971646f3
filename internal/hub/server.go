package hub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// wsSender wraps a websocket connection with a write mutex so the
// dispatcher, sweeper, and handler can send concurrently.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(msg Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

func (s *wsSender) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *wsSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "inactive"),
		time.Now().Add(writeWait))
	return s.conn.Close()
}

// Server terminates websocket connections and feeds inbound messages to
// the protocol handler.
type Server struct {
	handler  *Handler
	registry *ConnRegistry
	upgrader websocket.Upgrader
	logger   *slog.Logger

	sweepInterval  time.Duration
	staleThreshold time.Duration
}

// NewServer creates the websocket server.
func NewServer(handler *Handler, registry *ConnRegistry, sweepInterval, staleThreshold time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		handler:  handler,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:         logger,
		sweepInterval:  sweepInterval,
		staleThreshold: staleThreshold,
	}
}

// Routes registers the websocket endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
}

// Start serves the websocket endpoint until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.Routes(mux)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv.ListenAndServe()
}

// RunSweeper periodically evicts idle connections and probes live ones.
func (s *Server) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := s.registry.SweepStale(s.staleThreshold); len(removed) > 0 {
				s.logger.Info("swept stale connections", "count", len(removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	connID := uuid.New().String()
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		s.registry.Touch(connID)
		return nil
	})

	sender := &wsSender{conn: conn}
	s.handler.HandleConnect(connID, sender)

	defer func() {
		s.handler.HandleDisconnect(connID)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read failed", "connection_id", connID, "err", err)
			}
			return
		}
		s.handler.HandleMessage(r.Context(), connID, raw)
	}
}
