package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"drivesim/internal/store"
	"drivesim/internal/telemetry"
)

// Client → server message types.
const (
	MsgStartSession         = "start_session"
	MsgStopSession          = "stop_session"
	MsgSubscribeTelemetry   = "subscribe_telemetry"
	MsgUnsubscribeTelemetry = "unsubscribe_telemetry"
	MsgRequestSessionStatus = "request_session_status"
	MsgDriverResponse       = "driver_response"
	MsgPing                 = "ping"
)

// Server → client message types.
const (
	MsgConnectionEstablished   = "connection_established"
	MsgSessionStarted          = "session_started"
	MsgSessionStopped          = "session_stopped"
	MsgSessionError            = "session_error"
	MsgSubscriptionConfirmed   = "subscription_confirmed"
	MsgUnsubscriptionConfirmed = "unsubscription_confirmed"
	MsgSubscriptionError       = "subscription_error"
	MsgSessionStatus           = "session_status"
	MsgTelemetryData           = "telemetry_data"
	MsgGlobalAlert             = "global_alert"
	MsgResponseRecorded        = "driver_response_recorded"
	MsgPong                    = "pong"
	MsgError                   = "error"
)

var supportedTypes = []string{
	MsgStartSession,
	MsgStopSession,
	MsgSubscribeTelemetry,
	MsgUnsubscribeTelemetry,
	MsgRequestSessionStatus,
	MsgDriverResponse,
	MsgPing,
}

// Envelope is the bidirectional message frame.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// inbound is the decode-side frame; Data stays raw until the type is known.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type startSessionRequest struct {
	SessionID       string `json:"sessionId"`
	Weather         string `json:"weather"`
	RoadType        string `json:"roadType"`
	SimulationSpeed int64  `json:"simulationSpeed"` // tick interval, milliseconds
}

type subscribeRequest struct {
	SessionID string `json:"sessionId"`
}

type statusRequest struct {
	SessionID string `json:"sessionId"`
}

type driverResponseRequest struct {
	SessionID      string `json:"sessionId"`
	AlertKind      string `json:"alertKind"`
	Action         string `json:"action"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
}

// SessionController is the simulation lifecycle surface the handler drives.
type SessionController interface {
	Start(sessionID string, interval time.Duration) bool
	Stop(sessionID string) bool
	IsRunning(sessionID string) bool
}

// LiveReader optionally supplies a session's latest cached telemetry for
// status snapshots.
type LiveReader interface {
	LiveSample(ctx context.Context, sessionID string) (*telemetry.Sample, error)
}

// Handler decodes inbound client messages and drives the registries.
// Protocol errors are answered on the originating connection and never
// close it.
type Handler struct {
	registry    *ConnRegistry
	sims        SessionController
	sessions    store.SessionStore
	live        LiveReader
	defaultTick time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler wires the protocol handler. live may be nil.
func NewHandler(registry *ConnRegistry, sims SessionController, sessions store.SessionStore, live LiveReader, defaultTick time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:    registry,
		sims:        sims,
		sessions:    sessions,
		live:        live,
		defaultTick: defaultTick,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleConnect registers the connection and greets the client.
func (h *Handler) HandleConnect(connID string, sender Sender) {
	h.registry.Register(connID, sender)
	h.send(connID, Envelope{Type: MsgConnectionEstablished, Data: map[string]any{
		"connectionId": connID,
		"timestamp":    h.now().UTC(),
		"message":      "connected to drivesim telemetry stream",
	}})
}

// HandleDisconnect removes the connection from the registry.
func (h *Handler) HandleDisconnect(connID string) {
	h.registry.Unregister(connID)
}

// HandleMessage processes one inbound payload from connID.
func (h *Handler) HandleMessage(ctx context.Context, connID string, raw []byte) {
	h.registry.Touch(connID)

	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.send(connID, errorEnvelope("invalid message format", nil))
		return
	}

	switch msg.Type {
	case MsgStartSession:
		h.handleStartSession(ctx, connID, msg.Data)
	case MsgStopSession:
		h.handleStopSession(ctx, connID)
	case MsgSubscribeTelemetry:
		h.handleSubscribe(ctx, connID, msg.Data)
	case MsgUnsubscribeTelemetry:
		h.handleUnsubscribe(connID)
	case MsgRequestSessionStatus:
		h.handleStatus(ctx, connID, msg.Data)
	case MsgDriverResponse:
		h.handleDriverResponse(ctx, connID, msg.Data)
	case MsgPing:
		h.send(connID, Envelope{Type: MsgPong, Data: map[string]any{"timestamp": h.now().UTC()}})
	default:
		h.send(connID, errorEnvelope("unknown message type: "+msg.Type, supportedTypes))
	}
}

func (h *Handler) handleStartSession(ctx context.Context, connID string, data json.RawMessage) {
	var req startSessionRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			h.send(connID, Envelope{Type: MsgSessionError, Data: map[string]any{"message": "invalid start_session payload"}})
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	sess, err := h.sessions.CreateSession(ctx, store.Session{
		ID:       req.SessionID,
		Weather:  req.Weather,
		RoadType: req.RoadType,
	})
	if err != nil {
		h.logger.Error("session create failed", "session_id", req.SessionID, "err", err)
		h.send(connID, Envelope{Type: MsgSessionError, Data: map[string]any{"message": "could not create session"}})
		return
	}

	interval := h.defaultTick
	if req.SimulationSpeed > 0 {
		interval = time.Duration(req.SimulationSpeed) * time.Millisecond
	}
	h.sims.Start(sess.ID, interval)

	// The starting connection watches its own session so stop_session
	// has a target.
	h.registry.Subscribe(connID, sess.ID)

	h.send(connID, Envelope{Type: MsgSessionStarted, Data: map[string]any{
		"session":   sess,
		"timestamp": h.now().UTC(),
	}})
}

func (h *Handler) handleStopSession(ctx context.Context, connID string) {
	sessionID, ok := h.registry.SubscriptionOf(connID)
	if !ok {
		h.send(connID, Envelope{Type: MsgSessionError, Data: map[string]any{"message": "no subscribed session to stop"}})
		return
	}

	h.sims.Stop(sessionID)
	sess, err := h.sessions.EndSession(ctx, sessionID)
	if err != nil {
		h.logger.Error("session end failed", "session_id", sessionID, "err", err)
		h.send(connID, Envelope{Type: MsgSessionError, Data: map[string]any{"message": "could not end session"}})
		return
	}

	h.send(connID, Envelope{Type: MsgSessionStopped, Data: map[string]any{
		"session":   sess,
		"timestamp": h.now().UTC(),
	}})
}

func (h *Handler) handleSubscribe(ctx context.Context, connID string, data json.RawMessage) {
	var req subscribeRequest
	if len(data) > 0 {
		_ = json.Unmarshal(data, &req)
	}
	if req.SessionID == "" {
		h.send(connID, Envelope{Type: MsgSubscriptionError, Data: map[string]any{"message": "sessionId is required"}})
		return
	}

	sess, err := h.sessions.FindSession(ctx, req.SessionID)
	if err != nil {
		h.logger.Error("session lookup failed", "session_id", req.SessionID, "err", err)
		h.send(connID, Envelope{Type: MsgSubscriptionError, Data: map[string]any{"sessionId": req.SessionID, "message": "session lookup failed"}})
		return
	}
	if sess == nil {
		h.send(connID, Envelope{Type: MsgSubscriptionError, Data: map[string]any{"sessionId": req.SessionID, "message": "session not found"}})
		return
	}

	h.registry.Subscribe(connID, req.SessionID)
	h.send(connID, Envelope{Type: MsgSubscriptionConfirmed, Data: map[string]any{
		"sessionId": req.SessionID,
		"message":   "subscribed to telemetry stream",
	}})
}

func (h *Handler) handleUnsubscribe(connID string) {
	h.registry.Unsubscribe(connID)
	h.send(connID, Envelope{Type: MsgUnsubscriptionConfirmed, Data: map[string]any{
		"message": "unsubscribed from telemetry stream",
	}})
}

func (h *Handler) handleStatus(ctx context.Context, connID string, data json.RawMessage) {
	var req statusRequest
	if len(data) > 0 {
		_ = json.Unmarshal(data, &req)
	}
	if req.SessionID == "" {
		h.send(connID, errorEnvelope("sessionId is required", nil))
		return
	}

	sess, err := h.sessions.FindSession(ctx, req.SessionID)
	if err != nil {
		h.logger.Error("session lookup failed", "session_id", req.SessionID, "err", err)
		h.send(connID, errorEnvelope("session lookup failed", nil))
		return
	}

	status := map[string]any{
		"sessionId":        req.SessionID,
		"exists":           sess != nil,
		"simulationActive": h.sims.IsRunning(req.SessionID),
	}
	if sess != nil {
		status["status"] = sess.Status
		status["startedAt"] = sess.StartedAt
		if sess.EndedAt != nil {
			status["endedAt"] = sess.EndedAt
		}
	}
	if h.live != nil && sess != nil {
		if sample, err := h.live.LiveSample(ctx, req.SessionID); err == nil && sample != nil {
			status["lastTelemetry"] = sample
		}
	}
	h.send(connID, Envelope{Type: MsgSessionStatus, Data: status})
}

func (h *Handler) handleDriverResponse(ctx context.Context, connID string, data json.RawMessage) {
	var req driverResponseRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			h.send(connID, errorEnvelope("invalid driver_response payload", nil))
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID, _ = h.registry.SubscriptionOf(connID)
	}
	if req.SessionID == "" {
		h.send(connID, errorEnvelope("sessionId is required", nil))
		return
	}

	err := h.sessions.SaveDriverResponse(ctx, store.DriverResponse{
		SessionID:      req.SessionID,
		AlertKind:      req.AlertKind,
		Action:         req.Action,
		ResponseTimeMs: req.ResponseTimeMs,
		Timestamp:      h.now().UTC(),
	})
	if err != nil {
		h.logger.Error("driver response save failed", "session_id", req.SessionID, "err", err)
		h.send(connID, errorEnvelope("could not record driver response", nil))
		return
	}
	h.send(connID, Envelope{Type: MsgResponseRecorded, Data: map[string]any{
		"sessionId": req.SessionID,
		"timestamp": h.now().UTC(),
	}})
}

func (h *Handler) send(connID string, msg Envelope) {
	sender, ok := h.registry.senderFor(connID)
	if !ok {
		return
	}
	if err := sender.Send(msg); err != nil {
		h.logger.Warn("send failed", "connection_id", connID, "type", msg.Type, "err", err)
	}
}

func errorEnvelope(message string, supported []string) Envelope {
	data := map[string]any{"message": message}
	if supported != nil {
		data["supportedTypes"] = supported
	}
	return Envelope{Type: MsgError, Data: data}
}
