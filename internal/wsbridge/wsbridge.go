// Package wsbridge serves the shell-facing control/push surface of
// spec.md 4.9/6 over a local WebSocket, repurposing the teacher's
// RunAgent/handleConnection dial loop from a remote job-delivery client
// into a local server the control surface pushes state and log rows
// over, and any shell (including cmd/monitor) issues commands over.
package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/agent"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// messageType mirrors the teacher's model.MessageType string-enum.
type messageType string

const (
	typeState    messageType = "printer-state"
	typeLog      messageType = "printer-log"
	typeCommand  messageType = "command"
	typeResponse messageType = "response"
)

// wireMessage is the single envelope shape for every direction of
// traffic, matching the teacher's WSMessage{Type, ...} pattern.
type wireMessage struct {
	Type      messageType        `json:"type"`
	RequestID string             `json:"requestId,omitempty"`
	Command   string             `json:"command,omitempty"`
	Params    json.RawMessage    `json:"params,omitempty"`
	State     *agent.PublicState `json:"state,omitempty"`
	Log       *model.LogRow      `json:"log,omitempty"`
	Result    json.RawMessage    `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Dispatcher executes a named control-surface command (saveConfig,
// syncSession, startService, ...) against the Agent and returns its
// JSON-marshalable result.
type Dispatcher func(ctx context.Context, command string, params json.RawMessage) (any, error)

// Server upgrades shell connections to WebSocket and fans out state/log
// broadcasts while serving control commands over the same socket.
type Server struct {
	upgrader   websocket.Upgrader
	dispatcher Dispatcher

	mu    sync.Mutex
	conns map[*connection]struct{}
}

// connection pairs a socket with the write-side mutex gorilla/websocket
// requires for concurrent writers (broadcast vs. command responses).
type connection struct {
	conn  *websocket.Conn
	mu    sync.Mutex
}

func (c *connection) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// New returns a Server that routes incoming commands to dispatcher.
func New(dispatcher Dispatcher) *Server {
	return &Server{
		dispatcher: dispatcher,
		conns:      make(map[*connection]struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// ServeHTTP upgrades the request and runs the per-connection read loop
// until the shell disconnects, mirroring the teacher's handleConnection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &connection{conn: conn}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != typeCommand {
			continue
		}
		s.handleCommand(r.Context(), c, msg)
	}
}

func (s *Server) handleCommand(ctx context.Context, c *connection, msg wireMessage) {
	reply := wireMessage{Type: typeResponse, RequestID: msg.RequestID}

	result, err := s.dispatcher(ctx, msg.Command, msg.Params)
	if err != nil {
		reply.Error = err.Error()
	} else if result != nil {
		encoded, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			reply.Error = fmt.Sprintf("marshal result: %v", marshalErr)
		} else {
			reply.Result = encoded
		}
	}

	_ = c.writeJSON(reply)
}

// PushState implements agent.Broadcaster: every connected shell receives
// the full public snapshot.
func (s *Server) PushState(state agent.PublicState) {
	s.broadcast(wireMessage{Type: typeState, State: &state})
}

// PushLogRow implements bridgelog.Sink: log rows are pushed individually
// as they're appended (spec.md 4.9), each carrying a correlation id so a
// reconnecting shell can dedupe.
func (s *Server) PushLogRow(row model.LogRow) {
	s.broadcast(wireMessage{Type: typeLog, Log: &row, RequestID: uuid.New().String()})
}

func (s *Server) broadcast(msg wireMessage) {
	s.mu.Lock()
	targets := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		_ = c.writeJSON(msg)
	}
}
