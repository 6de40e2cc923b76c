package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/agent"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// wireMessage mirrors the JSON envelope internal/wsbridge.Server speaks on
// the wire; the monitor has no business importing wsbridge's unexported
// type, so it decodes the same shape independently.
type wireMessage struct {
	Type      string             `json:"type"`
	RequestID string             `json:"requestId,omitempty"`
	Command   string             `json:"command,omitempty"`
	Params    json.RawMessage    `json:"params,omitempty"`
	State     *agent.PublicState `json:"state,omitempty"`
	Log       *model.LogRow      `json:"log,omitempty"`
	Result    json.RawMessage    `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// bridgeClient owns the WebSocket dial to cmd/bridge's control surface and
// correlates request/response pairs by requestId.
type bridgeClient struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan wireMessage
}

func dialBridge(addr string) (*bridgeClient, error) {
	url := "ws://" + strings.TrimPrefix(strings.TrimPrefix(addr, "ws://"), "http://") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial control surface at %s: %w", url, err)
	}
	return &bridgeClient{conn: conn, pending: make(map[string]chan wireMessage)}, nil
}

// next blocks for the next push or response frame off the wire.
func (c *bridgeClient) next() (wireMessage, error) {
	var msg wireMessage
	if err := c.conn.ReadJSON(&msg); err != nil {
		return wireMessage{}, err
	}
	if msg.Type == "response" {
		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		if ok {
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
			return c.next()
		}
	}
	return msg, nil
}

// call issues a command and waits for its matching response.
func (c *bridgeClient) call(ctx context.Context, command string, params any) (wireMessage, error) {
	requestID := uuid.New().String()
	ch := make(chan wireMessage, 1)

	c.mu.Lock()
	c.pending[requestID] = ch
	c.mu.Unlock()

	var encoded json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return wireMessage{}, err
		}
		encoded = b
	}
	if err := c.conn.WriteJSON(wireMessage{Type: "command", RequestID: requestID, Command: command, Params: encoded}); err != nil {
		return wireMessage{}, err
	}

	select {
	case msg := <-ch:
		if msg.Error != "" {
			return msg, fmt.Errorf("%s: %s", command, msg.Error)
		}
		return msg, nil
	case <-ctx.Done():
		return wireMessage{}, ctx.Err()
	case <-time.After(10 * time.Second):
		return wireMessage{}, fmt.Errorf("%s: timed out waiting for response", command)
	}
}

func (c *bridgeClient) close() { _ = c.conn.Close() }
