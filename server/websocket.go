package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dotside-studios/rfid-sfl/logging"
	"github.com/dotside-studios/rfid-sfl/protocol"
)

// client serialises writes to one websocket connection; gorilla allows a
// single concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// clientManager tracks connected websocket clients.
type clientManager struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
}

func newClientManager() *clientManager {
	return &clientManager{
		clients: make(map[*client]struct{}),
	}
}

func (cm *clientManager) register(c *client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[c] = struct{}{}
}

func (cm *clientManager) unregister(c *client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, c)
}

func (cm *clientManager) count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

func (cm *clientManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for c := range cm.clients {
		c.conn.Close()
		delete(cm.clients, c)
	}
}

// broadcast sends a message to all clients, dropping those that fail.
func (cm *clientManager) broadcast(msg protocol.WebSocketMessage, logger *logging.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for c := range cm.clients {
		if err := c.WriteJSON(msg); err != nil {
			logger.Debug("websocket write error", "error", err)
			c.conn.Close()
			delete(cm.clients, c)
		}
	}
}

// handleWebSocket upgrades GET /rfid/ws and dispatches requests to the
// handler registry until the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	conn.SetReadLimit(wsMaxMessageSize)

	c := &client{conn: conn}
	s.clients.register(c)
	s.logger.Info("websocket connected", "remote", r.RemoteAddr)

	defer func() {
		s.clients.unregister(c)
		conn.Close()
		s.logger.Info("websocket disconnected", "remote", r.RemoteAddr)
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req protocol.WebSocketRequest
		if err := json.Unmarshal(message, &req); err != nil {
			s.logger.Debug("failed to parse websocket message", "error", err)
			sendError(c, "", ErrCodeParse, "Invalid message format")
			continue
		}

		handler, ok := s.handlerRegistry.Get(req.Type)
		if !ok {
			sendError(c, req.ID, ErrCodeUnknownType, fmt.Sprintf("Unknown message type: %s", req.Type))
			continue
		}

		if err := handler(r.Context(), c, req); err != nil {
			s.logger.Warn("websocket handler error", "type", req.Type, "error", err)
		}
	}
}
