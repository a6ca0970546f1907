package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dotside-studios/rfid-sfl/protocol"
)

// Conn is the write side of a WebSocket client connection.
type Conn interface {
	WriteJSON(v any) error
}

// HandlerFunc handles one websocket request and writes its response to
// conn. A returned error is logged; the handler is expected to have sent
// an error response already.
type HandlerFunc func(ctx context.Context, conn Conn, req protocol.WebSocketRequest) error

// HandlerServer lets handlers register message routes and background
// processes, and push messages to every connected client.
type HandlerServer interface {
	Handle(messageType string, handler HandlerFunc) error
	StartLifecycle(start func(ctx context.Context))
	Broadcast(msg protocol.WebSocketMessage)
}

// ServerHandler is implemented by handlers that register themselves.
type ServerHandler interface {
	Register(server HandlerServer) error
}

// HandlerRegistry maps websocket message types to handlers and collects
// lifecycle functions. It is safe for concurrent use.
type HandlerRegistry struct {
	handlers          map[string]HandlerFunc
	lifecycleStarters []func(ctx context.Context)
	mu                sync.RWMutex
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a handler function for a specific message type.
// Returns an error if a handler for the same message type is already registered.
func (r *HandlerRegistry) Handle(messageType string, handler HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if messageType == "" {
		return fmt.Errorf("message type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[messageType]; exists {
		return fmt.Errorf("handler for message type '%s' already registered", messageType)
	}
	r.handlers[messageType] = handler
	return nil
}

// RegisterLifecycle registers a function to be called when the server starts.
func (r *HandlerRegistry) RegisterLifecycle(start func(ctx context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lifecycleStarters = append(r.lifecycleStarters, start)
}

// Get retrieves a handler function by message type.
func (r *HandlerRegistry) Get(messageType string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[messageType]
	return handler, ok
}

// Has checks if a handler exists for the given message type.
func (r *HandlerRegistry) Has(messageType string) bool {
	_, ok := r.Get(messageType)
	return ok
}

// MessageTypes returns all registered message types, sorted.
func (r *HandlerRegistry) MessageTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// StartLifecycleHandlers starts all registered lifecycle functions.
func (r *HandlerRegistry) StartLifecycleHandlers(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, starter := range r.lifecycleStarters {
		starter(ctx)
	}
}
