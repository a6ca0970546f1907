// Package server exposes the reader registry over local HTTP and WebSocket.
//
// The server follows a start/close lifecycle:
//
//	srv, err := server.New(cfg)
//	srv.Start(ctx)
//	defer srv.Close()
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"

	"github.com/dotside-studios/rfid-sfl/device"
	"github.com/dotside-studios/rfid-sfl/logging"
	"github.com/dotside-studios/rfid-sfl/protocol"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:21646".
	Addr      string
	Registry  *device.Registry
	Confirmer Confirmer
	Logger    *logging.Logger
	// MDNS advertises the server via zeroconf once listening.
	MDNS bool
}

// Server manages the HTTP and WebSocket server.
type Server struct {
	config   Config
	registry *device.Registry
	logger   *logging.Logger
	rfid     *RFIDHandler

	handlerRegistry *HandlerRegistry
	clients         *clientManager
	upgrader        websocket.Upgrader

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	mdnsServer *zeroconf.Server
	cancel     context.CancelFunc
}

// New creates a server. It is not listening until Start is called.
func New(config Config) (*Server, error) {
	if config.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if config.Logger == nil {
		config.Logger = logging.Default()
	}

	s := &Server{
		config:          config,
		registry:        config.Registry,
		logger:          config.Logger.With("component", "server"),
		handlerRegistry: NewHandlerRegistry(),
		clients:         newClientManager(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.rfid = NewRFIDHandler(config.Registry, config.Confirmer, s.logger)
	if err := s.rfid.Register(s); err != nil {
		return nil, fmt.Errorf("registering rfid handler: %w", err)
	}
	return s, nil
}

// Handle implements HandlerServer.
func (s *Server) Handle(messageType string, handler HandlerFunc) error {
	return s.handlerRegistry.Handle(messageType, handler)
}

// StartLifecycle implements HandlerServer.
func (s *Server) StartLifecycle(start func(ctx context.Context)) {
	s.handlerRegistry.RegisterLifecycle(start)
}

// Broadcast implements HandlerServer.
func (s *Server) Broadcast(msg protocol.WebSocketMessage) {
	s.clients.broadcast(msg, s.logger)
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.localOnlyMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/", s.handleIndex)
	r.Route("/rfid", func(r chi.Router) {
		r.Get("/", s.handleRFIDGet)
		r.Options("/", s.handleRFIDOptions)
		r.Post("/", s.handleWriteTags)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// Start begins listening and serving in the background. Lifecycle
// handlers run until ctx is cancelled or Close is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return fmt.Errorf("server already started")
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Handler()}

	go func(srv *http.Server) {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}(s.httpServer)

	if s.config.MDNS {
		if err := s.startMDNS(ln.Addr()); err != nil {
			s.logger.Warn("mDNS registration failed, auto-discovery unavailable", "error", err)
		}
	}

	s.handlerRegistry.StartLifecycleHandlers(ctx)
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops mDNS, websocket clients and the HTTP server.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		s.mdnsServer = nil
		s.logger.Info("mDNS service stopped")
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.clients.closeAll()

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.httpServer = nil
	s.listener = nil
	return err
}

// startMDNS registers the server as an mDNS service for auto-discovery.
func (s *Server) startMDNS(addr net.Addr) error {
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	txtRecords := []string{
		"protocol=http",
		"path=/rfid/",
		"ws=/rfid/ws",
	}

	server, err := zeroconf.Register(MDNSServiceName, MDNSServiceType, MDNSDomain, port, txtRecords, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	s.mdnsServer = server
	s.logger.Info("mDNS service registered", "name", MDNSServiceName, "type", MDNSServiceType, "port", port)
	return nil
}
