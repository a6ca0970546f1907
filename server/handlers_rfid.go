package server

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/dotside-studios/rfid-sfl/device"
	"github.com/dotside-studios/rfid-sfl/logging"
	"github.com/dotside-studios/rfid-sfl/protocol"
	"github.com/dotside-studios/rfid-sfl/rfid"
)

// RFIDHandler implements the reader operations shared by the HTTP and
// WebSocket front ends.
type RFIDHandler struct {
	registry       *device.Registry
	confirmer      Confirmer
	logger         *logging.Logger
	statusInterval time.Duration
}

// NewRFIDHandler creates a handler. A nil confirmer approves every write.
func NewRFIDHandler(registry *device.Registry, confirmer Confirmer, logger *logging.Logger) *RFIDHandler {
	if confirmer == nil {
		confirmer = AlwaysConfirm{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RFIDHandler{
		registry:       registry,
		confirmer:      confirmer,
		logger:         logger,
		statusInterval: defaultStatusInterval,
	}
}

// Register implements ServerHandler. It routes the websocket message types
// and starts the device status watcher.
func (h *RFIDHandler) Register(server HandlerServer) error {
	routes := map[string]HandlerFunc{
		protocol.WSTypeGetDevicesList: h.handleGetDevicesList,
		protocol.WSTypeGetItemsList:   h.handleGetItemsList,
		protocol.WSTypeWriteTags:      h.handleWriteTags,
	}
	for messageType, handler := range routes {
		if err := server.Handle(messageType, handler); err != nil {
			return err
		}
	}

	server.StartLifecycle(func(ctx context.Context) {
		go h.watchStatus(ctx, server)
	})
	return nil
}

// Devices lists the connected readers.
func (h *RFIDHandler) Devices() []protocol.DeviceJSON {
	list := make([]protocol.DeviceJSON, 0)
	for _, s := range h.registry.List() {
		if s.Connected {
			h.logger.Debug("available device", "device", s.Name)
			list = append(list, deviceJSON(s))
		}
	}
	return list
}

// Items reads the tags in range of the named reader.
func (h *RFIDHandler) Items(name string) ([]protocol.ItemJSON, error) {
	entry, err := h.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	items, connected := entry.Items()
	if !connected {
		return nil, ErrDeviceOffline
	}
	if len(items) == 0 {
		h.logger.Info("no tags found", "device", name)
	}
	return protocol.NewItemList(items), nil
}

// WriteTags asks for confirmation and writes items with the named reader.
func (h *RFIDHandler) WriteTags(ctx context.Context, name string, items []*rfid.Item) ([]device.WriteResult, error) {
	entry, err := h.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	if !h.confirmer.Confirm(ctx, name, len(items)) {
		h.logger.Info("write rejected by user", "device", name, "count", len(items))
		return nil, ErrWriteRejected
	}

	results := entry.WriteTags(items)
	written := 0
	for _, r := range results {
		if r.Success {
			written++
		}
	}
	h.logger.Info("tags written", "device", name, "requested", len(items), "written", written)
	return results, nil
}

func deviceJSON(s device.Status) protocol.DeviceJSON {
	return protocol.DeviceJSON{
		ID:                      s.Name,
		Title:                   s.Name,
		IsOnline:                s.Connected,
		MultiTagIsSupported:     s.Capabilities.MultiTag,
		IsReadOnly:              s.Capabilities.ReadOnly,
		CompoundDataIsSupported: s.Capabilities.CompoundData,
	}
}

func (h *RFIDHandler) handleGetDevicesList(_ context.Context, conn Conn, req protocol.WebSocketRequest) error {
	return sendSuccess(conn, req, h.Devices())
}

func (h *RFIDHandler) handleGetItemsList(_ context.Context, conn Conn, req protocol.WebSocketRequest) error {
	var payload protocol.GetItemsListPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return sendError(conn, req.ID, ErrCodeBadRequest, "invalid getItemsList payload")
	}

	items, err := h.Items(payload.DeviceID)
	if err != nil {
		return sendDeviceError(conn, req.ID, err)
	}
	return sendSuccess(conn, req, items)
}

func (h *RFIDHandler) handleWriteTags(ctx context.Context, conn Conn, req protocol.WebSocketRequest) error {
	var payload protocol.WriteTagsPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return sendError(conn, req.ID, ErrCodeBadRequest, "invalid writeTags payload")
	}

	items, err := protocol.Items(payload.Items)
	if err != nil {
		return sendError(conn, req.ID, ErrCodeBadRequest, err.Error())
	}

	results, err := h.WriteTags(ctx, payload.DeviceID, items)
	if err != nil {
		return sendDeviceError(conn, req.ID, err)
	}
	return sendSuccess(conn, req, results)
}

// watchStatus broadcasts the reader list whenever connectivity changes. It
// only observes; readers reconnect when a client next uses them.
func (h *RFIDHandler) watchStatus(ctx context.Context, server HandlerServer) {
	ticker := time.NewTicker(h.statusInterval)
	defer ticker.Stop()

	var last []protocol.DeviceJSON
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		statuses := h.registry.Snapshot()
		current := make([]protocol.DeviceJSON, len(statuses))
		for i, s := range statuses {
			current[i] = deviceJSON(s)
		}
		if last != nil && reflect.DeepEqual(current, last) {
			continue
		}
		last = current
		server.Broadcast(protocol.WebSocketMessage{
			Type:    protocol.WSTypeDeviceStatus,
			Payload: current,
		})
	}
}

func sendSuccess(conn Conn, req protocol.WebSocketRequest, payload any) error {
	return conn.WriteJSON(protocol.WebSocketResponse{
		ID:      req.ID,
		Type:    req.Type,
		Success: true,
		Payload: payload,
	})
}

func sendError(conn Conn, requestID, code, message string) error {
	return conn.WriteJSON(protocol.WebSocketResponse{
		ID:      requestID,
		Type:    protocol.WSTypeError,
		Success: false,
		Error:   message,
		Payload: map[string]any{"code": code},
	})
}

func sendDeviceError(conn Conn, requestID string, err error) error {
	code := ErrCodeBadRequest
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, ErrDeviceOffline):
		code = ErrCodeOffline
	case errors.Is(err, ErrWriteRejected):
		code = ErrCodeRejected
	}
	return sendError(conn, requestID, code, err.Error())
}
