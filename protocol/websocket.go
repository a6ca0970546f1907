package protocol

import "encoding/json"

// WebSocket message types. Requests and responses share the type name.
const (
	WSTypeGetDevicesList = "getDevicesList"
	WSTypeGetItemsList   = "getItemsList"
	WSTypeWriteTags      = "writeTags"
	WSTypeError          = "error"

	// WSTypeDeviceStatus is pushed by the server when reader connectivity
	// changes. Its payload is []DeviceJSON covering every registered reader.
	WSTypeDeviceStatus = "deviceStatus"
)

// WebSocketMessage is a server-initiated message.
type WebSocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WebSocketRequest is for incoming requests from WebSocket clients.
type WebSocketRequest struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebSocketResponse is for responses to WebSocket requests. ID echoes the
// request id.
type WebSocketResponse struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GetItemsListPayload is the payload of a getItemsList request.
type GetItemsListPayload struct {
	DeviceID string `json:"deviceId"`
}

// WriteTagsPayload is the payload of a writeTags request.
type WriteTagsPayload struct {
	DeviceID string      `json:"deviceId"`
	Items    []WriteItem `json:"items"`
}
