package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dotside-studios/rfid-sfl/buildinfo"
	"github.com/dotside-studios/rfid-sfl/protocol"
)

// handleIndex serves GET /.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", ContentTypeText)
	w.Write([]byte(buildinfo.Banner()))
}

// handleRFIDGet serves GET /rfid/ and its actions.
func (s *Server) handleRFIDGet(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get(paramAction) {
	case "":
		w.Header().Set("Content-Type", ContentTypeHTML)
		w.Write([]byte(RFIDIndexBody))
	case ActionGetDevicesList:
		s.handleGetDevicesList(w, r)
	case ActionGetItemsList:
		s.handleGetItemsList(w, r)
	default:
		writeStatus(w, http.StatusNotFound)
	}
}

// handleRFIDOptions serves OPTIONS /rfid/. The read actions answer exactly
// like GET; anything else is an empty preflight response.
func (s *Server) handleRFIDOptions(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get(paramAction) {
	case ActionGetDevicesList:
		s.handleGetDevicesList(w, r)
	case ActionGetItemsList:
		s.handleGetItemsList(w, r)
	default:
		writeStatus(w, http.StatusOK)
	}
}

// GET /rfid/?action=getDevicesList
func (s *Server) handleGetDevicesList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rfid.Devices())
}

// GET /rfid/?action=getItemsList&deviceId=<name>
func (s *Server) handleGetItemsList(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get(paramDeviceID)
	items, err := s.rfid.Items(name)
	if err != nil {
		s.logger.Debug("items list unavailable", "device", name, "error", err)
		writeStatus(w, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleWriteTags serves POST /rfid/ with action=writeTags.
func (s *Server) handleWriteTags(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}
	if r.PostForm.Get(paramAction) != ActionWriteTags {
		writeStatus(w, http.StatusNotFound)
		return
	}

	name := r.PostForm.Get(paramDeviceID)
	if _, err := s.registry.Lookup(name); err != nil {
		s.logger.Debug("write to unknown device", "device", name)
		writeStatus(w, http.StatusNotFound)
		return
	}

	list, err := protocol.FormItems(r.PostForm)
	if err != nil {
		s.logger.Debug("write params are not valid", "error", err)
		writeStatus(w, http.StatusBadRequest)
		return
	}
	items, err := protocol.Items(list)
	if err != nil {
		s.logger.Debug("write item is not valid", "error", err)
		writeStatus(w, http.StatusBadRequest)
		return
	}

	results, err := s.rfid.WriteTags(r.Context(), name, items)
	if err != nil {
		if !errors.Is(err, ErrWriteRejected) {
			s.logger.Warn("write failed", "device", name, "error", err)
		}
		writeStatus(w, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// writeJSON writes v with the API's JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	//nolint:errcheck // connection may be closed
	json.NewEncoder(w).Encode(v)
}

// writeStatus writes an empty JSON-typed response.
func writeStatus(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
}
