package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/errs"
)

// handleGetDeviceSettings serves GET /device/{id}/settings. Unknown
// devices are lazily registered with defaults rather than 404ing.
func (s *Server) handleGetDeviceSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if err := s.store.RegisterDevice(deviceID, "", "", clientIPHint(r), time.Now()); err != nil {
		writeError(w, errs.Store("failed to register device", err))
		return
	}

	settings, err := s.store.GetDeviceSettings(deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handlePutDeviceSettings serves POST /device/{id}/settings: a partial
// update with range-checked validation. Unknown devices are lazily
// registered with defaults first, as on GET. A validation failure leaves
// updated_at untouched.
func (s *Server) handlePutDeviceSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	var patch map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, errs.Validation("invalid JSON body"))
		return
	}

	if err := s.store.RegisterDevice(deviceID, "", "", clientIPHint(r), time.Now()); err != nil {
		writeError(w, errs.Store("failed to register device", err))
		return
	}

	if err := s.store.PutDeviceSettings(deviceID, patch); err != nil {
		writeError(w, err)
		return
	}

	settings, err := s.store.GetDeviceSettings(deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.BroadcastSettingsUpdate(settings.UpdatedAt)
	writeJSON(w, http.StatusOK, settings)
}

type heartbeatRequest struct {
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
}

type heartbeatResponse struct {
	Status            string    `json:"status"`
	SettingsUpdatedAt time.Time `json:"settings_updated_at"`
}

// handleHeartbeat serves POST /device/{id}/heartbeat.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	var req heartbeatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := s.store.RegisterDevice(deviceID, req.DeviceName, req.DeviceType, clientIPHint(r), time.Now()); err != nil {
		writeError(w, errs.Store("failed to register device", err))
		return
	}

	settings, err := s.store.GetDeviceSettings(deviceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, heartbeatResponse{Status: "ok", SettingsUpdatedAt: settings.UpdatedAt})
}

// handleListDevices serves GET /devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.store.ListDevices()
	if err != nil {
		writeError(w, errs.Store("failed to list devices", err))
		return
	}
	if devices == nil {
		devices = []domain.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func clientIPHint(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
