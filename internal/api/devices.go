package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/model"
)

type DeviceHandler struct {
	DB *db.DB
}

type RegisterDeviceRequest struct {
	DeviceID  string `json:"deviceId"`
	PushToken string `json:"pushToken"`
	Platform  string `json:"platform"`
}

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request, userID string) {
	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", CodeInvalidInput, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" || strings.TrimSpace(req.PushToken) == "" {
		JSONError(w, "deviceId and pushToken are required", CodeInvalidInput, http.StatusBadRequest)
		return
	}
	if req.Platform == "" {
		req.Platform = "unknown"
	}

	err := h.DB.UpsertDevice(model.Device{ID: req.DeviceID, UserID: userID, PushToken: req.PushToken, Platform: req.Platform})
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Device registered"})
}
