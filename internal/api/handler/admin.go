package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/api/response"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/feed"
	"github.com/simplereader/simplereader/internal/tier"
)

// AdminHandler handles device administration and broadcasts.
type AdminHandler struct {
	admin   *admin.Service
	devices *device.Service
	feed    *feed.Assembler
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *admin.Service, devices *device.Service, assembler *feed.Assembler, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   adminService,
		devices: devices,
		feed:    assembler,
		logger:  logger,
	}
}

// ListDevices handles GET /v1/admin/devices.
func (h *AdminHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}

	list := models.DeviceList{Items: make([]models.Device, 0, len(devices))}
	for _, d := range devices {
		list.Items = append(list.Items, toDeviceModel(d))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// SetTier handles PUT /v1/admin/devices/{deviceId}/tier.
func (h *AdminHandler) SetTier(w http.ResponseWriter, r *http.Request) {
	var req models.SetTierRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	out, err := h.admin.SetTier(r.Context(), chi.URLParam(r, "deviceId"), tier.Tier(req.Tier), req.Reason)
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toActionResponse(out, true))
}

// Message handles POST /v1/admin/devices/{deviceId}/message.
func (h *AdminHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req models.MessageRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	out, err := h.admin.Message(r.Context(), chi.URLParam(r, "deviceId"), req.Message)
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toActionResponse(out, true))
}

// DeleteDevice handles DELETE /v1/admin/devices/{deviceId}.
func (h *AdminHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	out, err := h.admin.DeleteDevice(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toActionResponse(out, false))
}

// Broadcast handles POST /v1/admin/broadcast - notify every device.
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req models.BroadcastRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	out, err := h.admin.Broadcast(r.Context(), req.Message, req.PublicationID)
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toActionResponse(out, false))
}

// Feed handles GET /v1/admin/feed - the unfiltered publication feed.
func (h *AdminHandler) Feed(w http.ResponseWriter, r *http.Request) {
	resp, err := h.feed.Assemble(r.Context(), nil)
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, resp)
}
