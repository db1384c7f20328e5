package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/api/response"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/feed"
	"github.com/simplereader/simplereader/internal/tier"
)

// DeviceHandler handles the endpoints the reader app calls. Unknown devices
// are answered with status "unknown", not with an error.
type DeviceHandler struct {
	devices *device.Service
	feed    *feed.Assembler
	logger  zerolog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(devices *device.Service, assembler *feed.Assembler, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{
		devices: devices,
		feed:    assembler,
		logger:  logger,
	}
}

// Register handles POST /v1/register - register a device or refresh its contact data.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	d, created, err := h.devices.Register(r.Context(), device.RegisterInput{
		ID:        req.DeviceID,
		Name:      req.Name,
		Email:     req.Email,
		PushToken: req.PushToken,
	})
	if err != nil {
		var validationErr *device.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation error", validationErr.Errors)
			return
		}
		h.logger.Error().Err(err).Msg("failed to register device")
		response.InternalError(w, r, "registration failed")
		return
	}

	if created {
		h.logger.Info().Str("device_id", d.ID).Msg("device registered")
	}

	response.JSON(w, r, http.StatusOK, feed.NewDeviceV1(d))
}

// Feed handles POST /v1/feed - the device's standing and, if admitted, the publications.
func (h *DeviceHandler) Feed(w http.ResponseWriter, r *http.Request) {
	var req models.FeedRequest
	if !response.Decode(w, r, &req, true) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	resp, err := h.feed.Assemble(r.Context(), req.DeviceID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to assemble feed")
		response.InternalError(w, r, "feed unavailable")
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// Report handles POST /v1/report - record a screenshot and return the updated feed.
// The device is not notified of a resulting downgrade; it sees it in this response.
func (h *DeviceHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if !response.Decode(w, r, &req, false) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	var takenAt time.Time
	if req.Timestamp != nil {
		takenAt = req.Timestamp.Time()
	}

	tr, err := h.devices.Report(r.Context(), req.DeviceID, takenAt)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			response.JSON(w, r, http.StatusOK, feed.Response{Status: tier.Unknown})
			return
		}
		h.logger.Error().Err(err).Str("device_id", req.DeviceID).Msg("failed to record report")
		response.InternalError(w, r, "report failed")
		return
	}

	if tr.Changed {
		h.logger.Info().
			Str("device_id", req.DeviceID).
			Str("from", string(tr.From)).
			Str("to", string(tr.To)).
			Msg("device tier changed by report")
	}

	resp, err := h.feed.ForDevice(r.Context(), tr.Device)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to assemble feed")
		response.InternalError(w, r, "feed unavailable")
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}
