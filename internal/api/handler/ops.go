// Package handler provides HTTP handlers for the SimpleReader API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/api/response"
	"github.com/simplereader/simplereader/internal/featureflags"
	"github.com/simplereader/simplereader/internal/provider/resilience"
)

// readinessTimeout bounds each dependency check.
const readinessTimeout = 2 * time.Second

// Check is a named dependency check, such as a database ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// OpsConfig holds the dependencies of the operational endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string
	Checks    []Check
	Providers *resilience.Registry
	Flags     *featureflags.Service
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    []Check
	providers *resilience.Registry
	flags     *featureflags.Service
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		checks:    cfg.Checks,
		providers: cfg.Providers,
		flags:     cfg.Flags,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.subsystems(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{s.Name: *s.Detail}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - push provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.subsystems(r.Context()),
		Providers:  h.providerStatuses(),
	}

	if h.flags != nil && h.flags.IsPushSendingDisabled(r.Context()) {
		status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, featureflags.FlagDisablePushSending)
	}

	for _, p := range status.Providers {
		if p.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	if len(status.ActiveDegradationFlags) > 0 {
		status.Status = models.HealthStatusDegraded
	}
	for _, s := range status.Subsystems {
		if s.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := c.Ping(checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.providers == nil {
		return []models.ProviderStatus{}
	}

	health := h.providers.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(health))
	for _, p := range health {
		s := models.ProviderStatus{
			Provider:            p.Name,
			Status:              models.HealthStatusOK,
			CircuitState:        p.CircuitState.String(),
			ConsecutiveFailures: p.Counts.ConsecutiveFailures,
			LastSuccessAt:       timestampPtr(p.LastSuccessAt),
			LastFailureAt:       timestampPtr(p.LastFailureAt),
		}
		switch {
		case p.IsUnhealthy():
			s.Status = models.HealthStatusFail
		case p.IsDegraded():
			s.Status = models.HealthStatusDegraded
		}
		out = append(out, s)
	}
	return out
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
