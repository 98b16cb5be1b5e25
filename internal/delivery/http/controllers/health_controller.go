package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"eventsphere/internal/delivery/http/helpers"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type HealthController struct {
	Logger *slog.Logger
	Checks map[string]Checker
}

func NewHealthController(logger *slog.Logger, checks map[string]Checker) *HealthController {
	return &HealthController{
		Logger: logger,
		Checks: checks,
	}
}

// Health godoc
// @Summary Liveness and dependency check
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status: ok"
// @Failure 503 {object} helpers.APIResponse "data.status: degraded"
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(c.Checks))}
	status := http.StatusOK
	for name, check := range c.Checks {
		if err := check(r.Context()); err != nil {
			c.Logger.WarnContext(r.Context(), "health check failed", "check", name, "err", err)
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	helpers.WriteJSONSuccess(w, status, resp)
}
